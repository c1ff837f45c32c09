// Package mcpserver exposes the research assistant as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/buildconfig"
	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
	"github.com/vishal27shetty/Company-Research-Agent/internal/service"
)

// Researcher is the orchestrator surface the tools call.
type Researcher interface {
	Handle(ctx context.Context, req service.Request, emit service.Emitter) error
	Report(ctx context.Context, threadID string) (*domain.Report, error)
	DeleteThread(ctx context.Context, threadID string) error
}

type Server struct {
	MCPServer *sdkmcp.Server

	svc    Researcher
	logger *zap.Logger
}

func NewServer(svc Researcher, logger *zap.Logger) *Server {
	s := &Server{
		MCPServer: sdkmcp.NewServer(
			&sdkmcp.Implementation{Name: "company-research", Version: buildconfig.Version()},
			nil,
		),
		svc:    svc,
		logger: logger,
	}
	s.registerTools()
	return s
}

// Run serves the tools over stdio until ctx is done or the client leaves.
func (s *Server) Run(ctx context.Context) error {
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "research_chat",
		Description: "Send one message to the company research assistant. Research requests build or extend a cited report; other messages are answered from it. Reuse thread_id to continue a conversation.",
	}, s.handleChat)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_report",
		Description: "Return the current report of a thread as markdown with its references.",
	}, s.handleGetReport)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "reset_thread",
		Description: "Delete a thread and its report.",
	}, s.handleReset)
}

type chatInput struct {
	ThreadID string `json:"thread_id,omitempty" jsonschema:"conversation id; a new one is assigned when empty"`
	Message  string `json:"message" jsonschema:"the user's message"`
}

type conflictOutput struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type chatOutput struct {
	ThreadID  string          `json:"thread_id"`
	Status    []string        `json:"status,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
	Citations []string        `json:"citations,omitempty"`
	Conflict  *conflictOutput `json:"conflict,omitempty"`
	Report    string          `json:"report,omitempty"`
	Text      string          `json:"text,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type reportInput struct {
	ThreadID string `json:"thread_id" jsonschema:"conversation id"`
}

type reportOutput struct {
	Title      string   `json:"title"`
	Company    string   `json:"company"`
	Sections   []string `json:"sections"`
	Markdown   string   `json:"markdown"`
	References []string `json:"references"`
}

type resetOutput struct {
	ThreadID string `json:"thread_id"`
	Deleted  bool   `json:"deleted"`
}

func (s *Server) handleChat(ctx context.Context, _ *sdkmcp.CallToolRequest, in chatInput) (*sdkmcp.CallToolResult, chatOutput, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, chatOutput{}, service.ErrMessageEmpty
	}
	id := strings.TrimSpace(in.ThreadID)
	if id == "" {
		id = uuid.NewString()
	}

	out := chatOutput{ThreadID: id}
	var report strings.Builder
	emit := func(e domain.Event) {
		switch e.Type {
		case domain.EventStatus:
			out.Status = append(out.Status, e.Text())
		case domain.EventWarning:
			out.Warnings = append(out.Warnings, e.Text())
		case domain.EventCitations:
			if urls, ok := e.Content.([]string); ok {
				out.Citations = domain.DedupeURLs(out.Citations, urls)
			}
		case domain.EventConflict:
			if c, ok := e.Content.(domain.ConflictContent); ok {
				out.Conflict = &conflictOutput{Status: string(c.Status), Reason: c.Reason}
			}
		case domain.EventReport:
			report.WriteString(e.Text())
		case domain.EventText:
			out.Text = e.Text()
		case domain.EventError:
			out.Error = e.Text()
		}
	}

	err := s.svc.Handle(ctx, service.Request{ThreadID: id, Message: in.Message}, emit)
	out.Report = report.String()
	if err != nil && out.Error == "" {
		return nil, chatOutput{}, err
	}
	if err != nil {
		s.logger.Debug("research turn ended with an error event", zap.String("thread_id", id), zap.Error(err))
	}
	return nil, out, nil
}

func (s *Server) handleGetReport(ctx context.Context, _ *sdkmcp.CallToolRequest, in reportInput) (*sdkmcp.CallToolResult, reportOutput, error) {
	r, err := s.svc.Report(ctx, strings.TrimSpace(in.ThreadID))
	if err != nil {
		if errors.Is(err, service.ErrReportNotFound) {
			return nil, reportOutput{}, fmt.Errorf("thread %q has no report yet", in.ThreadID)
		}
		return nil, reportOutput{}, err
	}
	names := make([]string, len(r.Sections))
	for i, sec := range r.Sections {
		names[i] = sec.Name
	}
	return nil, reportOutput{
		Title:      r.Title(),
		Company:    r.Company,
		Sections:   names,
		Markdown:   r.Markdown(),
		References: r.References(),
	}, nil
}

func (s *Server) handleReset(ctx context.Context, _ *sdkmcp.CallToolRequest, in reportInput) (*sdkmcp.CallToolResult, resetOutput, error) {
	id := strings.TrimSpace(in.ThreadID)
	err := s.svc.DeleteThread(ctx, id)
	switch {
	case errors.Is(err, service.ErrThreadNotFound):
		return nil, resetOutput{ThreadID: id}, nil
	case err != nil:
		return nil, resetOutput{}, err
	}
	return nil, resetOutput{ThreadID: id, Deleted: true}, nil
}
