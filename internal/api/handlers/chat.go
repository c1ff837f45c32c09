package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
	"github.com/vishal27shetty/Company-Research-Agent/internal/service"
)

// Researcher is the part of the orchestrator the HTTP layer uses.
type Researcher interface {
	Stream(ctx context.Context, req service.Request) <-chan domain.Event
	Report(ctx context.Context, threadID string) (*domain.Report, error)
	Thread(ctx context.Context, threadID string) (*domain.ThreadState, error)
	DeleteThread(ctx context.Context, threadID string) error
}

type ChatHandler struct {
	svc    Researcher
	logger *zap.Logger
}

func NewChatHandler(svc Researcher, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, logger: logger}
}

type chatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
}

// Chat runs one turn and streams its events as server-sent events. The
// stream ends when the turn does.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	req.ThreadID = strings.TrimSpace(req.ThreadID)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.ThreadID == "" {
		writeError(w, http.StatusBadRequest, "thread_id is required")
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	broken := false
	for e := range h.svc.Stream(r.Context(), service.Request{ThreadID: req.ThreadID, Message: req.Message}) {
		if broken {
			continue
		}
		if err := writeEvent(w, e); err != nil {
			h.logger.Debug("client went away", zap.String("thread_id", req.ThreadID), zap.Error(err))
			broken = true
			continue
		}
		if err := rc.Flush(); err != nil {
			h.logger.Debug("flush failed", zap.Error(err))
		}
	}
}

func writeEvent(w io.Writer, e domain.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
