package handlers

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
	"github.com/vishal27shetty/Company-Research-Agent/internal/service"
)

type ThreadHandler struct {
	svc    Researcher
	md     goldmark.Markdown
	logger *zap.Logger
}

func NewThreadHandler(svc Researcher, logger *zap.Logger) *ThreadHandler {
	return &ThreadHandler{
		svc:    svc,
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger: logger,
	}
}

type reportResponse struct {
	*domain.Report
	Title      string   `json:"title"`
	References []string `json:"references"`
	Markdown   string   `json:"markdown"`
}

type threadResponse struct {
	ID              string           `json:"id"`
	Company         string           `json:"company,omitempty"`
	ResearchType    string           `json:"research_type,omitempty"`
	LastIntent      string           `json:"last_intent,omitempty"`
	Transcript      []domain.Message `json:"transcript"`
	PendingConflict *domain.Verdict  `json:"pending_conflict,omitempty"`
	UpdatedAt       string           `json:"updated_at"`
}

// Report returns the thread's report as json (default), markdown or html.
func (h *ThreadHandler) Report(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := h.svc.Report(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrReportNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		h.logger.Error("failed to load report", zap.String("thread_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}

	md := report.Markdown()
	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, reportResponse{
			Report:     report,
			Title:      report.Title(),
			References: report.References(),
			Markdown:   md,
		})
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(md))
	case "html":
		var buf bytes.Buffer
		if err := h.md.Convert([]byte(md), &buf); err != nil {
			h.logger.Error("failed to render report", zap.String("thread_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to render report")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	default:
		writeError(w, http.StatusBadRequest, "format must be json, markdown or html")
	}
}

func (h *ThreadHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := h.svc.Thread(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrThreadNotFound) {
			writeError(w, http.StatusNotFound, "thread not found")
			return
		}
		h.logger.Error("failed to load thread", zap.String("thread_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load thread")
		return
	}

	resp := threadResponse{
		ID:           t.ID,
		Company:      t.Company,
		ResearchType: string(t.ResearchType),
		LastIntent:   string(t.LastIntent),
		Transcript:   t.Transcript,
		UpdatedAt:    t.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if resp.Transcript == nil {
		resp.Transcript = []domain.Message{}
	}
	if t.Pending != nil {
		v := t.Pending.Verdict
		resp.PendingConflict = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ThreadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteThread(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrThreadNotFound) {
			writeError(w, http.StatusNotFound, "thread not found")
			return
		}
		h.logger.Error("failed to delete thread", zap.String("thread_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete thread")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
