package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joelkehle/feasibility-study/internal/canon"
	"github.com/joelkehle/feasibility-study/internal/logger"
	"github.com/joelkehle/feasibility-study/internal/merge"
	"github.com/joelkehle/feasibility-study/internal/narrative"
	"github.com/joelkehle/feasibility-study/internal/payload"
	"github.com/joelkehle/feasibility-study/internal/render"
	"github.com/joelkehle/feasibility-study/internal/session"
	"github.com/joelkehle/feasibility-study/internal/store"
)

const (
	CodeValidation  = "validation"
	CodeIncomplete  = "incomplete"
	CodeUnavailable = "unavailable"
	CodeTimeout     = "timeout"
	CodeInternal    = "internal"
)

// maxBodyBytes bounds request bodies; posted form HTML can be large.
const maxBodyBytes = 4 << 20

type Server struct {
	svc   *session.Service
	store *store.Safe
	pdf   render.PDFRenderer
	log   *logger.Logger
	now   func() time.Time

	keepAlive time.Duration
}

type Option func(*Server)

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithKeepAlive sets how often an idle event stream sends a comment line.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Server) { s.keepAlive = d }
}

// NewServer wires the session routes. pdf may be nil, in which case PDF
// output answers 503.
func NewServer(svc *session.Service, st *store.Safe, pdf render.PDFRenderer, log *logger.Logger, opts ...Option) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{svc: svc, store: st, pdf: pdf, log: log, now: time.Now, keepAlive: 15 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/sessions", s.handleSessions)
	mux.HandleFunc("/v1/sessions/", s.handleSession)
	mux.HandleFunc("/v1/schema", s.handleSchema)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, transient bool, extra map[string]any) {
	body := map[string]any{
		"code":      code,
		"message":   message,
		"transient": transient,
	}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, map[string]any{"ok": false, "error": body})
}

// writeServiceError maps a service error to its status and error code.
func writeServiceError(w http.ResponseWriter, err error) {
	var inc *session.IncompleteError
	var se *store.Error
	switch {
	case errors.Is(err, session.ErrMissingID):
		writeError(w, http.StatusBadRequest, CodeValidation, err.Error(), false, nil)
	case errors.As(err, &inc):
		writeError(w, http.StatusUnprocessableEntity, CodeIncomplete, err.Error(), false, map[string]any{"missing": inc.Missing})
	case narrative.IsUnavailable(err):
		writeError(w, http.StatusServiceUnavailable, CodeUnavailable, narrative.ErrServiceUnavailable.Error(), true, nil)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, CodeTimeout, err.Error(), true, nil)
	case errors.As(err, &se):
		writeError(w, http.StatusServiceUnavailable, se.Code, se.Message, se.Transient, nil)
	default:
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error(), true, nil)
	}
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	blob, err := readBody(r)
	if err == nil {
		err = json.Unmarshal(blob, dst)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid JSON body: "+err.Error(), false, nil)
		return false
	}
	return true
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	id := session.NewID()
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "session_id": id})
}

// handleSession routes /v1/sessions/{id}[/action].
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions/"), "/")
	id, action, _ := strings.Cut(path, "/")
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch action {
	case "":
		s.handleSnapshot(w, r, id)
	case "answers":
		s.handleAnswers(w, r, id)
	case "preferences":
		s.handlePreferences(w, r, id)
	case "completeness":
		s.handleCompleteness(w, r, id)
	case "financials":
		s.handleFinancials(w, r, id)
	case "payload":
		s.handlePayload(w, r, id)
	case "report":
		s.handleReport(w, r, id)
	case "events":
		s.handleEvents(w, r, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	snap, err := s.svc.Load(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAnswers(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Answers  map[string]any `json:"answers"`
		FormHTML string         `json:"form_html"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	var extra []merge.Source
	if strings.TrimSpace(req.FormHTML) != "" {
		extra = append(extra,
			merge.HTMLFormSource{Label: "commercial-sector", HTML: req.FormHTML, IDs: merge.CommercialSectorIDs},
			merge.HTMLFormSource{Label: "form", HTML: req.FormHTML},
		)
	}
	snap, err := s.svc.Save(r.Context(), id, req.Answers, extra...)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var prefs session.Preferences
	if !decodeBody(w, r, &prefs) {
		return
	}
	snap, err := s.svc.SetPreferences(r.Context(), id, prefs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCompleteness(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	gate, err := s.svc.Completeness(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gate)
}

func (s *Server) handleFinancials(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	fin, err := s.svc.Analyze(r.Context(), id, strings.TrimSpace(r.URL.Query().Get("lang")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fin)
}

// handlePayload returns the narrative request the session would send,
// fitted to the default size budget unless full=1.
func (s *Server) handlePayload(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	snap, err := s.svc.Load(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	p, lines := session.BuildPayload(snap, session.ReportOptions{Language: strings.TrimSpace(r.URL.Query().Get("lang"))}, s.now())
	var body any = p
	if r.URL.Query().Get("full") != "1" {
		if body, err = payload.FitToLimit(p, payload.DefaultBudget); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"payload": body, "context": lines})
}

type reportRequest struct {
	Language   string         `json:"language"`
	Author     payload.Author `json:"author"`
	Comparison []string       `json:"comparison"`
	Context    []string       `json:"context"`
	// Format is json (default), markdown or pdf.
	Format string `json:"format"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req reportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "markdown" && format != "pdf" {
		writeError(w, http.StatusBadRequest, CodeValidation, fmt.Sprintf("unknown format %q", req.Format), false, nil)
		return
	}
	if format == "pdf" && s.pdf == nil {
		writeError(w, http.StatusServiceUnavailable, CodeUnavailable, "pdf rendering is not configured", false, nil)
		return
	}

	res, err := s.svc.GenerateReport(r.Context(), id, session.ReportOptions{
		Language:   req.Language,
		Author:     req.Author,
		Comparison: req.Comparison,
		Context:    req.Context,
	})
	if err != nil {
		s.log.Warn("report generation failed", "session", id, "err", err)
		writeServiceError(w, err)
		return
	}
	meta := render.BuildMeta(res.Report, req.Language, res.GeneratedAt)

	switch format {
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, render.Markdown(res.Report, meta))
	case "pdf":
		pdf, err := s.pdf.Render(r.Context(), res.Report, meta)
		if err != nil {
			s.log.Error("pdf render failed", "session", id, "err", err)
			writeError(w, http.StatusInternalServerError, CodeInternal, "pdf render failed: "+err.Error(), true, nil)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", render.FileName(meta.ProjectName, res.GeneratedAt)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pdf)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": res, "meta": meta})
	}
}

// handleEvents streams the session's store changes as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, CodeInternal, "streaming unsupported", false, nil)
		return
	}
	ctx := r.Context()
	changes := make(chan store.Change, 32)
	err := s.store.Subscribe(ctx, func(c store.Change) {
		if c.Session != id {
			return
		}
		select {
		case changes <- c:
		default:
			s.log.Warn("event stream lagging; dropping change", "session", id, "key", c.Key)
		}
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	bw := bufio.NewWriter(w)
	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := bw.WriteString(": keep-alive\n\n"); err != nil {
				return
			}
		case c := <-changes:
			blob, err := json.Marshal(map[string]any{"key": c.Key, "newValue": c.NewValue, "oldValue": c.OldValue})
			if err != nil {
				continue
			}
			if _, err := bw.WriteString("event: change\ndata: "); err != nil {
				return
			}
			if _, err := bw.Write(blob); err != nil {
				return
			}
			if _, err := bw.WriteString("\n\n"); err != nil {
				return
			}
		}
		if err := bw.Flush(); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sectionIds":    payload.SectionIDs,
		"sectionTitles": payload.SectionTitles,
		"pageOrder":     payload.PageOrder(),
		"unified":       canon.Schema(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	ready := s.store.WhenReady(r.Context()) == nil
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "store_ready": ready, "time": s.now().UTC()})
}
