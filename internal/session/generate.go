package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/joelkehle/feasibility-study/internal/finance"
	"github.com/joelkehle/feasibility-study/internal/narrative"
	"github.com/joelkehle/feasibility-study/internal/payload"
)

type ReportOptions struct {
	// Language overrides the session's preferred language.
	Language string
	Author   payload.Author
	// Comparison overrides the session's selected comparison options.
	Comparison []string
	// Context lines are sent after the generated plain context.
	Context []string
}

// Result is one generated report.
type Result struct {
	ID          string            `json:"id"`
	SessionID   string            `json:"sessionId"`
	Report      *narrative.Report `json:"report"`
	Trace       narrative.Trace   `json:"trace"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

// BuildPayload assembles the narrative request for a snapshot.
func BuildPayload(snap Snapshot, opts ReportOptions, now time.Time) (payload.Payload, []string) {
	lang := opts.Language
	if lang == "" {
		lang = languageOr(snap.Language)
	}
	cmp := opts.Comparison
	if cmp == nil {
		cmp = snap.Comparison
	}
	analysis := finance.AnalyzeAnswers(snap.Answers, snap.Sections)
	p := payload.Assemble(payload.Request{
		Answers:    snap.Answers,
		Sections:   snap.Sections,
		Analysis:   &analysis,
		Author:     opts.Author,
		Comparison: cmp,
		Language:   lang,
		Now:        now,
	})
	lines := append(payload.PlainContext(p.CoverPage, snap.Survey), opts.Context...)
	return p, lines
}

// GenerateReport flushes pending saves, checks the completeness gate and
// asks the narrative generator for a report. Generation runs without holding
// the session, so saves may continue meanwhile.
func (s *Service) GenerateReport(ctx context.Context, id string, opts ReportOptions) (*Result, error) {
	ctx, span := tracer.Start(ctx, "session.generate_report")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))

	if err := s.Flush(ctx, id); err != nil {
		s.log.Warn("flush before report failed", "session", id, "err", err)
	}
	snap, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if gate := gateFor(snap); !gate.Ready {
		span.SetStatus(codes.Error, "incomplete")
		return nil, &IncompleteError{Missing: gate.Missing}
	}
	if s.gen == nil {
		return nil, &StageError{Stage: "generate", Err: narrative.ErrServiceUnavailable}
	}

	now := s.clock.Now()
	p, lines := BuildPayload(snap, opts, now)
	rep, trace, err := s.gen.Generate(ctx, narrative.Request{Payload: p, Context: lines})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &StageError{Stage: "generate", Err: err}
	}
	s.log.Info("report generated", "session", id, "initial", trace.Initial, "final", trace.Final, "calls", trace.Calls)
	return &Result{
		ID:          uuid.NewString(),
		SessionID:   id,
		Report:      rep,
		Trace:       trace,
		GeneratedAt: now,
	}, nil
}
