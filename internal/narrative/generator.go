package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/joelkehle/feasibility-study/internal/logger"
	"github.com/joelkehle/feasibility-study/internal/merge"
	"github.com/joelkehle/feasibility-study/internal/payload"
)

// Budgets for the serialized project data in each kind of request.
const (
	SubsetBudget          = 12000
	ChunkBudget           = 30000
	subsetComparisonLimit = 5
)

type Options struct {
	ExpertPrompt   string
	Timeout        time.Duration
	Attempts       int
	MaxConcurrency int
	FullBudget     int
	SubsetBudget   int
	ChunkBudget    int
}

type Generator struct {
	caller LLMCaller
	opts   Options
	log    *logger.Logger
	sleep  func(context.Context, time.Duration) error
}

func NewGenerator(caller LLMCaller, opts Options, log *logger.Logger) *Generator {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 3
	}
	if opts.FullBudget <= 0 {
		opts.FullBudget = payload.DefaultBudget
	}
	if opts.SubsetBudget <= 0 {
		opts.SubsetBudget = SubsetBudget
	}
	if opts.ChunkBudget <= 0 {
		opts.ChunkBudget = ChunkBudget
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{caller: caller, opts: opts, log: log, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Request struct {
	Payload payload.Payload
	// Context lines go to the model as separate plain-text messages.
	Context []string
}

// Trace records which strategies produced the report.
type Trace struct {
	Initial string `json:"initial"`
	Final   string `json:"final"`
	Calls   int64  `json:"calls"`
}

// Generate produces a normalized report for req.
//
// A small subset of the payload is tried first; if the model cannot answer
// it, the sections are requested in three chunks instead. The full payload
// is then tried, falling back to two and then three chunks. When all of the
// second round fails the first round's report is used. ErrServiceUnavailable
// is returned only when no strategy produced a report.
func (g *Generator) Generate(ctx context.Context, req Request) (*Report, Trace, error) {
	ctx, span := otel.Tracer("feasibility/narrative").Start(ctx, "narrative.generate")
	defer span.End()

	var trace Trace
	if g.caller == nil {
		return nil, trace, ErrServiceUnavailable
	}
	p := req.Payload
	lang := p.Language
	if lang == "" {
		lang = "en"
	}
	full, err := payload.FitToLimit(p, g.opts.FullBudget)
	if err != nil {
		return nil, trace, fmt.Errorf("fit payload: %w", err)
	}
	run := &runner{g: g, lang: lang, extra: req.Context}

	var report *Report
	subset, err := payload.FitToLimit(subsetOf(full), g.opts.SubsetBudget)
	if err == nil {
		report, err = run.single(ctx, "subset", subset, PromptOptions{IncludeMeta: true})
	}
	if err == nil {
		trace.Initial = "subset"
	} else {
		g.log.Warn("narrative subset request failed; trying chunks", "err", err)
		report, err = run.chunked(ctx, full, 3)
		if err == nil {
			trace.Initial = "chunked-3"
		} else {
			g.log.Warn("narrative chunked request failed", "chunks", 3, "err", err)
		}
	}

	final, ferr := run.single(ctx, "full", full, PromptOptions{IncludeMeta: true, IncludeComparison: true})
	stage := "full"
	if ferr != nil {
		g.log.Warn("narrative full request failed; trying chunks", "err", ferr)
		stage = "chunked-2"
		final, ferr = run.chunked(ctx, full, 2)
		if ferr != nil {
			g.log.Warn("narrative chunked request failed", "chunks", 2, "err", ferr)
			stage = "chunked-3"
			final, ferr = run.chunked(ctx, full, 3)
		}
	}
	switch {
	case ferr == nil:
		report, trace.Final = final, stage
	case report != nil:
		g.log.Warn("narrative second round failed; keeping first round", "err", ferr)
		trace.Final = "initial"
	}
	trace.Calls = run.calls.Load()
	span.SetAttributes(
		attribute.String("narrative.initial", trace.Initial),
		attribute.String("narrative.final", trace.Final),
		attribute.Int64("narrative.calls", trace.Calls),
	)
	if report == nil {
		span.SetStatus(codes.Error, "all strategies failed")
		if ctx.Err() != nil {
			return nil, trace, ctx.Err()
		}
		return nil, trace, ErrServiceUnavailable
	}

	Normalize(report, NormalizeOptions{
		Language:   lang,
		Comparison: p.Comparison,
		Statements: p.Financial,
		CoverPage:  p.CoverPage,
	})
	return report, trace, nil
}

// subsetOf picks the fields the first, small request carries: cover page
// details, the page order, section inputs, up to five comparison options and
// the language.
func subsetOf(full any) map[string]any {
	m, _ := full.(map[string]any)
	cover, _ := m["coverPage"].(map[string]any)
	pick := map[string]any{}
	for _, k := range []string{"studyType", "projectName", "projectDescription", "visionMission", "basicInfo", "author", "timestamp", "confidentiality"} {
		pick[k] = cover[k]
	}
	order := []any{payload.PageCover, payload.PageExecutiveSummary, payload.PageTableOfContents}
	for _, id := range payload.SectionIDs {
		order = append(order, "section:"+id)
	}
	comparison, _ := m["comparison"].([]any)
	if len(comparison) > subsetComparisonLimit {
		comparison = comparison[:subsetComparisonLimit]
	}
	out, _ := merge.DeepFilter(map[string]any{
		"coverPage":      pick,
		"requestedOrder": order,
		"sectionInputs":  m["sectionInputs"],
		"comparison":     comparison,
		"language":       m["language"],
	}).(map[string]any)
	return out
}

// splitSections divides the section ids into n consecutive groups of
// ceil(len/n).
func splitSections(n int) [][]string {
	ids := payload.SectionIDs
	size := (len(ids) + n - 1) / n
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}

type runner struct {
	g     *Generator
	lang  string
	extra []string
	calls atomic.Int64
}

func (r *runner) single(ctx context.Context, stage string, data any, opts PromptOptions) (*Report, error) {
	prompt, err := BuildPrompt(r.lang, r.g.opts.ExpertPrompt, data, opts)
	if err != nil {
		return nil, err
	}
	return r.call(ctx, stage, prompt)
}

// chunked requests the sections in n groups concurrently and merges the
// answers in group order. Meta fields are requested from the first group
// only and the comparison from the last.
func (r *runner) chunked(ctx context.Context, full any, n int) (*Report, error) {
	data, err := payload.FitToLimit(full, r.g.opts.ChunkBudget)
	if err != nil {
		return nil, err
	}
	groups := splitSections(n)
	parts := make([]*Report, len(groups))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.g.opts.MaxConcurrency)
	for i, ids := range groups {
		eg.Go(func() error {
			opts := PromptOptions{SectionIDs: ids, IncludeMeta: i == 0, IncludeComparison: i == len(groups)-1}
			part, err := r.single(egCtx, fmt.Sprintf("chunk %d/%d", i+1, len(groups)), data, opts)
			if err != nil {
				return err
			}
			parts[i] = part
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return mergeParts(parts, r.lang), nil
}

// call runs one prompt with up to Attempts tries. Empty and unparseable
// answers are retried with feedback appended to the prompt; rate limits and
// server errors are retried after a backoff. Timeouts and client errors are
// not retried, so the caller can move on to smaller requests.
func (r *runner) call(ctx context.Context, stage, prompt string) (*Report, error) {
	g := r.g
	feedback := ""
	var lastErr error
	for attempt := 1; attempt <= g.opts.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fullPrompt := prompt
		if feedback != "" {
			fullPrompt += "\n\n" + feedback
		}

		r.calls.Add(1)
		raw, err := r.invoke(ctx, fullPrompt)
		if err != nil {
			lastErr = err
			class := classifyTransportError(err)
			if (class == failureRateLimit || class == failureServer) && attempt < g.opts.Attempts && ctx.Err() == nil {
				if serr := g.sleep(ctx, backoffDelay(attempt)); serr != nil {
					return nil, serr
				}
				continue
			}
			return nil, fmt.Errorf("%s transport failure: %w", stage, err)
		}

		class := failureNone
		report, perr := ParseReportJSON(raw)
		switch {
		case strings.TrimSpace(raw) == "":
			class = failureEmpty
			lastErr = fmt.Errorf("%w: empty response", ErrUpstreamFormat)
			feedback = "Your previous response was empty. Respond with valid JSON."
		case perr != nil:
			class = failureParse
			lastErr = perr
			feedback = "Your previous response was not valid JSON. Respond with only one valid JSON object."
		}
		if class == failureNone {
			return report, nil
		}
		g.log.Debug("narrative response rejected", "stage", stage, "attempt", attempt, "err", lastErr)
	}
	return nil, fmt.Errorf("%s failed after %d attempts: %w", stage, g.opts.Attempts, lastErr)
}

func (r *runner) invoke(ctx context.Context, prompt string) (string, error) {
	if r.g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.g.opts.Timeout)
		defer cancel()
	}
	return r.g.caller.GenerateJSON(ctx, prompt, r.extra)
}

// IsUnavailable reports whether err means no report could be generated.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}
