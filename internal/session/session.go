// Package session owns the per-session answer snapshot. It collects answers
// from every source, keeps the canonical form with its derived sections and
// completeness, persists through an autosave scheduler and hands finished
// snapshots to the financial engine and the narrative generator.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/joelkehle/feasibility-study/internal/autosave"
	"github.com/joelkehle/feasibility-study/internal/canon"
	"github.com/joelkehle/feasibility-study/internal/finance"
	"github.com/joelkehle/feasibility-study/internal/logger"
	"github.com/joelkehle/feasibility-study/internal/merge"
	"github.com/joelkehle/feasibility-study/internal/narrative"
	"github.com/joelkehle/feasibility-study/internal/sections"
	"github.com/joelkehle/feasibility-study/internal/store"
)

const DefaultSurveyLimit = 200

var tracer = otel.Tracer("feasibility/session")

type Options struct {
	Debounce time.Duration
	Throttle time.Duration
	Clock    autosave.Clock
	// SurveyLimit caps the stored survey sentences.
	SurveyLimit int
}

// Snapshot is one session's derived state.
type Snapshot struct {
	ID           string            `json:"id"`
	Answers      map[string]any    `json:"answers"`
	Sections     sections.Sections `json:"sections"`
	Completeness sections.Report   `json:"completeness"`
	Language     string            `json:"language"`
	Comparison   []string          `json:"comparison"`
	Survey       []string          `json:"survey"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

type state struct {
	mu     sync.Mutex
	loaded bool
	snap   Snapshot
	saver  *autosave.Scheduler
}

func (st *state) apply(answers map[string]any, at time.Time) {
	if answers == nil {
		answers = map[string]any{}
	}
	st.snap.Answers = answers
	st.snap.Sections = sections.Build(answers)
	st.snap.Completeness = sections.ComputeCompleteness(st.snap.Sections)
	st.snap.UpdatedAt = at
}

func (st *state) copySnapshot() Snapshot {
	s := st.snap
	s.Answers = merge.MergeAll(st.snap.Answers)
	s.Comparison = append([]string(nil), st.snap.Comparison...)
	s.Survey = append([]string(nil), st.snap.Survey...)
	return s
}

type Service struct {
	store *store.Safe
	gen   *narrative.Generator
	log   *logger.Logger
	opts  Options
	clock autosave.Clock

	mu       sync.Mutex
	sessions map[string]*state
}

func NewService(st *store.Safe, gen *narrative.Generator, log *logger.Logger, opts Options) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = autosave.RealClock
	}
	if opts.SurveyLimit <= 0 {
		opts.SurveyLimit = DefaultSurveyLimit
	}
	return &Service{
		store:    st,
		gen:      gen,
		log:      log.With("service", "session"),
		opts:     opts,
		clock:    opts.Clock,
		sessions: map[string]*state{},
	}
}

// NewID returns a fresh session id.
func NewID() string { return uuid.NewString() }

func (s *Service) state(id string) *state {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[id]
	if !ok {
		st = &state{snap: Snapshot{ID: id}}
		st.saver = autosave.New(autosave.Options{
			Debounce: s.opts.Debounce,
			Throttle: s.opts.Throttle,
			Clock:    s.opts.Clock,
			Timeout:  30 * time.Second,
		}, s.log.With("session", id))
		s.sessions[id] = st
	}
	return st
}

func (s *Service) cached(id string) (*state, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[id]
	return st, ok
}

// ensureLoaded reads the persisted records the first time a session is
// touched. Callers hold st.mu.
func (s *Service) ensureLoaded(ctx context.Context, id string, st *state) error {
	if st.loaded {
		return nil
	}
	raw, warnings := merge.Collect(ctx, storedSources(s.store, id)...)
	for _, w := range warnings {
		s.log.Warn("answer source skipped", "session", id, "err", w)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	st.apply(canon.CanonicalizeAnswers(raw), s.clock.Now())

	st.snap.Language = strings.TrimSpace(s.store.GetString(ctx, id, store.KeyLanguage, ""))
	var cmp []string
	if s.store.GetJSON(ctx, id, store.KeyComparison, &cmp) {
		st.snap.Comparison = cmp
	}
	var survey []string
	if s.store.GetJSON(ctx, id, store.KeySurveyData, &survey) {
		st.snap.Survey = survey
	}
	st.loaded = true
	return nil
}

// Load returns the session snapshot, reading persisted records on first use.
func (s *Service) Load(ctx context.Context, id string) (Snapshot, error) {
	if id == "" {
		return Snapshot{}, ErrMissingID
	}
	st := s.state(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := s.ensureLoaded(ctx, id, st); err != nil {
		return Snapshot{}, &StageError{Stage: "load", Err: err}
	}
	return st.copySnapshot(), nil
}

// Save merges a partial update into the session. The update and any extra
// sources are merged first, later ones winning, then canonicalized and
// merged over the current answers, so empty values never erase saved ones.
// An update carrying one age bound keeps the other from the saved range.
// Sections and completeness are recomputed whole and persistence is
// scheduled.
func (s *Service) Save(ctx context.Context, id string, partial map[string]any, extra ...merge.Source) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "session.save")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id), attribute.Int("session.fields", len(partial)))

	if id == "" {
		return Snapshot{}, ErrMissingID
	}
	st := s.state(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := s.ensureLoaded(ctx, id, st); err != nil {
		return Snapshot{}, &StageError{Stage: "load", Err: err}
	}

	sources := append([]merge.Source{}, extra...)
	sources = append(sources, merge.MapSource{Label: "update", Data: partial})
	update, warnings := merge.Collect(ctx, sources...)
	for _, w := range warnings {
		s.log.Warn("answer source skipped", "session", id, "err", w)
	}
	if err := ctx.Err(); err != nil {
		return Snapshot{}, &StageError{Stage: "collect", Err: err}
	}
	update = canon.CompleteAgeBounds(update, st.snap.Answers)
	merged := merge.MergeAll(st.snap.Answers, canon.CanonicalizeAnswers(update))
	st.apply(canon.CanonicalizeAnswers(merged), s.clock.Now())
	s.schedule(id, st)
	return st.copySnapshot(), nil
}

// Preferences updates the report language, the selected comparison options
// or the survey sentences. Nil fields are left unchanged.
type Preferences struct {
	Language   *string  `json:"language,omitempty"`
	Comparison []string `json:"comparison,omitempty"`
	Survey     []string `json:"survey,omitempty"`
}

func (s *Service) SetPreferences(ctx context.Context, id string, p Preferences) (Snapshot, error) {
	if id == "" {
		return Snapshot{}, ErrMissingID
	}
	st := s.state(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := s.ensureLoaded(ctx, id, st); err != nil {
		return Snapshot{}, &StageError{Stage: "load", Err: err}
	}
	if p.Language != nil {
		st.snap.Language = strings.TrimSpace(*p.Language)
	}
	if p.Comparison != nil {
		st.snap.Comparison = append([]string(nil), p.Comparison...)
	}
	if p.Survey != nil {
		survey := make([]string, 0, len(p.Survey))
		for _, line := range p.Survey {
			if line = strings.TrimSpace(line); line != "" {
				survey = append(survey, line)
			}
		}
		if len(survey) > s.opts.SurveyLimit {
			survey = survey[:s.opts.SurveyLimit]
		}
		st.snap.Survey = survey
	}
	s.schedule(id, st)
	return st.copySnapshot(), nil
}

func (s *Service) schedule(id string, st *state) {
	if err := st.saver.Schedule(s.persist(id, st)); err != nil {
		s.log.Warn("autosave not scheduled", "session", id, "err", err)
	}
}

// persist writes whatever the session holds when the save runs.
func (s *Service) persist(id string, st *state) autosave.SaveFunc {
	return func(ctx context.Context) error {
		st.mu.Lock()
		snap := st.copySnapshot()
		st.mu.Unlock()

		errs := []error{
			s.store.SetJSON(ctx, id, store.KeyAnswers, snap.Answers),
			s.store.SetJSON(ctx, id, store.KeySimulatedAnswers, Summaries(snap.Answers)),
			s.store.SetJSON(ctx, id, store.KeyUnifiedSchema, canon.Schema()),
			s.store.SetString(ctx, id, store.KeyLastUpdate, snap.UpdatedAt.UTC().Format(time.RFC3339)),
		}
		if snap.Language != "" {
			errs = append(errs, s.store.SetString(ctx, id, store.KeyLanguage, snap.Language))
		}
		if snap.Comparison != nil {
			errs = append(errs, s.store.SetJSON(ctx, id, store.KeyComparison, snap.Comparison))
		}
		if snap.Survey != nil {
			errs = append(errs, s.store.SetJSON(ctx, id, store.KeySurveyData, snap.Survey))
		}
		if err := errors.Join(errs...); err != nil {
			return &StageError{Stage: "persist", Err: err}
		}
		return nil
	}
}

// Flush writes the session's pending save now.
func (s *Service) Flush(ctx context.Context, id string) error {
	st, ok := s.cached(id)
	if !ok {
		return nil
	}
	return st.saver.Flush(ctx)
}

// Gate is the completeness verdict plus what still blocks generation.
type Gate struct {
	Report  sections.Report `json:"report"`
	Missing []string        `json:"missingForGeneration"`
	Summary string          `json:"summary"`
	Ready   bool            `json:"ready"`
}

func (s *Service) Completeness(ctx context.Context, id string) (Gate, error) {
	snap, err := s.Load(ctx, id)
	if err != nil {
		return Gate{}, err
	}
	return gateFor(snap), nil
}

func gateFor(snap Snapshot) Gate {
	missing := sections.MissingForGeneration(snap.Answers, snap.Completeness)
	if missing == nil {
		missing = []string{}
	}
	return Gate{
		Report:  snap.Completeness,
		Missing: missing,
		Summary: sections.MissingSummary(missing),
		Ready:   len(missing) == 0,
	}
}

// Financials is the projection for one session.
type Financials struct {
	Analysis   finance.Analysis   `json:"analysis"`
	Statements finance.Statements `json:"statements"`
}

// Analyze recomputes the financial projection from the current answers.
func (s *Service) Analyze(ctx context.Context, id, lang string) (Financials, error) {
	ctx, span := tracer.Start(ctx, "session.analyze")
	defer span.End()

	snap, err := s.Load(ctx, id)
	if err != nil {
		return Financials{}, err
	}
	if lang == "" {
		lang = languageOr(snap.Language)
	}
	a := finance.AnalyzeAnswers(snap.Answers, snap.Sections)
	return Financials{Analysis: a, Statements: finance.BuildStatements(a, lang)}, nil
}

func languageOr(lang string) string {
	if lang == "" {
		return "en"
	}
	return lang
}

// Watch applies answer changes written by other processes to cached
// sessions until ctx is done. The latest write wins.
func (s *Service) Watch(ctx context.Context) error {
	return s.store.Watch(ctx, func(c store.Change) {
		st, ok := s.cached(c.Session)
		if !ok {
			return
		}
		st.mu.Lock()
		defer st.mu.Unlock()
		if !st.loaded {
			return
		}
		switch c.Key {
		case store.KeyAnswers:
			answers := map[string]any{}
			if c.NewValue != nil {
				if err := json.Unmarshal([]byte(*c.NewValue), &answers); err != nil {
					s.log.Warn("ignoring malformed answers change", "session", c.Session, "err", err)
					return
				}
			}
			st.apply(canon.CanonicalizeAnswers(answers), s.clock.Now())
		case store.KeyLanguage:
			st.snap.Language = ""
			if c.NewValue != nil {
				st.snap.Language = strings.TrimSpace(*c.NewValue)
			}
		case store.KeyComparison:
			var cmp []string
			if c.NewValue != nil {
				_ = json.Unmarshal([]byte(*c.NewValue), &cmp)
			}
			st.snap.Comparison = cmp
		}
	})
}

// Close flushes every pending save and stops the schedulers.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	states := make([]*state, 0, len(s.sessions))
	for _, st := range s.sessions {
		states = append(states, st)
	}
	s.mu.Unlock()

	var errs []error
	for _, st := range states {
		errs = append(errs, st.saver.Stop(ctx))
	}
	return errors.Join(errs...)
}
