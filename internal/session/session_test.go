package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/feasibility-study/internal/narrative"
	"github.com/joelkehle/feasibility-study/internal/store"
)

type fixedCaller struct {
	mu      sync.Mutex
	prompts int
	extra   []string
}

func (c *fixedCaller) GenerateJSON(_ context.Context, _ string, extra []string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts++
	c.extra = append([]string(nil), extra...)
	return `{"title":"Bakery Study","sections":[{"id":"1-1","title":"Intro","content":"A bakery in town."}]}`, nil
}

func completeAnswers() map[string]any {
	return map[string]any{
		"projectName":      "Bakery",
		"projectType":      "Retail",
		"projectIdea":      "Bread",
		"marketSize":       1000.0,
		"competitorsCount": 0.0,
		"marketingCost":    0.0,
		"equipmentList":    "Oven: 500",
		"totalCapital":     "50000",
	}
}

func newTestService(t *testing.T, gen *narrative.Generator) (*Service, *store.Safe) {
	t.Helper()
	safe := store.NewSafe(store.NewMemoryStore(), nil, store.WithBroadcaster(store.NewLocalBroadcaster()))
	svc := NewService(safe, gen, nil, Options{Debounce: time.Hour})
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return svc, safe
}

func TestSaveCanonicalizesAndPersistsOnFlush(t *testing.T) {
	svc, safe := newTestService(t, nil)
	ctx := context.Background()

	snap, err := svc.Save(ctx, "s1", map[string]any{"market-size": "1000", "project-name": "Kiosk"})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, snap.Answers["marketSize"])
	assert.Equal(t, "Kiosk", snap.Answers["projectName"])

	var stored map[string]any
	assert.False(t, safe.GetJSON(ctx, "s1", store.KeyAnswers, &stored), "nothing written before the debounce")

	require.NoError(t, svc.Flush(ctx, "s1"))
	require.True(t, safe.GetJSON(ctx, "s1", store.KeyAnswers, &stored))
	assert.Equal(t, "Kiosk", stored["projectName"])

	var mirror map[string]string
	require.True(t, safe.GetJSON(ctx, "s1", store.KeySimulatedAnswers, &mirror))
	assert.Equal(t, map[string]string{"marketSize": "1,000", "projectName": "Kiosk"}, mirror)

	var schema struct {
		Version int `json:"version"`
	}
	require.True(t, safe.GetJSON(ctx, "s1", store.KeyUnifiedSchema, &schema))
	assert.Equal(t, 1, schema.Version)
	assert.NotEmpty(t, safe.GetString(ctx, "s1", store.KeyLastUpdate, ""))
}

func TestSaveNeverErasesSavedValues(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Save(ctx, "s1", map[string]any{"projectName": "Kiosk", "marketSize": 500.0})
	require.NoError(t, err)
	snap, err := svc.Save(ctx, "s1", map[string]any{"projectName": "  ", "marketSize": nil, "city": "Rabat"})
	require.NoError(t, err)
	assert.Equal(t, "Kiosk", snap.Answers["projectName"])
	assert.Equal(t, 500.0, snap.Answers["marketSize"])
	assert.Equal(t, "Rabat", snap.Answers["city"])
}

func TestSaveSingleAgeBoundKeepsSavedOther(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	snap, err := svc.Save(ctx, "s1", map[string]any{"min-age": 25.0, "max-age": 40.0})
	require.NoError(t, err)
	require.Equal(t, "25 - 40", snap.Answers["targetAge"])

	snap, err = svc.Save(ctx, "s1", map[string]any{"min-age": 30.0})
	require.NoError(t, err)
	assert.Equal(t, "30 - 40", snap.Answers["targetAge"])

	snap, err = svc.Save(ctx, "s1", map[string]any{"max-age": "45"})
	require.NoError(t, err)
	assert.Equal(t, "30 - 45", snap.Answers["targetAge"])
	assert.NotContains(t, snap.Answers, "targetAgeMin")
	assert.NotContains(t, snap.Answers, "targetAgeMax")
}

func TestSummariesReadable(t *testing.T) {
	got := Summaries(map[string]any{
		"marketSize": 1250000.5,
		"marketGap":  true,
		"city":       "  Rabat ",
		"blank":      "",
		"features":   []any{"Organic", "", "Local"},
		"staffTable": []any{
			map[string]any{"jobTitle": "Baker", "employeeCount": 2.0},
			map[string]any{"jobTitle": "Cashier", "monthlySalary": nil},
		},
	})
	assert.Equal(t, map[string]string{
		"marketSize": "1,250,000.5",
		"marketGap":  "Yes",
		"city":       "Rabat",
		"features":   "Organic, Local",
		"staffTable": "employeeCount: 2, jobTitle: Baker; jobTitle: Cashier",
	}, got)
}

func TestLoadPrefersAnswersOverMirror(t *testing.T) {
	svc, safe := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, safe.SetJSON(ctx, "s1", store.KeySimulatedAnswers, map[string]string{"marketSize": "1,000", "city": "Fes"}))
	require.NoError(t, safe.SetJSON(ctx, "s1", store.KeyAnswers, map[string]any{"marketSize": 750.0}))

	snap, err := svc.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 750.0, snap.Answers["marketSize"])
	assert.Equal(t, "Fes", snap.Answers["city"], "mirror fills keys the answers lack")
}

func TestSaveRequiresID(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Save(context.Background(), "", map[string]any{"a": 1})
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestLoadLayersStoredSources(t *testing.T) {
	svc, safe := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, safe.SetJSON(ctx, "s1", store.KeyAnswers, map[string]any{"projectName": "A", "city": "Casablanca"}))
	require.NoError(t, safe.SetJSON(ctx, "s1", store.KeyStartForm, map[string]any{"projectName": "B", "projectSector": "Food"}))
	require.NoError(t, safe.SetString(ctx, "s1", "projectName", "C"))
	require.NoError(t, safe.SetJSON(ctx, "s1", store.KeyUserInfo, map[string]any{"userName": "Sam"}))
	require.NoError(t, safe.SetString(ctx, "s1", store.KeyLanguage, "fr"))
	require.NoError(t, safe.SetJSON(ctx, "s1", store.KeyComparison, []string{"Deposit"}))

	snap, err := svc.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "C", snap.Answers["projectName"])
	assert.Equal(t, "Casablanca", snap.Answers["city"])
	assert.Equal(t, "Food", snap.Answers["projectSector"])
	assert.Equal(t, "Sam", snap.Answers["userName"])
	assert.Equal(t, "fr", snap.Language)
	assert.Equal(t, []string{"Deposit"}, snap.Comparison)
}

func TestSetPreferencesCapsSurvey(t *testing.T) {
	safe := store.NewSafe(store.NewMemoryStore(), nil)
	svc := NewService(safe, nil, nil, Options{Debounce: time.Hour, SurveyLimit: 2})
	ctx := context.Background()

	lang := "ar"
	snap, err := svc.SetPreferences(ctx, "s1", Preferences{
		Language: &lang,
		Survey:   []string{"one", " ", "two", "three"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, snap.Survey)
	assert.Equal(t, "ar", snap.Language)

	require.NoError(t, svc.Close(ctx))
	var survey []string
	require.True(t, safe.GetJSON(ctx, "s1", store.KeySurveyData, &survey))
	assert.Equal(t, []string{"one", "two"}, survey)
	assert.Equal(t, "ar", safe.GetString(ctx, "s1", store.KeyLanguage, ""))
}

func TestCompletenessGate(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	gate, err := svc.Completeness(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, gate.Ready)
	assert.Equal(t, "Cover Page", gate.Missing[0])
	assert.Contains(t, gate.Summary, "Market")

	_, err = svc.Save(ctx, "s1", completeAnswers())
	require.NoError(t, err)
	gate, err = svc.Completeness(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, gate.Ready)
	assert.Empty(t, gate.Missing)
}

func TestGenerateReportBlockedWhenIncomplete(t *testing.T) {
	caller := &fixedCaller{}
	svc, _ := newTestService(t, narrative.NewGenerator(caller, narrative.Options{}, nil))
	ctx := context.Background()

	_, err := svc.Save(ctx, "s1", map[string]any{"projectName": "Bakery"})
	require.NoError(t, err)
	_, err = svc.GenerateReport(ctx, "s1", ReportOptions{})
	var inc *IncompleteError
	require.True(t, errors.As(err, &inc), "got %v", err)
	assert.Contains(t, inc.Missing, "Market")
	assert.Zero(t, caller.prompts)
}

func TestGenerateReport(t *testing.T) {
	caller := &fixedCaller{}
	svc, safe := newTestService(t, narrative.NewGenerator(caller, narrative.Options{}, nil))
	ctx := context.Background()

	_, err := svc.Save(ctx, "s1", completeAnswers())
	require.NoError(t, err)
	_, err = svc.SetPreferences(ctx, "s1", Preferences{Survey: []string{"Customers want fresh bread."}})
	require.NoError(t, err)

	res, err := svc.GenerateReport(ctx, "s1", ReportOptions{Context: []string{"Extra note"}})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "s1", res.SessionID)
	assert.Equal(t, "subset", res.Trace.Initial)
	assert.Equal(t, "full", res.Trace.Final)
	require.Len(t, res.Report.Sections, 19)
	assert.Equal(t, "A bakery in town.", res.Report.Sections[0].Content)
	require.NotNil(t, res.Report.Financial)

	joined := strings.Join(caller.extra, "\n")
	assert.Contains(t, joined, "Project Name: Bakery")
	assert.Contains(t, joined, "Customers want fresh bread.")
	assert.Equal(t, "Extra note", caller.extra[len(caller.extra)-1])

	var stored map[string]any
	assert.True(t, safe.GetJSON(ctx, "s1", store.KeyAnswers, &stored), "pending save flushed before generation")
}

func TestGenerateReportWithoutGenerator(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Save(ctx, "s1", completeAnswers())
	require.NoError(t, err)

	_, err = svc.GenerateReport(ctx, "s1", ReportOptions{})
	assert.True(t, narrative.IsUnavailable(err))
	var stage *StageError
	require.True(t, errors.As(err, &stage))
	assert.Equal(t, "generate", stage.Stage)
}

func TestAnalyze(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Save(ctx, "s1", completeAnswers())
	require.NoError(t, err)

	fin, err := svc.Analyze(ctx, "s1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, fin.Statements.Tables())
}

func TestWatchAppliesForeignChanges(t *testing.T) {
	backend := store.NewMemoryStore()
	bc := store.NewLocalBroadcaster()
	local := store.NewSafe(backend, nil, store.WithBroadcaster(bc))
	remote := store.NewSafe(backend, nil, store.WithBroadcaster(bc))
	svc := NewService(local, nil, nil, Options{Debounce: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := svc.Save(ctx, "s1", map[string]any{"projectName": "Local"})
	require.NoError(t, err)
	require.NoError(t, svc.Watch(ctx))

	require.NoError(t, remote.SetJSON(ctx, "s1", store.KeyAnswers, map[string]any{"projectName": "Remote"}))
	require.NoError(t, remote.SetString(ctx, "s1", store.KeyLanguage, "es"))

	snap, err := svc.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Remote", snap.Answers["projectName"])
	assert.Equal(t, "es", snap.Language)

	require.NoError(t, local.SetJSON(ctx, "s2", store.KeyAnswers, map[string]any{"projectName": "Ignored"}))
	_, cached := svc.cached("s2")
	assert.False(t, cached, "changes for unknown sessions are ignored")
}
