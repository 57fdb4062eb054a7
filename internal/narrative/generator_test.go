package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/feasibility-study/internal/canon"
	"github.com/joelkehle/feasibility-study/internal/finance"
	"github.com/joelkehle/feasibility-study/internal/payload"
	"github.com/joelkehle/feasibility-study/internal/sections"
)

// scriptedCaller answers by inspecting the prompt, so concurrent chunk
// requests stay deterministic.
type scriptedCaller struct {
	mu      sync.Mutex
	prompts []string
	extras  [][]string
	respond func(prompt string) (string, error)
}

func (s *scriptedCaller) GenerateJSON(_ context.Context, prompt string, extra []string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.extras = append(s.extras, extra)
	s.mu.Unlock()
	return s.respond(prompt)
}

func kind(prompt string) string {
	order := prompt[strings.Index(prompt, "Required section order: "):]
	order = order[:strings.Index(order, "\n")]
	switch {
	case strings.HasSuffix(order, "1-1, 1-2, 1-3, 1-4, 1-5, 1-6, 1-7"):
		return "3:0"
	case strings.HasSuffix(order, "1-8, 1-9, 1-10, 1-11, 1-12, 1-13, 1-14"):
		return "3:1"
	case strings.HasSuffix(order, "1-15, 1-16, 1-17, 1-18, 1-19") && !strings.Contains(order, "1-14"):
		return "3:2"
	case strings.HasSuffix(order, "1-9, 1-10"):
		return "2:0"
	case strings.Contains(order, ": 1-11,"):
		return "2:1"
	case strings.Contains(prompt, `"requestedOrder"`):
		return "subset"
	}
	return "full"
}

func reportJSON(title string, keywords []string, ids ...string) string {
	secs := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		secs = append(secs, map[string]any{"id": id, "title": "Model title " + id, "content": "Text for " + id})
	}
	raw, _ := json.Marshal(map[string]any{
		"title":            title,
		"executiveSummary": "Too short.",
		"sections":         secs,
		"keywords":         keywords,
	})
	return string(raw)
}

func testPayload(t *testing.T) payload.Payload {
	t.Helper()
	answers := canon.CanonicalizeAnswers(map[string]any{
		"project-name":   "Corner Bakery",
		"project-sector": "Food",
		"market-size":    "100000",
		"tax-rate":       "10",
	})
	s := sections.Build(answers)
	a := finance.AnalyzeAnswers(answers, s)
	return payload.Assemble(payload.Request{
		Answers:    answers,
		Sections:   s,
		Analysis:   &a,
		Comparison: []string{"stocks"},
		Now:        time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	})
}

func newTestGenerator(c LLMCaller, attempts int) *Generator {
	g := NewGenerator(c, Options{Attempts: attempts}, nil)
	g.sleep = func(context.Context, time.Duration) error { return nil }
	return g
}

func TestGenerateSubsetThenFull(t *testing.T) {
	c := &scriptedCaller{respond: func(p string) (string, error) {
		if kind(p) == "subset" {
			return reportJSON("Subset", nil, "1-1"), nil
		}
		return "```json\n" + reportJSON("Full", []string{"bakery"}, "1-2", "1-1", "1-18") + "\n```", nil
	}}
	g := newTestGenerator(c, 3)

	r, trace, err := g.Generate(context.Background(), Request{Payload: testPayload(t), Context: []string{"Project Name: Corner Bakery"}})
	require.NoError(t, err)
	assert.Equal(t, Trace{Initial: "subset", Final: "full", Calls: 2}, trace)
	assert.Equal(t, "Full", r.Title)
	assert.Equal(t, []string{"Project Name: Corner Bakery"}, c.extras[0])

	require.Len(t, r.Sections, 19)
	for i, s := range r.Sections {
		assert.Equal(t, payload.SectionIDs[i], s.ID)
		assert.Equal(t, payload.SectionTitles[s.ID], s.Title)
	}
	assert.Equal(t, "Text for 1-1", r.Sections[0].Content)
	assert.Equal(t, 3, r.Sections[0].WordCount)
	assert.Empty(t, r.Sections[2].Content)
	assert.NotNil(t, r.Sections[2].Tables)

	fin := r.Section("1-18")
	require.NotNil(t, fin)
	require.NotEmpty(t, fin.Tables)
	assert.Equal(t, "Income Statement", fin.Tables[0].Title)
	require.NotNil(t, r.Financial)

	assert.Equal(t, defaultExecutiveSummary, r.ExecutiveSummary)
	require.NotNil(t, r.Comparison)
	assert.Equal(t, "Stocks", r.Comparison.Table.Rows[0][0])
	require.NotNil(t, r.CoverPage)
	assert.Equal(t, "Corner Bakery", r.CoverPage.ProjectName)
}

func TestGenerateFallsBackToChunks(t *testing.T) {
	c := &scriptedCaller{respond: func(p string) (string, error) {
		switch kind(p) {
		case "subset", "full":
			return "I cannot produce JSON today.", nil
		case "3:0":
			return reportJSON("Part one", []string{"a", "b"}, "1-1", "1-2", "1-3", "1-4", "1-5", "1-6", "1-7"), nil
		case "3:1":
			return reportJSON("ignored", []string{"b", "c"}, "1-7", "1-8", "1-9", "1-10", "1-11", "1-12", "1-13", "1-14"), nil
		case "3:2":
			return reportJSON("ignored", nil, "1-15", "1-16", "1-17", "1-18", "1-19"), nil
		case "2:0":
			return "", nil
		}
		return reportJSON("Second half", nil, "1-11"), nil
	}}
	g := newTestGenerator(c, 1)

	r, trace, err := g.Generate(context.Background(), Request{Payload: testPayload(t)})
	require.NoError(t, err)
	assert.Equal(t, "chunked-3", trace.Initial)
	assert.Equal(t, "chunked-3", trace.Final)
	assert.GreaterOrEqual(t, trace.Calls, int64(1+3+1+1+3))
	assert.Equal(t, "Part one", r.Title)
	assert.Equal(t, []string{"a", "b", "c"}, r.Keywords)
	assert.Equal(t, "Text for 1-7", r.Section("1-7").Content)
	for _, s := range r.Sections {
		assert.Equal(t, "Text for "+s.ID, s.Content)
	}

	for _, p := range c.prompts {
		switch kind(p) {
		case "3:0":
			assert.Contains(t, p, "Include all main fields")
			assert.Contains(t, p, "Exclude the comparison object")
		case "3:2":
			assert.Contains(t, p, `Include only the "sections" field.`)
			assert.Contains(t, p, "Include the comparison object only if")
		}
	}
}

func TestGenerateKeepsFirstRoundWhenSecondFails(t *testing.T) {
	c := &scriptedCaller{respond: func(p string) (string, error) {
		if kind(p) == "subset" {
			return reportJSON("Subset", nil, "1-1"), nil
		}
		return "", errors.New("status code: 400 bad request")
	}}
	r, trace, err := newTestGenerator(c, 3).Generate(context.Background(), Request{Payload: testPayload(t)})
	require.NoError(t, err)
	assert.Equal(t, "initial", trace.Final)
	assert.Equal(t, "Subset", r.Title)
	assert.Len(t, r.Sections, 19)
}

func TestGenerateUnavailable(t *testing.T) {
	c := &scriptedCaller{respond: func(string) (string, error) { return "no json", nil }}
	_, trace, err := newTestGenerator(c, 2).Generate(context.Background(), Request{Payload: testPayload(t)})
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Empty(t, trace.Final)

	_, _, err = NewGenerator(nil, Options{}, nil).Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestCallRetriesServerErrorsWithBackoff(t *testing.T) {
	var n int
	c := &scriptedCaller{respond: func(string) (string, error) {
		n++
		if n == 1 {
			return "", errors.New("chat completions request failed: status code: 503")
		}
		return `{"title":"ok","sections":[]}`, nil
	}}
	g := newTestGenerator(c, 3)
	var slept []time.Duration
	g.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	run := &runner{g: g, lang: "en"}
	r, err := run.call(context.Background(), "full", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", r.Title)
	assert.Equal(t, []time.Duration{time.Second}, slept)
}

func TestCallAppendsFeedbackAfterBadJSON(t *testing.T) {
	responses := []string{"", "not json", `{"title":"third"}`}
	c := &scriptedCaller{respond: func(string) (string, error) {
		out := responses[0]
		responses = responses[1:]
		return out, nil
	}}
	run := &runner{g: newTestGenerator(c, 3), lang: "en"}
	r, err := run.call(context.Background(), "subset", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "third", r.Title)
	require.Len(t, c.prompts, 3)
	assert.Equal(t, "prompt", c.prompts[0])
	assert.Contains(t, c.prompts[1], "previous response was empty")
	assert.Contains(t, c.prompts[2], "was not valid JSON")
}

func TestSplitSections(t *testing.T) {
	three := splitSections(3)
	require.Len(t, three, 3)
	assert.Len(t, three[0], 7)
	assert.Len(t, three[1], 7)
	assert.Equal(t, []string{"1-15", "1-16", "1-17", "1-18", "1-19"}, three[2])

	two := splitSections(2)
	require.Len(t, two, 2)
	assert.Equal(t, "1-10", two[0][len(two[0])-1])
	assert.Equal(t, "1-11", two[1][0])
}

func TestSubsetOf(t *testing.T) {
	full, err := payload.FitToLimit(testPayload(t), payload.DefaultBudget)
	require.NoError(t, err)
	sub := subsetOf(full)

	assert.Contains(t, sub, "sectionInputs")
	assert.Contains(t, sub, "requestedOrder")
	assert.NotContains(t, sub, "rawSurvey")
	assert.NotContains(t, sub, "financial")
	cover := sub["coverPage"].(map[string]any)
	assert.Equal(t, "Corner Bakery", cover["projectName"])
	assert.Equal(t, []any{"stocks"}, sub["comparison"])
}

func TestBuildPrompt(t *testing.T) {
	p, err := BuildPrompt("fr", "Focus on <b>exports</b>.", map[string]any{"k": "v"}, PromptOptions{SectionIDs: []string{"1-3", "1-4"}})
	require.NoError(t, err)
	assert.Contains(t, p, "in fr,")
	assert.Contains(t, p, "Required section order: 1-3, 1-4\n")
	assert.Contains(t, p, "Additional guidance:\nFocus on exports.")
	assert.Contains(t, p, `"language": "fr"`)
	assert.Contains(t, p, `"k": "v"`)
	assert.Contains(t, p, "1-19: Additional Investment Requirements")
}
