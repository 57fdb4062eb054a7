package session

import (
	"context"
	"encoding/json"

	"github.com/joelkehle/feasibility-study/internal/merge"
	"github.com/joelkehle/feasibility-study/internal/store"
)

// startFormOverlayKeys are saved individually by some pages and layered over
// the stored start form.
var startFormOverlayKeys = []string{
	"studyType", "projectName", "projectDescription", "visionMission", "projectType", "specifiedProjectType",
	"projectSector", "country", "city", "area", "fundingMethod", "personalContribution", "loanAmount",
	"interestValue", "currency", "totalCapital", "loanMonths", "targetAudience", "projectStatus", "duration",
	"durationUnit", "projectTaxRate", "taxRate",
}

// recordSource reads one JSON object record. A missing or malformed record
// yields an empty map.
type recordSource struct {
	safe    *store.Safe
	session string
	key     string
}

func (s recordSource) Name() string { return s.key }

func (s recordSource) Answers(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	s.safe.GetJSON(ctx, s.session, s.key, &out)
	return out, nil
}

type startFormSource struct {
	safe    *store.Safe
	session string
}

func (s startFormSource) Name() string { return store.KeyStartForm }

func (s startFormSource) Answers(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	s.safe.GetJSON(ctx, s.session, store.KeyStartForm, &out)
	for _, k := range startFormOverlayKeys {
		raw := s.safe.GetString(ctx, s.session, k, "")
		if raw == "" {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		out[k] = v
	}
	return out, nil
}

// storedSources lists the persisted records in precedence order, lowest
// first: the simulated mirror, saved answers, the start form and user info.
// The mirror holds display text, so it only fills keys the answers lack.
func storedSources(safe *store.Safe, session string) []merge.Source {
	return []merge.Source{
		recordSource{safe: safe, session: session, key: store.KeySimulatedAnswers},
		recordSource{safe: safe, session: session, key: store.KeyAnswers},
		startFormSource{safe: safe, session: session},
		recordSource{safe: safe, session: session, key: store.KeyUserInfo},
	}
}
