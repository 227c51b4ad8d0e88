// Package llm generates differentiation briefs from a signal snapshot.
// It wraps the Anthropic messages API behind a small Generator interface
// and ships a deterministic mock provider for development and tests.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-scan/internal/model"
)

// Request carries everything the generator needs for one attempt. Reviews
// are threaded explicitly from the fetch phase; providers must not read
// them from any shared state.
type Request struct {
	Signals          *model.SignalsResult
	ScanID           string
	Options          model.ScanOptions
	ReviewsByListing map[int64][]string
	// PreviousIssues holds the QA failures from the first attempt when a
	// regeneration is requested, so the retry prompt can address them.
	PreviousIssues []model.QAIssue
}

// Generator produces a differentiation brief for a signal snapshot.
type Generator interface {
	GenerateBrief(ctx context.Context, req Request) (*model.DifferentiationBrief, error)
}

// ParseBrief strictly decodes generator output into a brief. Markdown
// fences are tolerated; anything else that fails to decode is malformed
// output and must be treated as a generation failure by the caller.
func ParseBrief(raw []byte) (*model.DifferentiationBrief, error) {
	cleaned := stripFences(raw)

	dec := json.NewDecoder(bytes.NewReader(cleaned))
	dec.DisallowUnknownFields()

	var brief model.DifferentiationBrief
	if err := dec.Decode(&brief); err != nil {
		return nil, eris.Wrap(err, "llm: decode brief")
	}
	if brief.Version == "" {
		return nil, eris.New("llm: brief missing version")
	}
	if brief.Differentiators == nil || brief.MissingFeatures == nil {
		return nil, eris.New("llm: brief missing required sections")
	}
	return &brief, nil
}

func stripFences(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return []byte(strings.TrimSpace(s))
}
