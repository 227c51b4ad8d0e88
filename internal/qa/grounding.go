package qa

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sells-group/market-scan/internal/model"
)

// GroundingGate verifies that each differentiator's cited signal path
// resolves to a real field of the snapshot. Grounding failures indicate a
// likely hallucination but do not alone block release, so every issue the
// gate emits is a warning; it checks path existence, not that the textual
// claim is accurate.
type GroundingGate struct{}

func (GroundingGate) Name() string { return "grounding" }

func (GroundingGate) Check(brief *model.DifferentiationBrief, signals *model.SignalsResult) []model.QAIssue {
	snapshot := signalFields(signals)

	var issues []model.QAIssue
	for _, diff := range brief.Differentiators {
		location := "differentiators." + diff.ID

		parts := strings.Split(diff.SupportingSignal, ".")
		if len(parts) < 2 {
			issues = append(issues, model.QAIssue{
				Gate:     "grounding",
				Severity: model.SeverityWarning,
				Message:  fmt.Sprintf("differentiator %s: supportingSignal %q is not in topLevel.subField format", diff.ID, diff.SupportingSignal),
				Location: location,
			})
			continue
		}

		topLevel, subField := parts[0], parts[1]
		top, ok := snapshot[topLevel]
		if !ok || top == nil {
			issues = append(issues, model.QAIssue{
				Gate:     "grounding",
				Severity: model.SeverityWarning,
				Message:  fmt.Sprintf("differentiator %s: top-level field %q does not exist in signals", diff.ID, topLevel),
				Location: location,
			})
			continue
		}

		topObj, ok := top.(map[string]any)
		if !ok {
			issues = append(issues, model.QAIssue{
				Gate:     "grounding",
				Severity: model.SeverityWarning,
				Message:  fmt.Sprintf("differentiator %s: field %q has no sub-fields", diff.ID, topLevel),
				Location: location,
			})
			continue
		}
		if sub, ok := topObj[subField]; !ok || sub == nil {
			issues = append(issues, model.QAIssue{
				Gate:     "grounding",
				Severity: model.SeverityWarning,
				Message:  fmt.Sprintf("differentiator %s: sub-field %q not found in signals.%s", diff.ID, subField, topLevel),
				Location: location,
			})
		}
	}
	return issues
}

// signalFields exposes the snapshot under its JSON field names — the names
// the generator cites in supportingSignal paths.
func signalFields(signals *model.SignalsResult) map[string]any {
	raw, err := json.Marshal(signals)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
