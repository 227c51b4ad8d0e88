// Package qa validates generated differentiation briefs against the signal
// snapshot they claim to be grounded in. Each gate is independent and
// contributes zero or more issues; a brief passes when no issue carries
// error severity.
package qa

import (
	"time"

	"github.com/sells-group/market-scan/internal/model"
)

// Gate is a single independent validator over a brief and its signals.
type Gate interface {
	Name() string
	Check(brief *model.DifferentiationBrief, signals *model.SignalsResult) []model.QAIssue
}

// Pipeline is an ordered, fixed composition of gates.
type Pipeline struct {
	gates []Gate
}

// NewPipeline returns the standard gate set: style lint, specificity,
// forbidden claims, grounding.
func NewPipeline() *Pipeline {
	return &Pipeline{
		gates: []Gate{
			GenericPhraseGate{},
			SpecificityGate{},
			ForbiddenClaimGate{},
			GroundingGate{},
		},
	}
}

// Run executes every gate and combines the issues into one QAResult for
// the given attempt number. Passed is derived: no error-severity issue.
func (p *Pipeline) Run(brief *model.DifferentiationBrief, signals *model.SignalsResult, attempt int) model.QAResult {
	var issues []model.QAIssue
	for _, g := range p.gates {
		issues = append(issues, g.Check(brief, signals)...)
	}

	passed := true
	for _, i := range issues {
		if i.Severity == model.SeverityError {
			passed = false
			break
		}
	}

	return model.QAResult{
		Passed:    passed,
		Issues:    issues,
		CheckedAt: time.Now().UTC(),
		Attempt:   attempt,
	}
}
