package qa

import (
	"fmt"

	"github.com/sells-group/market-scan/internal/model"
)

const (
	minDifferentiators = 5
	minMissingFeatures = 3
)

// SpecificityGate enforces minimum cardinality on the sections that carry
// the brief's substance.
type SpecificityGate struct{}

func (SpecificityGate) Name() string { return "specificity" }

func (SpecificityGate) Check(brief *model.DifferentiationBrief, _ *model.SignalsResult) []model.QAIssue {
	var issues []model.QAIssue

	if len(brief.Differentiators) < minDifferentiators {
		issues = append(issues, model.QAIssue{
			Gate:     "specificity",
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("only %d differentiators provided; minimum is %d", len(brief.Differentiators), minDifferentiators),
			Location: "differentiators",
		})
	}

	if len(brief.MissingFeatures) < minMissingFeatures {
		issues = append(issues, model.QAIssue{
			Gate:     "specificity",
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("only %d missing features provided; minimum is %d", len(brief.MissingFeatures), minMissingFeatures),
			Location: "missingFeatures",
		})
	}

	return issues
}
