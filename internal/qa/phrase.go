package qa

import (
	"fmt"
	"strings"

	"github.com/sells-group/market-scan/internal/model"
)

// genericPhrases is the deny-list of marketing filler. A brief built on
// measured signals has no reason to reach for any of these.
var genericPhrases = []string{
	"unique",
	"high quality",
	"high-quality",
	"stand out",
	"stand-out",
	"exceptional",
	"premium experience",
	"best-in-class",
	"best in class",
	"one-of-a-kind",
	"one of a kind",
	"unparalleled",
	"world-class",
	"top-notch",
	"top notch",
	"amazing",
	"incredible",
	"outstanding",
	"superior quality",
}

// GenericPhraseGate flags deny-listed phrases anywhere in the brief.
// Each string field contributes at most one issue.
type GenericPhraseGate struct{}

func (GenericPhraseGate) Name() string { return "genericPhrase" }

func (GenericPhraseGate) Check(brief *model.DifferentiationBrief, _ *model.SignalsResult) []model.QAIssue {
	var issues []model.QAIssue
	for _, field := range collectStrings(brief) {
		lower := strings.ToLower(field.Value)
		for _, phrase := range genericPhrases {
			if strings.Contains(lower, phrase) {
				issues = append(issues, model.QAIssue{
					Gate:     "genericPhrase",
					Severity: model.SeverityError,
					Message:  fmt.Sprintf("generic phrase %q found in brief", phrase),
					Location: field.Path,
				})
				break
			}
		}
	}
	return issues
}
