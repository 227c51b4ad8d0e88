package qa

import (
	"fmt"
	"regexp"

	"github.com/sells-group/market-scan/internal/model"
)

// forbiddenPatterns assert market facts this system never measured:
// sales counts, revenue, search volume, SEO rank. A brief asserting any
// of them is hallucinating authority.
var forbiddenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)search\s+volume`),
	regexp.MustCompile(`(?i)monthly\s+revenue`),
	regexp.MustCompile(`(?i)annual\s+revenue`),
	regexp.MustCompile(`(?i)sales\s+velocity`),
	regexp.MustCompile(`(?i)\$\d+\s*(?:per\s+month|/month|pm)`),
	regexp.MustCompile(`(?i)\d+\s+sales`),
	regexp.MustCompile(`(?i)avg(?:erage)?\s+(?:monthly\s+)?(?:revenue|sales|income)`),
	regexp.MustCompile(`(?i)earns?\s+\$\d+`),
	regexp.MustCompile(`(?i)makes?\s+\$\d+`),
	regexp.MustCompile(`(?i)generates?\s+\$\d+`),
	regexp.MustCompile(`(?i)keyword\s+rank`),
	regexp.MustCompile(`(?i)seo\s+score`),
}

// ForbiddenClaimGate rejects unverifiable market-fact assertions.
type ForbiddenClaimGate struct{}

func (ForbiddenClaimGate) Name() string { return "forbiddenClaim" }

func (ForbiddenClaimGate) Check(brief *model.DifferentiationBrief, _ *model.SignalsResult) []model.QAIssue {
	var issues []model.QAIssue
	for _, field := range collectStrings(brief) {
		for _, pattern := range forbiddenPatterns {
			if pattern.MatchString(field.Value) {
				issues = append(issues, model.QAIssue{
					Gate:     "forbiddenClaim",
					Severity: model.SeverityError,
					Message:  fmt.Sprintf("forbidden claim matching %s found in brief", pattern),
					Location: field.Path,
				})
				break
			}
		}
	}
	return issues
}
