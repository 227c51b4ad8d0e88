package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// systemPrompt pins the generator to grounded, schema-exact output. The
// QA gates enforce the same rules after the fact.
const systemPrompt = `You are a market structure analyst for digital product sellers on Etsy.
Your job is to analyse a structured snapshot of Etsy search results and produce a differentiation brief
to help a seller build a product that outperforms the current market.

RULES (non-negotiable):
1. Every differentiator MUST cite exactly one field from the signals JSON provided.
   Format: supportingSignal = "<topLevel>.<subField>" e.g. "titleSameness.topPhrases"
2. You MUST NOT make any claims about search volume, revenue, sales velocity, or seller income.
   These are unknown to you.
3. You MUST NOT use generic phrases: "unique", "high quality", "stand out", "exceptional",
   "premium experience", "best-in-class", "one-of-a-kind". Be specific.
4. Produce EXACTLY the JSON schema shown. No extra keys, no markdown fences. Raw JSON only.
5. missingFeatures: minimum 3 entries.
6. differentiators: minimum 5 entries. Each must be concrete and cite observable data.
7. premiumLadder: exactly 3 tiers - good, better, best.
8. riskFlags: include at least one green flag (opportunity).
9. buyerFrictions: if reviews are provided in the input, extract real frictions. If not, return [].
10. Base your analysis ONLY on the signals data provided. Do not invent external market facts.`

// BuildPrompt assembles the system prompt and user message for one
// generation attempt.
func BuildPrompt(req Request) (system string, user string, err error) {
	signalsJSON, err := json.MarshalIndent(req.Signals, "", "  ")
	if err != nil {
		return "", "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "KEYWORD: %q\n", req.Signals.Keyword)
	fmt.Fprintf(&b, "LISTING COUNT: %d\n", req.Signals.ListingCount)
	fmt.Fprintf(&b, "SCAN DATE: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "REVIEWS ENABLED: %t\n", req.Options.IncludeReviews)

	if len(req.ReviewsByListing) > 0 {
		b.WriteString("\n--- BUYER REVIEWS BY LISTING ---\n")
		reviewsJSON, jerr := json.MarshalIndent(req.ReviewsByListing, "", "  ")
		if jerr != nil {
			return "", "", jerr
		}
		b.Write(reviewsJSON)
		b.WriteString("\n")
	}

	if len(req.PreviousIssues) > 0 {
		b.WriteString("\n--- PREVIOUS ATTEMPT FAILED QA ---\n")
		b.WriteString("Your previous brief was rejected for these reasons. Fix every one of them:\n")
		for _, issue := range req.PreviousIssues {
			fmt.Fprintf(&b, "- [%s/%s] %s\n", issue.Gate, issue.Severity, issue.Message)
		}
	}

	b.WriteString("\n--- SIGNALS JSON ---\n")
	b.Write(signalsJSON)
	b.WriteString("\n\n--- TASK ---\n")
	b.WriteString("Produce the DifferentiationBrief JSON object. No preamble, no markdown fences. Only raw JSON.\n\n")
	fmt.Fprintf(&b, "Required schema:\n%s\n", briefSchema(req))

	return systemPrompt, b.String(), nil
}

func briefSchema(req Request) string {
	return fmt.Sprintf(`{
  "version": "1.0",
  "scanId": %q,
  "keyword": %q,
  "generatedAt": "<ISO timestamp>",
  "marketStandard": {
    "summary": "<string, min 20 chars>",
    "typicalFormats": ["<string>"],
    "typicalPriceRange": "<string>"
  },
  "differentiators": [
    {
      "id": "D1",
      "claim": "<specific, actionable, min 20 chars>",
      "supportingSignal": "<topLevel.subField from signals JSON>",
      "evidence": "<exact data point cited, min 10 chars>"
    }
  ],
  "missingFeatures": [
    {
      "feature": "<string>",
      "rationale": "<why it is missing and valuable, min 10 chars>",
      "supportingSignal": "<topLevel.subField from signals JSON>"
    }
  ],
  "buyerFrictions": [
    {
      "friction": "<string>",
      "severity": "high|medium|low",
      "sourceReviews": ["<quoted review text>"]
    }
  ],
  "winningBuildSpec": {
    "coreProblemSolved": "<string>",
    "mustHaveFeatures": ["<string>"],
    "mustAvoid": ["<string>"]
  },
  "premiumLadder": [
    { "tier": "good", "label": "<string>", "features": ["<string>"], "suggestedPriceRange": "<string>" },
    { "tier": "better", "label": "<string>", "features": ["<string>"], "suggestedPriceRange": "<string>" },
    { "tier": "best", "label": "<string>", "features": ["<string>"], "suggestedPriceRange": "<string>" }
  ],
  "listingAngle": {
    "headline": "<string>",
    "subheadline": "<string>",
    "imageCallouts": ["<string>", "<string>", "<string>"]
  },
  "riskFlags": [
    { "flag": "<string>", "severity": "red|yellow|green", "mitigation": "<string>" }
  ]
}`, req.ScanID, req.Signals.Keyword)
}
