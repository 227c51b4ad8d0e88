// Package export renders stored scan artifacts into shareable files:
// a markdown brief for humans and an xlsx listing workbook for
// spreadsheet review.
package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sells-group/market-scan/internal/model"
)

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases a keyword and reduces it to hyphen-separated
// filename-safe runs, capped at 50 characters.
func Slugify(s string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(s), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 50 {
		slug = strings.Trim(slug[:50], "-")
	}
	return slug
}

// MarkdownFilename builds the export filename for a brief.
func MarkdownFilename(keyword string, now time.Time) string {
	return fmt.Sprintf("brief-%s-%s.md", Slugify(keyword), now.UTC().Format("2006-01-02"))
}

// XLSXFilename builds the export filename for a listing workbook.
func XLSXFilename(keyword string, now time.Time) string {
	return fmt.Sprintf("listings-%s-%s.xlsx", Slugify(keyword), now.UTC().Format("2006-01-02"))
}

// BriefMarkdown renders a brief plus its signal snapshot as a markdown
// report.
func BriefMarkdown(brief *model.DifferentiationBrief, signals *model.SignalsResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Differentiation Brief: %s\n\n", brief.Keyword)
	fmt.Fprintf(&b, "- **Scan:** %s\n", brief.ScanID)
	fmt.Fprintf(&b, "- **Generated:** %s\n", brief.GeneratedAt)
	fmt.Fprintf(&b, "- **Listings analyzed:** %d\n\n", signals.ListingCount)

	b.WriteString("## Market Standard\n\n")
	b.WriteString(brief.MarketStandard.Summary + "\n\n")
	if len(brief.MarketStandard.TypicalFormats) > 0 {
		fmt.Fprintf(&b, "- **Typical formats:** %s\n", strings.Join(brief.MarketStandard.TypicalFormats, ", "))
	}
	if brief.MarketStandard.TypicalPriceRange != "" {
		fmt.Fprintf(&b, "- **Typical price range:** %s\n", brief.MarketStandard.TypicalPriceRange)
	}
	b.WriteString("\n")

	b.WriteString("## Market Signals\n\n")
	b.WriteString("| Signal | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Title similarity | %.2f |\n", signals.TitleSameness.AverageSimilarity)
	fmt.Fprintf(&b, "| Top-3 shop share | %.1f%% |\n", signals.Dominance.Top3SharePercent)
	fmt.Fprintf(&b, "| Price p25 / median / p75 | %.2f / %.2f / %.2f |\n",
		signals.PriceBands.P25, signals.PriceBands.Median, signals.PriceBands.P75)
	fmt.Fprintf(&b, "| Distinct format types | %d |\n", signals.FormatSignals.DistinctTypeCount)
	fmt.Fprintf(&b, "| Avg bundle depth | %.1f |\n\n", signals.BundleDepth.AvgIncludesCount)

	b.WriteString("## Differentiators\n\n")
	for _, d := range brief.Differentiators {
		fmt.Fprintf(&b, "### %s. %s\n\n", d.ID, d.Claim)
		fmt.Fprintf(&b, "- **Signal:** `%s`\n", d.SupportingSignal)
		fmt.Fprintf(&b, "- **Evidence:** %s\n\n", d.Evidence)
	}

	b.WriteString("## Missing Features\n\n")
	for _, m := range brief.MissingFeatures {
		fmt.Fprintf(&b, "- **%s** — %s (`%s`)\n", m.Feature, m.Rationale, m.SupportingSignal)
	}
	b.WriteString("\n")

	if len(brief.BuyerFrictions) > 0 {
		b.WriteString("## Buyer Frictions\n\n")
		for _, f := range brief.BuyerFrictions {
			fmt.Fprintf(&b, "- **[%s]** %s\n", strings.ToUpper(f.Severity), f.Friction)
			for _, src := range f.SourceReviews {
				fmt.Fprintf(&b, "  > %s\n", src)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Winning Build Spec\n\n")
	fmt.Fprintf(&b, "**Core problem:** %s\n\n", brief.WinningBuildSpec.CoreProblemSolved)
	b.WriteString("**Must have:**\n\n")
	for _, f := range brief.WinningBuildSpec.MustHaveFeatures {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("\n**Must avoid:**\n\n")
	for _, f := range brief.WinningBuildSpec.MustAvoid {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("\n")

	b.WriteString("## Premium Ladder\n\n")
	b.WriteString("| Tier | Label | Price | Features |\n|---|---|---|---|\n")
	for _, t := range brief.PremiumLadder {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			t.Tier, t.Label, t.SuggestedPriceRange, strings.Join(t.Features, "; "))
	}
	b.WriteString("\n")

	b.WriteString("## Listing Angle\n\n")
	fmt.Fprintf(&b, "**%s**\n\n%s\n\n", brief.ListingAngle.Headline, brief.ListingAngle.Subheadline)
	if len(brief.ListingAngle.ImageCallouts) > 0 {
		b.WriteString("Image callouts:\n\n")
		for _, c := range brief.ListingAngle.ImageCallouts {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Risk Flags\n\n")
	for _, r := range brief.RiskFlags {
		fmt.Fprintf(&b, "- **[%s]** %s\n  - Mitigation: %s\n", strings.ToUpper(r.Severity), r.Flag, r.Mitigation)
	}

	return b.String()
}
