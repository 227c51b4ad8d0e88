package model

// BriefVersion is the schema version stamped on every generated brief.
const BriefVersion = "1.0"

// Differentiator is one concrete claim citing a signal field.
type Differentiator struct {
	ID               string `json:"id"` // "D1", "D2", ...
	Claim            string `json:"claim"`
	SupportingSignal string `json:"supportingSignal"` // "topLevel.subField"
	Evidence         string `json:"evidence"`
}

// MissingFeature is a gap observed in the sampled market.
type MissingFeature struct {
	Feature          string `json:"feature"`
	Rationale        string `json:"rationale"`
	SupportingSignal string `json:"supportingSignal"`
}

// BuyerFriction is a pain point extracted from buyer reviews.
type BuyerFriction struct {
	Friction      string   `json:"friction"`
	Severity      string   `json:"severity"` // high|medium|low
	SourceReviews []string `json:"sourceReviews"`
}

// PremiumTier is one rung of the good/better/best ladder.
type PremiumTier struct {
	Tier                string   `json:"tier"` // good|better|best
	Label               string   `json:"label"`
	Features            []string `json:"features"`
	SuggestedPriceRange string   `json:"suggestedPriceRange"`
}

// ListingAngle is the suggested listing presentation.
type ListingAngle struct {
	Headline      string   `json:"headline"`
	Subheadline   string   `json:"subheadline"`
	ImageCallouts []string `json:"imageCallouts"`
}

// RiskFlag is a severity-tagged risk observation.
type RiskFlag struct {
	Flag       string `json:"flag"`
	Severity   string `json:"severity"` // red|yellow|green
	Mitigation string `json:"mitigation"`
}

// MarketStandard summarizes what the sampled market currently looks like.
type MarketStandard struct {
	Summary           string   `json:"summary"`
	TypicalFormats    []string `json:"typicalFormats"`
	TypicalPriceRange string   `json:"typicalPriceRange"`
}

// WinningBuildSpec describes the product the brief recommends building.
type WinningBuildSpec struct {
	CoreProblemSolved string   `json:"coreProblemSolved"`
	MustHaveFeatures  []string `json:"mustHaveFeatures"`
	MustAvoid         []string `json:"mustAvoid"`
}

// DifferentiationBrief is the generated analytical report. The core treats
// it as opaque except for the fields the QA gates inspect.
type DifferentiationBrief struct {
	Version          string            `json:"version"`
	ScanID           string            `json:"scanId"`
	Keyword          string            `json:"keyword"`
	GeneratedAt      string            `json:"generatedAt"`
	MarketStandard   MarketStandard    `json:"marketStandard"`
	Differentiators  []Differentiator  `json:"differentiators"`
	MissingFeatures  []MissingFeature  `json:"missingFeatures"`
	BuyerFrictions   []BuyerFriction   `json:"buyerFrictions"`
	WinningBuildSpec WinningBuildSpec  `json:"winningBuildSpec"`
	PremiumLadder    []PremiumTier     `json:"premiumLadder"`
	ListingAngle     ListingAngle      `json:"listingAngle"`
	RiskFlags        []RiskFlag        `json:"riskFlags"`
}
