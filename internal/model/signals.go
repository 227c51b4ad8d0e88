package model

import "time"

// PriceBucket is one fixed-width band of the price distribution.
type PriceBucket struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
	Share float64 `json:"share"` // 0–1 of total listings
}

// PriceBands holds the full price distribution for one listing set.
type PriceBands struct {
	Min        float64       `json:"min"`
	Max        float64       `json:"max"`
	Median     float64       `json:"median"`
	P25        float64       `json:"p25"`
	P75        float64       `json:"p75"`
	Mean       float64       `json:"mean"`
	ModeBucket string        `json:"modeBucket"`
	Buckets    []PriceBucket `json:"buckets"`
}

// TopPhrase is a repeated 2- or 3-word phrase across listing titles.
type TopPhrase struct {
	Phrase string  `json:"phrase"`
	Count  int     `json:"count"`
	Score  float64 `json:"score"` // accumulated TF-IDF mass
}

// TitleSameness measures how homogeneous listing titles are.
type TitleSameness struct {
	AverageSimilarity float64     `json:"averageSimilarity"` // 0–1; high = uniform market
	TopPhrases        []TopPhrase `json:"topPhrases"`
	ClusterCount      int         `json:"clusterCount"`
}

// ShopShare is one seller's slice of the sampled listings.
type ShopShare struct {
	ShopID       string  `json:"shopId"`
	ListingCount int     `json:"listingCount"`
	SharePercent float64 `json:"sharePercent"`
}

// Dominance measures seller concentration among the sampled listings.
type Dominance struct {
	TopShops         []ShopShare `json:"topShops"`
	Top3SharePercent float64     `json:"top3SharePercent"`
	IsConcentrated   bool        `json:"isConcentrated"` // top-3 share > 40%
}

// FormatSignals counts listings matching each delivery-format category.
type FormatSignals struct {
	Editable          int `json:"editable"`
	Canva             int `json:"canva"`
	GoogleSheets      int `json:"googleSheets"`
	Notion            int `json:"notion"`
	PDF               int `json:"pdf"`
	BundleKitSystem   int `json:"bundleKitSystem"`
	InstantDownload   int `json:"instantDownload"`
	DistinctTypeCount int `json:"distinctTypeCount"`
}

// BundleDepth summarizes "includes N x" claims found in titles.
type BundleDepth struct {
	AvgIncludesCount float64  `json:"avgIncludesCount"`
	MaxIncludesCount int      `json:"maxIncludesCount"`
	Examples         []string `json:"examples"`
}

// SignalsResult is the immutable snapshot of all market-structure signals
// computed for one scan. Produced exactly once per scan; a re-scan yields
// a new instance.
type SignalsResult struct {
	PriceBands    PriceBands    `json:"priceBands"`
	TitleSameness TitleSameness `json:"titleSameness"`
	Dominance     Dominance     `json:"dominance"`
	FormatSignals FormatSignals `json:"formatSignals"`
	BundleDepth   BundleDepth   `json:"bundleDepth"`
	ListingCount  int           `json:"listingCount"`
	Keyword       string        `json:"keyword"`
	ComputedAt    time.Time     `json:"computedAt"`
}
