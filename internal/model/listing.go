package model

// ListingState represents the lifecycle state of a marketplace listing.
type ListingState string

const (
	ListingStateActive   ListingState = "active"
	ListingStateInactive ListingState = "inactive"
	ListingStateRemoved  ListingState = "removed"
)

// Price is a marketplace price in minor units with its divisor.
type Price struct {
	Amount       int64  `json:"amount"`
	Divisor      int64  `json:"divisor"`
	CurrencyCode string `json:"currency_code"`
}

// Value returns the normalized decimal price.
func (p Price) Value() float64 {
	if p.Divisor == 0 {
		return 0
	}
	return float64(p.Amount) / float64(p.Divisor)
}

// Listing is a single marketplace search result. Immutable once fetched
// for a scan; a cache may share rows across scans keyed by ListingID.
type Listing struct {
	ListingID int64        `json:"listing_id"`
	ShopID    int64        `json:"shop_id"`
	Title     string       `json:"title"`
	Price     Price        `json:"price"`
	Quantity  int          `json:"quantity"`
	Favorers  int          `json:"num_favorers"`
	Tags      []string     `json:"tags"`
	State     ListingState `json:"state"`
	URL       string       `json:"url,omitempty"`
}

// Review is a buyer review attached to a listing.
type Review struct {
	ListingID int64  `json:"listing_id"`
	Rating    int    `json:"rating"`
	Review    string `json:"review"`
	CreatedAt int64  `json:"create_timestamp"`
	Language  string `json:"language,omitempty"`
}

// SearchResult is one page of marketplace search results.
type SearchResult struct {
	Count      int         `json:"count"`
	Listings   []Listing   `json:"results"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes the offset window of a search response.
type Pagination struct {
	EffectiveLimit  int  `json:"effective_limit"`
	EffectiveOffset int  `json:"effective_offset"`
	NextOffset      *int `json:"next_offset"`
}
