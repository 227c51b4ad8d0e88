package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/market-scan/internal/model"
)

func makeListing(id int64, title string) model.Listing {
	return model.Listing{
		ListingID: id,
		ShopID:    1,
		Title:     title,
		Price:     model.Price{Amount: 999, Divisor: 100, CurrencyCode: "USD"},
		State:     model.ListingStateActive,
	}
}

func TestTitleSameness_IdenticalTitles(t *testing.T) {
	listings := []model.Listing{
		makeListing(1, "Airbnb Welcome Book Template Canva Editable"),
		makeListing(2, "Airbnb Welcome Book Template Canva Editable"),
		makeListing(3, "Airbnb Welcome Book Template Canva Editable"),
	}
	result := ComputeTitleSameness(listings)
	assert.InDelta(t, 1.0, result.AverageSimilarity, 0.01)
}

func TestTitleSameness_DisjointVocabularies(t *testing.T) {
	listings := []model.Listing{
		makeListing(1, "Red bicycle for children outdoor fun"),
		makeListing(2, "Python programming tutorial advanced"),
		makeListing(3, "Vintage ceramic kitchen coffee mug"),
	}
	result := ComputeTitleSameness(listings)
	assert.Less(t, result.AverageSimilarity, 0.1)
}

func TestTitleSameness_TopPhrasesContainRepeatedBigram(t *testing.T) {
	listings := []model.Listing{
		makeListing(1, "Airbnb Welcome Book Template Canva"),
		makeListing(2, "Airbnb Welcome Book Editable PDF"),
		makeListing(3, "Airbnb Welcome Book Instant Download"),
		makeListing(4, "Airbnb Welcome Book Notion Template"),
	}
	result := ComputeTitleSameness(listings)

	found := false
	for _, p := range result.TopPhrases {
		assert.GreaterOrEqual(t, p.Count, 2)
		if p.Phrase == "welcome book" || p.Phrase == "airbnb welcome" {
			found = true
		}
	}
	assert.True(t, found, "expected a repeated welcome-book phrase in %v", result.TopPhrases)
}

func TestTitleSameness_SingleListing(t *testing.T) {
	result := ComputeTitleSameness([]model.Listing{makeListing(1, "Single listing title")})
	assert.Equal(t, 1.0, result.AverageSimilarity)
	assert.Equal(t, 1, result.ClusterCount)
}

func TestTitleSameness_Empty(t *testing.T) {
	result := ComputeTitleSameness(nil)
	assert.Zero(t, result.AverageSimilarity)
	assert.Empty(t, result.TopPhrases)
	assert.Zero(t, result.ClusterCount)
}

func TestTitleSameness_SpecialCharacters(t *testing.T) {
	listings := []model.Listing{
		makeListing(1, "Airbnb Welcome Book | Éditable & Canva™ Template"),
		makeListing(2, "Airbnb Welcome Book — PDF | 50% Off | Instant Download"),
	}
	result := ComputeTitleSameness(listings)
	assert.GreaterOrEqual(t, result.AverageSimilarity, 0.0)
	assert.LessOrEqual(t, result.AverageSimilarity, 1.0)
}

func TestTitleSameness_ClusterCountMergesNearDuplicates(t *testing.T) {
	listings := []model.Listing{
		makeListing(1, "Wedding planner printable checklist guide"),
		makeListing(2, "Wedding planner printable checklist guide"),
		makeListing(3, "Garden tools storage rack wooden"),
		makeListing(4, "Garden tools storage rack wooden"),
	}
	result := ComputeTitleSameness(listings)
	assert.Equal(t, 2, result.ClusterCount)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "cafe menu 50 off", Normalize("Café  Menu — 50% Off!"))
}

func TestTokenize_DropsSingleCharTokens(t *testing.T) {
	assert.Equal(t, []string{"budget", "tracker"}, Tokenize("A Budget Tracker"))
}

func TestNGrams(t *testing.T) {
	tokens := []string{"airbnb", "welcome", "book"}
	assert.Equal(t, []string{"airbnb welcome", "welcome book"}, NGrams(tokens, 2))
	assert.Equal(t, []string{"airbnb welcome book"}, NGrams(tokens, 3))
	assert.Nil(t, NGrams(tokens, 4))
}
