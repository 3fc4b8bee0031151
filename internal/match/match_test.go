// ABOUTME: Tests for request line parsing, item scoring and restaurant selection
// ABOUTME: Includes the entrée-vs-spread salad disambiguation fixture

package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/maitred/internal/store"
)

func TestParseLines_SplitsAndQuantities(t *testing.T) {
	lines := ParseLines("2 caesar salads and a tuna salad")
	require.Len(t, lines, 2)

	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "caesar salads", lines[0].Normalized)
	assert.Equal(t, []string{"caesar", "salads"}, lines[0].Tokens)

	assert.Equal(t, 1, lines[1].Quantity)
	assert.Equal(t, "tuna salad", lines[1].Normalized)
}

func TestParseLines_Separators(t *testing.T) {
	lines := ParseLines("a burger, fries; a coke then 2x brownies plus coffee")
	require.Len(t, lines, 5)
	assert.Equal(t, "burger", lines[0].Normalized)
	assert.Equal(t, "fries", lines[1].Normalized)
	assert.Equal(t, "coke", lines[2].Normalized)
	assert.Equal(t, 2, lines[3].Quantity)
	assert.Equal(t, "brownies", lines[3].Normalized)
	assert.Equal(t, "coffee", lines[4].Normalized)
}

func TestParseLines_StripsRequestPhrases(t *testing.T) {
	lines := ParseLines("can I get a club sandwich")
	require.Len(t, lines, 1)
	assert.Equal(t, "club sandwich", lines[0].Normalized)
	assert.Equal(t, 1, lines[0].Quantity)

	lines = ParseLines("I'd like 3 spring rolls")
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, "spring rolls", lines[0].Normalized)
}

func TestParseLines_InvalidQuantityFallsBackToOne(t *testing.T) {
	lines := ParseLines("0 burgers")
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, "burgers", lines[0].Normalized)
}

func TestParseLines_WholeMessageFallback(t *testing.T) {
	lines := ParseLines("margherita pizza")
	require.Len(t, lines, 1)
	assert.Equal(t, "margherita pizza", lines[0].Normalized)

	assert.Empty(t, ParseLines("   "))
}

func saladCatalog() []*store.MenuItem {
	return []*store.MenuItem{
		{ID: "item-caesar", RestaurantID: "rest-bistro", Name: "Caesar Salad",
			Description: "Romaine, parmesan, house dressing", Approved: true, Available: true},
		{ID: "item-tuna", RestaurantID: "rest-deli", Name: "Tuna Salad (8oz)",
			Description: "Deli tuna spread by the half pound", Approved: true, Available: true},
	}
}

func TestScoreItem_SaladDisambiguation(t *testing.T) {
	items := saladCatalog()
	lines := ParseLines("2 caesar salads and a tuna salad")
	require.Len(t, lines, 2)

	caesarScore, _ := scoreItem(lines[0], items[0])
	tunaScore, _ := scoreItem(lines[0], items[1])
	assert.Greater(t, caesarScore, tunaScore,
		"entrée caesar must outrank the deli spread for a caesar line")

	// The penalty itself must fire: the tuna item scores exactly one
	// semantic shift lower than its raw token score would give.
	raw := scoreNameToken + 10 // "salad" token + 1/2 coverage
	assert.Equal(t, raw-scoreSemanticShift, tunaScore)

	// The second line names tuna, so no adjustment applies there.
	tunaScore2, _ := scoreItem(lines[1], items[1])
	caesarScore2, _ := scoreItem(lines[1], items[0])
	assert.Greater(t, tunaScore2, caesarScore2)
}

func TestScoreItem_ExactAndPhrase(t *testing.T) {
	item := &store.MenuItem{ID: "i1", RestaurantID: "r1", Name: "Club Sandwich"}

	lines := ParseLines("club sandwich")
	exact, reason := scoreItem(lines[0], item)
	assert.Contains(t, reason, "exact name match")

	lines = ParseLines("the club sandwich please")
	// leading article stripped, trailing "please" dropped as a stop-word in
	// tokens but kept out of the normalized form only if stripped; either
	// way the phrase containment fires
	phrase, _ := scoreItem(lines[0], item)
	assert.Greater(t, exact, phrase)
}

func TestMatch_Deterministic(t *testing.T) {
	items := saladCatalog()
	first, err := Match("2 caesar salads and a tuna salad", items, Options{})
	require.NoError(t, err)
	second, err := Match("2 caesar salads and a tuna salad", items, Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMatch_RestaurantSelection(t *testing.T) {
	items := []*store.MenuItem{
		{ID: "i1", RestaurantID: "rest-a", Name: "Cheeseburger"},
		{ID: "i2", RestaurantID: "rest-a", Name: "French Fries"},
		{ID: "i3", RestaurantID: "rest-b", Name: "Cheeseburger Deluxe"},
	}

	// rest-a covers both lines, rest-b only one
	result, err := Match("a cheeseburger and french fries", items, Options{})
	require.NoError(t, err)
	assert.Equal(t, "rest-a", result.RestaurantID)
}

func TestMatch_CoverageTieBreaksOnScoreThenID(t *testing.T) {
	items := []*store.MenuItem{
		{ID: "i1", RestaurantID: "rest-a", Name: "Pancakes"},
		{ID: "i2", RestaurantID: "rest-b", Name: "Pancakes"},
	}
	result, err := Match("pancakes", items, Options{})
	require.NoError(t, err)
	// identical coverage and score: lexically smaller id wins
	assert.Equal(t, "rest-a", result.RestaurantID)
}

func TestMatch_ScopeRestrictsRestaurant(t *testing.T) {
	items := saladCatalog()
	result, err := Match("tuna salad", items, Options{RestaurantID: "rest-deli"})
	require.NoError(t, err)
	assert.Equal(t, "rest-deli", result.RestaurantID)
	for _, cands := range result.Candidates {
		for _, c := range cands {
			assert.Equal(t, "rest-deli", c.RestaurantID)
		}
	}
}

func TestMatch_NoCandidates(t *testing.T) {
	items := saladCatalog()
	_, err := Match("quantum flux capacitor", items, Options{})
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestMatch_MaxCandidatesTruncates(t *testing.T) {
	items := []*store.MenuItem{
		{ID: "i1", RestaurantID: "r1", Name: "Green Tea"},
		{ID: "i2", RestaurantID: "r1", Name: "Black Tea"},
		{ID: "i3", RestaurantID: "r1", Name: "Mint Tea"},
	}
	result, err := Match("tea", items, Options{MaxCandidates: 2})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Len(t, result.Candidates[0], 2)
	// equal scores: lexical item name order
	assert.Equal(t, "Black Tea", result.Candidates[0][0].ItemName)
}
