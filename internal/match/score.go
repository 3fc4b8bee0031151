// ABOUTME: Scores one request line against one catalog item
// ABOUTME: Fixed score constants plus an explicit semantic rule table for ambiguous categories

package match

import (
	"fmt"
	"math"
	"strings"

	"github.com/2389/maitred/internal/store"
)

// Score constants. These are fixed and test fixtures depend on them.
const (
	scoreExactName     = 120
	scorePhrase        = 60
	scoreNameToken     = 18
	scoreDescToken     = 7
	scoreCoverageMax   = 20
	scoreSemanticShift = 22
)

// semanticRule is one entry in the explicit disambiguation table. When a
// request line contains the trigger token and none of the penalty cues, an
// item whose name or description carries a boost cue gains
// scoreSemanticShift and one carrying a penalty cue loses it. This is a
// fixed rule table, not a model.
type semanticRule struct {
	trigger string
	boost   []string
	penalty []string
}

// semanticRules covers known ambiguous categories. "salad" distinguishes
// entrée salads from deli spreads sold by the ounce.
var semanticRules = []semanticRule{
	{
		trigger: "salad",
		boost:   []string{"caesar", "cobb", "garden", "house", "greens", "romaine", "lettuce", "kale", "spinach", "dressing"},
		penalty: []string{"tuna", "egg", "chicken", "ham", "oz", "ounce", "spread", "scoop", "sandwich", "wrap"},
	},
}

// CandidateMatch is one catalog item scored against one request line.
// Immutable and recomputed per request; never persisted.
type CandidateMatch struct {
	RestaurantID string
	ItemID       string
	ItemName     string
	Score        int
	Reason       string
}

// scoreItem scores a request line against a single menu item. A score of
// zero or below means no candidate.
func scoreItem(line RequestLine, item *store.MenuItem) (int, string) {
	nameNorm := Normalize(item.Name)
	descNorm := Normalize(item.Description)
	nameTokens := strings.Fields(nameNorm)
	descTokens := strings.Fields(descNorm)

	score := 0
	var reasons []string

	if line.Normalized == nameNorm {
		score += scoreExactName
		reasons = append(reasons, "exact name match")
	} else if strings.Contains(line.Normalized, nameNorm) || strings.Contains(nameNorm, line.Normalized) {
		score += scorePhrase
		reasons = append(reasons, "phrase match")
	}

	matched := 0
	for _, tok := range line.Tokens {
		if tokenIn(tok, nameTokens) {
			score += scoreNameToken
			matched++
		} else if tokenIn(tok, descTokens) {
			score += scoreDescToken
			matched++
		}
	}
	if len(line.Tokens) > 0 && matched > 0 {
		fraction := float64(matched) / float64(len(line.Tokens))
		score += int(math.Round(scoreCoverageMax * fraction))
		reasons = append(reasons, fmt.Sprintf("%d/%d tokens", matched, len(line.Tokens)))
	}

	if shift := semanticShift(line, nameNorm, descNorm); shift != 0 {
		score += shift
		if shift > 0 {
			reasons = append(reasons, "semantic boost")
		} else {
			reasons = append(reasons, "semantic penalty")
		}
	}

	return score, strings.Join(reasons, ", ")
}

// semanticShift applies the rule table. The shift is bounded to one
// scoreSemanticShift in either direction.
func semanticShift(line RequestLine, nameNorm, descNorm string) int {
	itemText := nameNorm + " " + descNorm
	itemTokens := strings.Fields(itemText)

	for _, rule := range semanticRules {
		if !lineHasToken(line, rule.trigger) {
			continue
		}
		// Only a bare category request is ambiguous: a line that itself
		// names a penalty cue ("tuna salad") is asking for that sense.
		if lineHasAny(line, rule.penalty) {
			continue
		}
		if hasAnyToken(itemTokens, rule.boost) {
			return scoreSemanticShift
		}
		if hasAnyToken(itemTokens, rule.penalty) {
			return -scoreSemanticShift
		}
	}
	return 0
}

func lineHasToken(line RequestLine, want string) bool {
	for _, tok := range line.Tokens {
		if tokensEqual(tok, want) {
			return true
		}
	}
	return false
}

func lineHasAny(line RequestLine, cues []string) bool {
	for _, cue := range cues {
		if lineHasToken(line, cue) {
			return true
		}
	}
	return false
}

func hasAnyToken(tokens []string, cues []string) bool {
	for _, cue := range cues {
		if tokenIn(cue, tokens) {
			return true
		}
	}
	return false
}

func tokenIn(tok string, tokens []string) bool {
	for _, t := range tokens {
		if tokensEqual(tok, t) {
			return true
		}
	}
	return false
}
