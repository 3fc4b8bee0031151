// ABOUTME: Matches guest request text to catalog items and picks one restaurant scope
// ABOUTME: Deterministic: ties break lexically so the same input always matches the same way

package match

import (
	"errors"
	"sort"

	"github.com/2389/maitred/internal/store"
)

// ErrNoCandidates is returned when no restaurant has a candidate for any
// request line.
var ErrNoCandidates = errors.New("no restaurant candidates")

// DefaultMaxCandidates bounds per-line candidate lists unless overridden.
const DefaultMaxCandidates = 5

// Options controls a match run.
type Options struct {
	// RestaurantID restricts matching to one restaurant when the guest has
	// already chosen a scope. Empty means match across all given items.
	RestaurantID string
	// MaxCandidates caps candidates kept per line. Zero means the default.
	MaxCandidates int
}

// Result is the outcome of matching one guest message.
type Result struct {
	Lines        []RequestLine
	Candidates   [][]CandidateMatch // per line, sorted by score desc
	RestaurantID string             // the single best restaurant scope
}

// Match parses the guest text, scores every line against the catalog items
// and selects the one restaurant that best covers the whole request.
func Match(text string, items []*store.MenuItem, opts Options) (*Result, error) {
	maxCandidates := opts.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}

	lines := ParseLines(text)
	if len(lines) == 0 {
		return nil, ErrNoCandidates
	}

	candidates := make([][]CandidateMatch, len(lines))
	for i, line := range lines {
		var lineCands []CandidateMatch
		for _, item := range items {
			if opts.RestaurantID != "" && item.RestaurantID != opts.RestaurantID {
				continue
			}
			score, reason := scoreItem(line, item)
			if score <= 0 {
				continue
			}
			lineCands = append(lineCands, CandidateMatch{
				RestaurantID: item.RestaurantID,
				ItemID:       item.ID,
				ItemName:     item.Name,
				Score:        score,
				Reason:       reason,
			})
		}
		sort.SliceStable(lineCands, func(a, b int) bool {
			if lineCands[a].Score != lineCands[b].Score {
				return lineCands[a].Score > lineCands[b].Score
			}
			return lineCands[a].ItemName < lineCands[b].ItemName
		})
		if len(lineCands) > maxCandidates {
			lineCands = lineCands[:maxCandidates]
		}
		candidates[i] = lineCands
	}

	restaurantID, err := selectRestaurant(candidates)
	if err != nil {
		return nil, err
	}

	return &Result{
		Lines:        lines,
		Candidates:   candidates,
		RestaurantID: restaurantID,
	}, nil
}

// selectRestaurant picks the restaurant covering the most request lines.
// Coverage wins; summed per-line top scores break coverage ties; restaurant
// id lexical order breaks the rest.
func selectRestaurant(candidates [][]CandidateMatch) (string, error) {
	type tally struct {
		coverage int
		score    int
	}
	tallies := make(map[string]*tally)

	for _, lineCands := range candidates {
		topForLine := make(map[string]int)
		for _, c := range lineCands {
			if cur, ok := topForLine[c.RestaurantID]; !ok || c.Score > cur {
				topForLine[c.RestaurantID] = c.Score
			}
		}
		for restID, top := range topForLine {
			t := tallies[restID]
			if t == nil {
				t = &tally{}
				tallies[restID] = t
			}
			t.coverage++
			t.score += top
		}
	}

	if len(tallies) == 0 {
		return "", ErrNoCandidates
	}

	ids := make([]string, 0, len(tallies))
	for id := range tallies {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	best := ids[0]
	for _, id := range ids[1:] {
		t, b := tallies[id], tallies[best]
		if t.coverage > b.coverage || (t.coverage == b.coverage && t.score > b.score) {
			best = id
		}
	}
	return best, nil
}
