// ABOUTME: Parses free-form guest text into quantified request lines
// ABOUTME: Splits on clause separators, extracts quantities, normalizes and tokenizes

package match

import (
	"regexp"
	"strconv"
	"strings"
)

// RequestLine is one parsed clause of a guest's free-text order. Request
// lines are request-scoped and never persisted.
type RequestLine struct {
	Raw        string
	Normalized string
	Quantity   int
	Tokens     []string
}

// segmentSplit separates clauses on the primary separators; "and" is handled
// in a second pass because it also appears inside dish names.
var (
	segmentSplit = regexp.MustCompile(`(?i)[,;\n]|\bthen\b|\bplus\b`)
	andSplit     = regexp.MustCompile(`(?i)\band\b`)
	quantityRe   = regexp.MustCompile(`^(\d+)\s*x?\s+`)
	nonAlnum     = regexp.MustCompile(`[^a-z0-9 ]+`)
	spaces       = regexp.MustCompile(`\s+`)
)

// requestPhrases are leading filler phrases stripped before quantity
// extraction. Longest phrases first so "i would like" wins over "i would".
var requestPhrases = []string{
	"i would like to order",
	"i would like",
	"we would like",
	"i'd like",
	"can i get",
	"could i get",
	"can we get",
	"could we get",
	"can i have",
	"could i have",
	"may i have",
	"i'll have",
	"ill have",
	"i will have",
	"i want",
	"we want",
	"please send up",
	"please send",
	"send up",
	"give me",
	"get me",
	"order",
	"please",
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "and": true,
	"with": true, "please": true, "some": true, "me": true, "my": true,
	"for": true, "to": true,
}

var leadingArticles = []string{"a ", "an ", "the ", "some "}

// ParseLines splits guest text into request lines. Empty segments are
// discarded; if splitting yields nothing usable the whole message becomes a
// single segment.
func ParseLines(text string) []RequestLine {
	var segments []string
	for _, seg := range segmentSplit.Split(text, -1) {
		for _, sub := range andSplit.Split(seg, -1) {
			sub = strings.TrimSpace(sub)
			if sub != "" {
				segments = append(segments, sub)
			}
		}
	}
	if len(segments) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		segments = []string{trimmed}
	}

	lines := make([]RequestLine, 0, len(segments))
	for _, seg := range segments {
		if line, ok := parseLine(seg); ok {
			lines = append(lines, line)
		}
	}
	return lines
}

func parseLine(raw string) (RequestLine, bool) {
	work := strings.ToLower(strings.TrimSpace(raw))
	work = stripRequestPhrase(work)

	quantity := 1
	if m := quantityRe.FindStringSubmatch(work); m != nil {
		work = strings.TrimSpace(work[len(m[0]):])
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			quantity = n
		}
	}

	for _, article := range leadingArticles {
		if strings.HasPrefix(work, article) {
			work = strings.TrimSpace(strings.TrimPrefix(work, article))
			break
		}
	}

	normalized := Normalize(work)
	if normalized == "" {
		return RequestLine{}, false
	}

	return RequestLine{
		Raw:        raw,
		Normalized: normalized,
		Quantity:   quantity,
		Tokens:     Tokenize(normalized),
	}, true
}

func stripRequestPhrase(s string) string {
	for _, phrase := range requestPhrases {
		if strings.HasPrefix(s, phrase+" ") {
			return strings.TrimSpace(strings.TrimPrefix(s, phrase+" "))
		}
	}
	return s
}

// Normalize lowercases, strips punctuation and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, " ")
	s = spaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokenize splits a normalized string into tokens with stop-words removed.
func Tokenize(normalized string) []string {
	var tokens []string
	for _, tok := range strings.Fields(normalized) {
		if !stopWords[tok] {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// stem trims a trailing plural "s" so "salads" matches "salad". Applied on
// both sides of every token comparison.
func stem(tok string) string {
	if len(tok) > 3 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss") {
		return tok[:len(tok)-1]
	}
	return tok
}

// tokensEqual compares two tokens under stemming.
func tokensEqual(a, b string) bool {
	return a == b || stem(a) == stem(b)
}
