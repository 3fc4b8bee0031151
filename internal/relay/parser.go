// ABOUTME: Keyword parser for restaurant status texts
// ABOUTME: External-collaborator boundary; the keyword impl is the default

package relay

import (
	"regexp"
	"strings"
)

// Fulfillment labels. These are presentation vocabulary attached to relay
// breadcrumbs and guest messages; the persisted order state machine uses
// its own enum.
const (
	LabelConfirmed      = "confirmed"
	LabelPreparing      = "preparing"
	LabelReady          = "ready"
	LabelOutForDelivery = "out_for_delivery"
	LabelDelivered      = "delivered"
	LabelDelayed        = "delayed"
	LabelCancelled      = "cancelled"
)

// Update is one recognized status message.
type Update struct {
	Label        string
	Confirmation string
	Raw          string
}

// Parser decides whether an inbound message is an order update. A message
// the parser does not recognize is dropped without any state change.
type Parser interface {
	Parse(body string) (*Update, bool)
}

// labelRules are checked in order; the first matching phrase wins, so the
// more specific phrases come first ("out for delivery" before "delivered"
// is irrelevant, but "ready" must not shadow "preparing your order" etc.).
var labelRules = []struct {
	label   string
	phrases []string
}{
	{LabelOutForDelivery, []string{"out for delivery", "on the way", "on its way", "driver has", "driver is"}},
	{LabelDelivered, []string{"delivered", "dropped off", "left at"}},
	{LabelCancelled, []string{"cancelled", "canceled", "unable to fulfill", "cannot fulfill"}},
	{LabelDelayed, []string{"delayed", "running late", "running behind", "behind schedule"}},
	{LabelReady, []string{"ready for pickup", "is ready", "order ready"}},
	{LabelPreparing, []string{"preparing", "being prepared", "in the kitchen", "started on your order"}},
	{LabelConfirmed, []string{"order confirmed", "confirmed your order", "received your order", "order received", "has been accepted"}},
}

var confirmationRe = regexp.MustCompile(`(?i)(?:confirmation|conf\.?|order)\s*(?:number|no\.?|code)?\s*(?:is)?\s*[:#]?\s*#?([A-Za-z0-9-]{4,})`)

// KeywordParser is the default Parser: case-insensitive phrase matching
// plus a confirmation-number pattern.
type KeywordParser struct{}

func (KeywordParser) Parse(body string) (*Update, bool) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil, false
	}
	lower := strings.ToLower(trimmed)

	var label string
	for _, rule := range labelRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(lower, phrase) {
				label = rule.label
				break
			}
		}
		if label != "" {
			break
		}
	}
	if label == "" {
		return nil, false
	}

	update := &Update{Label: label, Raw: trimmed}
	// Plain words like "ready" also satisfy the token shape; a real
	// confirmation number always carries at least one digit.
	for _, m := range confirmationRe.FindAllStringSubmatch(trimmed, -1) {
		if token := strings.ToUpper(m[1]); strings.ContainsAny(token, "0123456789") {
			update.Confirmation = token
			break
		}
	}
	return update, true
}
