// ABOUTME: Deterministic chat and SMS renderings of an EscalationPayload
// ABOUTME: Chat is markdown plus goldmark HTML; SMS is capped at three items

package escalate

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
)

// smsItemCap bounds how many lines an SMS spells out before collapsing.
const smsItemCap = 3

// ChatMessage is the chat-channel rendering of a payload. Markdown is the
// canonical text; HTML is the goldmark conversion for channels that want it.
type ChatMessage struct {
	Markdown string
	HTML     string
}

// RenderChat renders the payload for the operations chat channel.
func RenderChat(p Payload) ChatMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "## Order %s needs attention\n\n", p.OrderID)
	fmt.Fprintf(&b, "**Reason:** %s\n\n", p.Reason)
	if p.Message != "" {
		fmt.Fprintf(&b, "**Detail:** %s\n\n", p.Message)
	}
	if p.GuestName != "" {
		guest := p.GuestName
		if p.GuestRoom != "" {
			guest += ", room " + p.GuestRoom
		}
		if p.GuestPhone != "" {
			guest += " (" + p.GuestPhone + ")"
		}
		fmt.Fprintf(&b, "**Guest:** %s\n\n", guest)
	}
	if p.HotelName != "" {
		fmt.Fprintf(&b, "**Hotel:** %s\n\n", p.HotelName)
	}
	if p.RestaurantName != "" {
		fmt.Fprintf(&b, "**Restaurant:** %s\n\n", p.RestaurantName)
	}
	if len(p.Items) > 0 {
		b.WriteString("**Items:**\n\n")
		for _, item := range p.Items {
			fmt.Fprintf(&b, "- %dx %s\n", item.Quantity, item.Name)
		}
		b.WriteString("\n")
	}
	if p.Total > 0 {
		fmt.Fprintf(&b, "**Total:** %s\n\n", formatAmount(p.Total, p.Currency))
	}
	if p.AdminURL != "" {
		fmt.Fprintf(&b, "[Open in admin](%s)\n", p.AdminURL)
	}
	markdown := strings.TrimRight(b.String(), "\n") + "\n"

	var htmlBuf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &htmlBuf); err != nil {
		htmlBuf.Reset()
		htmlBuf.WriteString("<p>" + p.Reason + "</p>")
	}
	return ChatMessage{Markdown: markdown, HTML: htmlBuf.String()}
}

// RenderSMS renders the condensed page for on-call phones. At most three
// items are spelled out; the rest collapse into a count.
func RenderSMS(p Payload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s needs attention: %s.", p.OrderID, p.Reason)
	if len(p.Items) > 0 {
		shown := p.Items
		if len(shown) > smsItemCap {
			shown = shown[:smsItemCap]
		}
		parts := make([]string, 0, len(shown))
		for _, item := range shown {
			parts = append(parts, fmt.Sprintf("%dx %s", item.Quantity, item.Name))
		}
		b.WriteString(" " + strings.Join(parts, ", "))
		if extra := len(p.Items) - smsItemCap; extra > 0 {
			fmt.Fprintf(&b, ", +%d more", extra)
		}
		b.WriteString(".")
	}
	if p.Total > 0 {
		fmt.Fprintf(&b, " Total %s.", formatAmount(p.Total, p.Currency))
	}
	if p.AdminURL != "" {
		b.WriteString(" " + p.AdminURL)
	}
	return b.String()
}

func formatAmount(total float64, currency string) string {
	if strings.EqualFold(currency, "usd") || currency == "" {
		return fmt.Sprintf("$%.2f", total)
	}
	return fmt.Sprintf("%.2f %s", total, strings.ToUpper(currency))
}
