// ABOUTME: Outbound SMS client for the messaging carrier's REST API
// ABOUTME: Satisfies the Messenger interface for guest relays and on-call SMS

package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/2389/maitred/internal/config"
)

const defaultCarrierBaseURL = "https://api.twilio.com/2010-04-01"

// carrierMessenger sends SMS through the carrier's Messages endpoint using
// basic auth with the account SID and auth token. When the config carries a
// guest_number override, every message goes there instead of the real
// recipient, which keeps sandbox accounts from texting strangers.
type carrierMessenger struct {
	accountSID string
	authToken  string
	from       string
	override   string
	baseURL    string
	client     *http.Client
}

func newCarrierMessenger(cfg config.CarrierConfig) *carrierMessenger {
	return &carrierMessenger{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.FromNumber,
		override:   cfg.GuestNumber,
		baseURL:    defaultCarrierBaseURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (m *carrierMessenger) Send(ctx context.Context, to, body string) error {
	if m.override != "" {
		to = m.override
	}
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", m.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", m.baseURL, m.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building carrier request: %w", err)
	}
	req.SetBasicAuth(m.accountSID, m.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending carrier message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("carrier returned %d", resp.StatusCode)
	}
	return nil
}
