// ABOUTME: Tests for the carrier SMS client and messenger selection
// ABOUTME: Uses a local HTTP server standing in for the carrier API

package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/maitred/internal/config"
)

func carrierTestConfig() config.CarrierConfig {
	return config.CarrierConfig{
		Enabled:    true,
		AccountSID: "AC123",
		AuthToken:  "tok-456",
		FromNumber: "+15550001",
	}
}

func newTestCarrier(cfg config.CarrierConfig, baseURL string) *carrierMessenger {
	m := newCarrierMessenger(cfg)
	m.baseURL = baseURL
	m.client = &http.Client{Timeout: 5 * time.Second}
	return m
}

func TestCarrierMessenger_PostsMessageForm(t *testing.T) {
	var gotPath, gotUser, gotPass string
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"To":   r.PostForm.Get("To"),
			"From": r.PostForm.Get("From"),
			"Body": r.PostForm.Get("Body"),
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	m := newTestCarrier(carrierTestConfig(), srv.URL)
	err := m.Send(context.Background(), "+15550100", "Bistro Nord has confirmed your order.")
	require.NoError(t, err)

	assert.Equal(t, "/Accounts/AC123/Messages.json", gotPath)
	assert.Equal(t, "AC123", gotUser)
	assert.Equal(t, "tok-456", gotPass)
	assert.Equal(t, "+15550100", gotForm["To"])
	assert.Equal(t, "+15550001", gotForm["From"])
	assert.Equal(t, "Bistro Nord has confirmed your order.", gotForm["Body"])
}

func TestCarrierMessenger_GuestNumberOverride(t *testing.T) {
	var gotTo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotTo = r.PostForm.Get("To")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	cfg := carrierTestConfig()
	cfg.GuestNumber = "+15559999"
	m := newTestCarrier(cfg, srv.URL)
	require.NoError(t, m.Send(context.Background(), "+15550100", "hello"))

	assert.Equal(t, "+15559999", gotTo)
}

func TestCarrierMessenger_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := newTestCarrier(carrierTestConfig(), srv.URL)
	err := m.Send(context.Background(), "+15550100", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestBuildMessenger(t *testing.T) {
	cfg := testConfig()
	assert.Nil(t, buildMessenger(cfg, Options{}), "no carrier, no injection")

	cfg.Carrier = carrierTestConfig()
	m := buildMessenger(cfg, Options{})
	require.NotNil(t, m)
	carrier, ok := m.(*carrierMessenger)
	require.True(t, ok)
	assert.Equal(t, "AC123", carrier.accountSID)
	assert.Equal(t, "+15550001", carrier.from)

	injected := &testMessenger{}
	assert.Same(t, injected, buildMessenger(cfg, Options{Messenger: injected}))
}
