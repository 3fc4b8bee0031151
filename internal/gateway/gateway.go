// ABOUTME: Gateway assembly: component graph, HTTP server, graceful shutdown
// ABOUTME: Everything downstream of config lives behind this one constructor

package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/maitred/internal/catalog"
	"github.com/2389/maitred/internal/checkout"
	"github.com/2389/maitred/internal/config"
	"github.com/2389/maitred/internal/dedupe"
	"github.com/2389/maitred/internal/dispatch"
	"github.com/2389/maitred/internal/escalate"
	"github.com/2389/maitred/internal/payment"
	"github.com/2389/maitred/internal/queue"
	"github.com/2389/maitred/internal/relay"
	"github.com/2389/maitred/internal/settlement"
	"github.com/2389/maitred/internal/store"
)

const (
	defaultMinimumCharge = 50 // cents
	defaultPollInterval  = 2 * time.Second
	shutdownTimeout      = 10 * time.Second
	webhookDedupeTTL     = 10 * time.Minute
	webhookDedupeSize    = 10000
)

// Messenger sends one outbound SMS. One concrete sender serves both the
// guest status relay and on-call escalation delivery.
type Messenger interface {
	Send(ctx context.Context, to, body string) error
}

// Options carries the external collaborators the gateway cannot build from
// config alone. A nil Processor gets the in-memory fake, which is only
// acceptable for local development. A nil Deliver leaves the outbox
// consumer stopped; jobs queue up until an agent drains them.
type Options struct {
	Processor payment.Processor
	Messenger Messenger
	Deliver   queue.DeliverFunc
}

// Gateway is the assembled service.
type Gateway struct {
	cfg        *config.Config
	store      *store.SQLiteStore
	loader     *catalog.Loader
	checkout   *checkout.Manager
	dispatcher *dispatch.Dispatcher
	consumer   *queue.Consumer
	seen       *dedupe.Cache
	httpServer *http.Server
	logger     *slog.Logger
}

// New builds the component graph and the HTTP server. Nothing listens
// until Run.
func New(cfg *config.Config, opts Options, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	processor := opts.Processor
	if processor == nil {
		logger.Warn("no payment processor configured, using in-memory fake")
		processor = payment.NewFakeProcessor()
	}

	seen := dedupe.New(webhookDedupeTTL, webhookDedupeSize)

	messenger := buildMessenger(cfg, opts)

	var links *escalate.LinkSigner
	if cfg.Admin.LinkSecret != "" {
		links = escalate.NewLinkSigner([]byte(cfg.Admin.LinkSecret), cfg.Admin.BaseURL, cfg.Admin.LinkTTL)
	}
	escalator := escalate.NewService(sqlStore, buildNotifier(cfg, messenger), links, logger)

	outbox := queue.NewOutboxQueue(sqlStore, logger)
	callbackURL := cfg.Server.BaseURL + "/callbacks/placement"
	dispatcher := dispatch.New(sqlStore, outbox, escalator, callbackURL, cfg.Dispatch.CallbackSecret, logger)

	minimumCharge := cfg.Payments.MinimumChargeCents
	if minimumCharge <= 0 {
		minimumCharge = defaultMinimumCharge
	}
	checkoutMgr := checkout.NewManager(sqlStore, processor, minimumCharge, logger)

	deliver := opts.Deliver
	if deliver == nil && cfg.Dispatch.AgentURL != "" {
		deliver = httpDeliverer(cfg.Dispatch.AgentURL)
	}
	var consumer *queue.Consumer
	if deliver != nil {
		interval := cfg.Dispatch.PollInterval
		if interval <= 0 {
			interval = defaultPollInterval
		}
		consumer = queue.NewConsumer(sqlStore, deliver, interval, logger)
	}

	g := &Gateway{
		cfg:        cfg,
		store:      sqlStore,
		loader:     catalog.NewLoader(sqlStore),
		checkout:   checkoutMgr,
		dispatcher: dispatcher,
		consumer:   consumer,
		seen:       seen,
		logger:     logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", g.handleHealth)
	mux.HandleFunc("/healthz/ready", g.handleReady)
	mux.Handle("/callbacks/placement", settlement.NewHandler(sqlStore, processor, escalator, cfg.Dispatch.CallbackSecret, logger))
	mux.Handle("/webhooks/payments", payment.NewWebhookHandler(sqlStore, dispatcher, []byte(cfg.Payments.WebhookSecret), seen, logger))
	mux.Handle("/webhooks/carrier", relay.NewHandler(sqlStore, nil, nil, messenger, seen, logger))
	mux.HandleFunc("/api/orders/match", g.handleMatch)
	mux.HandleFunc("/api/orders/compile", g.handleCompile)
	mux.HandleFunc("/api/orders/checkout", g.handleCheckout)
	mux.HandleFunc("/api/orders/", g.handleGetOrder)

	g.httpServer = &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return g, nil
}

// buildMessenger picks the outbound SMS path: an injected Messenger wins,
// otherwise the carrier client when the config enables it. Nil means guest
// relays and SMS escalation are silently off.
func buildMessenger(cfg *config.Config, opts Options) Messenger {
	if opts.Messenger != nil {
		return opts.Messenger
	}
	if cfg.Carrier.Enabled {
		return newCarrierMessenger(cfg.Carrier)
	}
	return nil
}

// buildNotifier assembles escalation delivery from config. With nothing
// configured, escalations still land in the log.
func buildNotifier(cfg *config.Config, messenger Messenger) escalate.Notifier {
	var notifiers escalate.MultiNotifier
	if cfg.Escalation.ChatWebhookURL != "" {
		notifiers = append(notifiers, &escalate.ChatNotifier{URL: cfg.Escalation.ChatWebhookURL})
	}
	if messenger != nil && len(cfg.Escalation.SMSNumbers) > 0 {
		notifiers = append(notifiers, &escalate.SMSNotifier{Sender: messenger, Numbers: cfg.Escalation.SMSNumbers})
	}
	if len(notifiers) == 0 {
		return nil
	}
	return notifiers
}

// httpDeliverer posts queued placement jobs to the agent's intake
// endpoint. A non-2xx response leaves the job queued and its partition
// blocked, which preserves per-order ordering across retries.
func httpDeliverer(agentURL string) queue.DeliverFunc {
	client := &http.Client{Timeout: 30 * time.Second}
	return func(ctx context.Context, msg *store.OutboxMessage) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, agentURL, bytes.NewReader(msg.Body))
		if err != nil {
			return fmt.Errorf("building agent request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("posting job to agent: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return fmt.Errorf("agent intake returned %d", resp.StatusCode)
		}
		return nil
	}
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	if g.consumer != nil {
		go g.consumer.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("http server listening", "addr", g.httpServer.Addr)
		if err := g.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		g.close()
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := g.httpServer.Shutdown(shutdownCtx)
	g.close()
	if err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	g.logger.Info("shutdown complete")
	return nil
}

func (g *Gateway) close() {
	g.seen.Close()
	if err := g.store.Close(); err != nil {
		g.logger.Error("closing store", "error", err)
	}
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports readiness: the process is up and the database
// answers a trivial read.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := g.store.ListOrders(r.Context(), 1); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
