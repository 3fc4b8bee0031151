// ABOUTME: Ops CLI for inspecting orders and replaying escalations
// ABOUTME: Works directly against the gateway's SQLite database

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/maitred/internal/escalate"
	"github.com/2389/maitred/internal/store"
)

const banner = `
                 _ _            _            _           _
 _ __ ___   __ _(_) |_ _ __ ___| |       __ _| |_ __ ___ (_)_ __
| '_ ' _ \ / _' | | __| '__/ _ \ |_____ / _' | | '_ ' _ \| | '_ \
| | | | | | (_| | | |_| | |  __/ |_____| (_| | | | | | | | | | | |
|_| |_| |_|\__,_|_|\__|_|  \___|_|      \__,_|_|_| |_| |_|_|_| |_|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	cfg, err := loadConfig(configPath())
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	switch cmd {
	case "orders":
		err = cmdOrders(s, args)
	case "order":
		err = cmdOrder(s, args)
	case "stuck":
		err = cmdStuck(s, args)
	case "replay-escalation":
		err = cmdReplayEscalation(cfg, s, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: maitred-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  orders [--limit N]          List recent orders, newest first")
	fmt.Println("  order <id>                  Show one order with its full event log")
	fmt.Println("  stuck [--older 30m]         List orders dispatched to the agent with no callback yet")
	fmt.Println("  replay-escalation <id>      Rebuild and resend the escalation for an order")
	fmt.Println()
	yellow.Println("Configuration:")
	fmt.Println("  Reads maitred-admin.toml from the current directory or")
	fmt.Println("  ~/.config/maitred/. Override with MAITRED_ADMIN_CONFIG.")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  maitred-admin orders --limit 20")
	fmt.Println("  maitred-admin stuck --older 1h")
	fmt.Println("  maitred-admin replay-escalation ord_01HXYZ")
	fmt.Println()
}

// cmdOrders lists recent orders in a table, colored by status.
func cmdOrders(s *store.SQLiteStore, args []string) error {
	fs := flag.NewFlagSet("orders", flag.ExitOnError)
	limit := fs.Int("limit", 50, "maximum number of orders to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	orders, err := s.ListOrders(ctx, *limit)
	if err != nil {
		return fmt.Errorf("listing orders: %w", err)
	}
	if len(orders) == 0 {
		fmt.Println("No orders found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tRESTAURANT\tGUEST\tTOTAL\tCREATED")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, colorStatus(o.Status), o.RestaurantID, o.GuestName,
			formatMoney(o.Total, o.Currency),
			o.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

// cmdOrder shows a single order and its event log in order of occurrence.
func cmdOrder(s *store.SQLiteStore, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: maitred-admin order <id>")
	}
	id := args[0]

	ctx := context.Background()
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("loading order %s: %w", id, err)
	}
	events, err := s.GetOrderEvents(ctx, id)
	if err != nil {
		return fmt.Errorf("loading events for %s: %w", id, err)
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Order")
	cyan.Println("  -----")
	fmt.Printf("  ID:          %s\n", o.ID)
	fmt.Printf("  Status:      %s\n", colorStatus(o.Status))
	fmt.Printf("  Restaurant:  %s\n", o.RestaurantID)
	fmt.Printf("  Guest:       %s (%s)\n", o.GuestName, o.GuestPhone)
	fmt.Printf("  Deliver to:  %s", o.DeliveryAddress)
	if o.Apartment != "" {
		fmt.Printf(", room %s", o.Apartment)
	}
	fmt.Println()
	fmt.Printf("  Total:       %s (held %d minor units)\n", formatMoney(o.Total, o.Currency), o.ChargeAmount)
	fmt.Printf("  Created:     %s\n", o.CreatedAt.Local().Format(time.RFC1123))
	fmt.Printf("  Updated:     %s\n", o.UpdatedAt.Local().Format(time.RFC1123))

	if p, err := s.GetPaymentByOrderID(ctx, id); err == nil {
		fmt.Printf("  Payment:     %s (%s)\n", p.ProviderIntentID, p.Status)
	}

	fmt.Println()
	cyan.Println("  Events")
	cyan.Println("  ------")
	if len(events) == 0 {
		fmt.Println("  (none)")
	}
	for _, ev := range events {
		fmt.Printf("  %s  %-14s %s\n",
			ev.CreatedAt.Local().Format("15:04:05"), ev.Type, compactJSON(ev.Payload))
	}
	fmt.Println()
	return nil
}

// cmdStuck lists orders dispatched to the agent whose callback never came.
// There is no automatic timeout on dispatch, so these accumulate silently
// unless someone looks.
func cmdStuck(s *store.SQLiteStore, args []string) error {
	fs := flag.NewFlagSet("stuck", flag.ExitOnError)
	older := fs.Duration("older", 30*time.Minute, "minimum time since dispatch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	cutoff := time.Now().Add(-*older)
	orders, err := s.ListOrdersDispatchedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("listing dispatched orders: %w", err)
	}
	if len(orders) == 0 {
		color.Green("No orders stuck longer than %s.\n", older)
		return nil
	}

	color.Yellow("%d order(s) dispatched more than %s ago with no agent callback:\n\n", len(orders), older)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRESTAURANT\tGUEST\tTOTAL\tDISPATCHED")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			o.ID, o.RestaurantID, o.GuestName,
			formatMoney(o.Total, o.Currency),
			o.UpdatedAt.Local().Format(time.RFC1123))
	}
	return w.Flush()
}

// cmdReplayEscalation rebuilds the escalation payload from the order's
// recorded facts and sends it again. Useful when the original delivery
// failed or the channel was misconfigured.
func cmdReplayEscalation(cfg *Config, s *store.SQLiteStore, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: maitred-admin replay-escalation <id>")
	}
	id := args[0]

	ctx := context.Background()
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("loading order %s: %w", id, err)
	}

	var notifier escalate.Notifier
	if cfg.Escalation.ChatWebhookURL != "" {
		notifier = &escalate.ChatNotifier{URL: cfg.Escalation.ChatWebhookURL}
	}
	var links *escalate.LinkSigner
	if cfg.Admin.LinkSecret != "" {
		links = escalate.NewLinkSigner([]byte(cfg.Admin.LinkSecret), cfg.Admin.BaseURL, cfg.Admin.LinkTTL)
	}
	svc := escalate.NewService(s, notifier, links, nil)

	svc.Escalate(ctx, id, "manual replay", "admin",
		fmt.Sprintf("escalation replayed by operator; order status %s", o.Status))

	color.Green("Escalation replayed for order %s.\n", id)
	return nil
}

func colorStatus(s store.OrderStatus) string {
	switch {
	case s.Critical() || s == store.OrderBotFailed:
		return color.RedString(string(s))
	case s == store.OrderConfirmedAndPaid || s == store.OrderDelivered:
		return color.GreenString(string(s))
	case s == store.OrderDispatched:
		return color.CyanString(string(s))
	case s == store.OrderCancelled:
		return string(s)
	default:
		return color.YellowString(string(s))
	}
}

func formatMoney(amount float64, currency string) string {
	if currency == "" || currency == "usd" {
		return fmt.Sprintf("$%.2f", amount)
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	const max = 120
	s := string(buf)
	if len(s) > max {
		s = s[:max-3] + "..."
	}
	return s
}
