// ABOUTME: Fake placement agent for local development and E2E testing.
// ABOUTME: Accepts dispatched jobs over HTTP and posts the placement callback after a delay.
package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"
)

type job struct {
	Cmd            string `json:"cmd"`
	OrderID        string `json:"orderId"`
	URL            string `json:"url"`
	CallbackURL    string `json:"callbackUrl"`
	CallbackSecret string `json:"callbackSecret"`
}

type callback struct {
	OrderID string          `json:"orderId"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}

func main() {
	addr := flag.String("addr", ":9090", "listen address for dispatched jobs")
	delay := flag.Duration("delay", 2*time.Second, "delay before posting the callback")
	fail := flag.Bool("fail", false, "report placement failure instead of success")
	reason := flag.String("reason", "restaurant is closed", "failure reason sent when -fail is set")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	client := &http.Client{Timeout: 15 * time.Second}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var j job
		if err := json.NewDecoder(r.Body).Decode(&j); err != nil {
			http.Error(w, "bad job payload", http.StatusBadRequest)
			return
		}
		if j.Cmd != "place-order" || j.OrderID == "" || j.CallbackURL == "" {
			http.Error(w, "not a placement job", http.StatusBadRequest)
			return
		}
		log.Printf("accepted job for order %s (target %s)", j.OrderID, j.URL)
		w.WriteHeader(http.StatusAccepted)

		go func() {
			select {
			case <-time.After(*delay):
			case <-ctx.Done():
				return
			}
			if err := postCallback(ctx, client, j, *fail, *reason); err != nil {
				log.Printf("callback for order %s failed: %v", j.OrderID, err)
				return
			}
			log.Printf("callback posted for order %s (success=%v)", j.OrderID, !*fail)
		}()
	})

	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("fake agent listening on %s (fail=%v, delay=%s)", *addr, *fail, *delay)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func postCallback(ctx context.Context, client *http.Client, j job, fail bool, reason string) error {
	cb := callback{OrderID: j.OrderID, Success: !fail}
	if fail {
		cb.Error = "placement_failed"
		cb.Reason = reason
	} else {
		data, _ := json.Marshal(map[string]string{
			"confirmationNumber": confirmationNumber(),
			"placedAt":           time.Now().UTC().Format(time.RFC3339),
		})
		cb.Data = data
	}

	body, err := json.Marshal(cb)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.CallbackURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+j.CallbackSecret)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned %d", resp.StatusCode)
	}
	return nil
}

// confirmationNumber fabricates something shaped like a restaurant's
// confirmation code so relay correlation can be exercised locally.
func confirmationNumber() string {
	b := make([]byte, 2)
	rand.Read(b)
	return fmt.Sprintf("FA-%02X%02X", b[0], b[1])
}
