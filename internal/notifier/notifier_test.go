package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"CoinForecast/internal/model"
)

func newTestNotifier(url string) *TelegramNotifier {
	tn := NewTelegramNotifier("tok", "42", "")
	tn.APIURL = url
	tn.Backoff = 10 * time.Millisecond
	return tn
}

func TestSend_PostsHTMLMessage(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottok/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	if err := newTestNotifier(srv.URL).Send(context.Background(), "<b>hi</b>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["chat_id"] != "42" || got["text"] != "<b>hi</b>" || got["parse_mode"] != "HTML" {
		t.Errorf("unexpected payload: %v", got)
	}
}

func TestSend_APIRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	err := newTestNotifier(srv.URL).Send(context.Background(), "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Description != "chat not found" {
		t.Errorf("unexpected description %q", apiErr.Description)
	}
}

func TestNotify_RetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	if err := newTestNotifier(srv.URL).Notify(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestNotify_GivesUp(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		retries int
		want    int32
	}{
		{"no retries", http.StatusBadGateway, 0, 1},
		{"retries exhausted", http.StatusBadGateway, 2, 3},
		{"bad token not retried", http.StatusUnauthorized, 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			tn := newTestNotifier(srv.URL)
			tn.Retries = tt.retries
			if err := tn.Notify(context.Background(), "x"); err == nil {
				t.Fatal("expected error")
			}
			if n := atomic.LoadInt32(&calls); n != tt.want {
				t.Errorf("expected %d attempts, got %d", tt.want, n)
			}
		})
	}
}

func TestNotify_StopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tn := newTestNotifier(srv.URL)
	tn.Retries = 5
	tn.Backoff = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	if err := tn.Notify(ctx, "x"); err == nil {
		t.Fatal("expected error after cancellation")
	}
	if elapsed := time.Since(start); elapsed > 900*time.Millisecond {
		t.Errorf("expected cancellation to cut the backoff short, took %v", elapsed)
	}
}

func TestStartPolling_AnswersCommands(t *testing.T) {
	var (
		mu      sync.Mutex
		offsets []int
		replies []map[string]string
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.URL.Path {
		case "/bottok/getUpdates":
			var req map[string]int
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode getUpdates: %v", err)
			}
			offsets = append(offsets, req["offset"])
			if len(offsets) == 1 {
				_, _ = w.Write([]byte(`{"ok":true,"result":[
					{"update_id":7,"message":{"text":" /price "}},
					{"update_id":8},
					{"update_id":9,"message":{"text":"/forecast"}}
				]}`))
				return
			}
			cancel()
			_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
		case "/bottok/sendMessage":
			var msg map[string]string
			if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
				t.Errorf("decode sendMessage: %v", err)
			}
			replies = append(replies, msg)
			_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	var handled []string
	done := make(chan struct{})
	go func() {
		newTestNotifier(srv.URL).StartPolling(ctx, func(cmd string) string {
			handled = append(handled, cmd)
			return "reply to " + cmd
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop after cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 2 || handled[0] != "/price" || handled[1] != "/forecast" {
		t.Errorf("unexpected handled commands: %v", handled)
	}
	if len(replies) != 2 || replies[0]["text"] != "reply to /price" || replies[1]["chat_id"] != "42" {
		t.Errorf("unexpected replies: %v", replies)
	}
	if len(offsets) < 2 || offsets[0] != 0 || offsets[1] != 10 {
		t.Errorf("expected offset to advance past the last update, got %v", offsets)
	}
}

func TestFormatRunSummary(t *testing.T) {
	res := &model.RunResult{
		Quote:      model.Quote{CoinID: "bitcoin", Currency: "usd", Price: 40000, Source: model.PriceSourceFallback},
		FinishedAt: time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local),
		Summaries: map[model.Horizon]model.SeriesSummary{
			model.Horizon1D: {Points: 24, Last: 40400, Min: 39900, Max: 40500},
			model.Horizon1W: {Points: 168, Last: 39600, Min: 39000, Max: 40800},
		},
	}
	msg := FormatRunSummary(res)
	for _, want := range []string{
		"40000.00 USD",
		"fallback price used",
		"1D: 40400.00 (+1.00%)",
		"1W: 39600.00 (-1.00%)",
		"2024-01-01 08:00",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "1M:") {
		t.Error("absent horizon should not be listed")
	}
}
