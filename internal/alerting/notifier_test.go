package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestTelegramNotifierSendsMessage(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	notifier := NewTelegramNotifier("token123", "chat456", server.URL, 0, zerolog.Nop())

	note := Notification{
		Symbol:      "BTC",
		Value:       0.4,
		Encoded:     40,
		Threshold:   0.25,
		Direction:   "bullish",
		SampleCount: 3,
		TxHash:      "0xabc",
	}
	if err := notifier.Notify(context.Background(), note); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}

	if gotPath != "/bottoken123/sendMessage" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotPayload["chat_id"] != "chat456" {
		t.Errorf("unexpected chat_id %q", gotPayload["chat_id"])
	}
	text := gotPayload["text"]
	for _, want := range []string{"BTC", "+0.4000", "+40", "bullish", "0xabc"} {
		if !strings.Contains(text, want) {
			t.Errorf("message missing %q:\n%s", want, text)
		}
	}
}

func TestTelegramNotifierServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier := NewTelegramNotifier("token", "chat", server.URL, 0, zerolog.Nop())
	err := notifier.Notify(context.Background(), Notification{Symbol: "ETH"})
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestTelegramNotifierNotOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false}`))
	}))
	defer server.Close()

	notifier := NewTelegramNotifier("token", "chat", server.URL, 0, zerolog.Nop())
	if err := notifier.Notify(context.Background(), Notification{Symbol: "ETH"}); err == nil {
		t.Fatal("expected error for ok=false response")
	}
}

func TestDirection(t *testing.T) {
	cases := []struct {
		value float64
		want  string
	}{
		{0.4, "bullish"},
		{-0.01, "bearish"},
		{0, "neutral"},
	}
	for _, tc := range cases {
		if got := Direction(tc.value); got != tc.want {
			t.Errorf("Direction(%v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}
