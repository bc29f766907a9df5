package classify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sentifi/internal/feeds"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestSignedScore(t *testing.T) {
	pos := Result{Label: Positive, Confidence: 0.9}
	if got := pos.SignedScore(); got != 0.9 {
		t.Fatalf("positive signed score should equal confidence, got %v", got)
	}
	neg := Result{Label: Negative, Confidence: 0.3}
	if got := neg.SignedScore(); got != -0.3 {
		t.Fatalf("negative signed score should be -confidence, got %v", got)
	}
}

func TestValidateContract(t *testing.T) {
	if err := Validate(Positive, 0.5); err != nil {
		t.Fatalf("valid output should pass: %v", err)
	}
	if err := Validate(Positive, 1.2); !errors.Is(err, ErrContractViolation) {
		t.Fatalf("confidence above 1 should violate the contract, got %v", err)
	}
	if err := Validate(Negative, -0.1); !errors.Is(err, ErrContractViolation) {
		t.Fatalf("negative confidence should violate the contract, got %v", err)
	}
	if err := Validate(Label("NEUTRAL"), 0.5); !errors.Is(err, ErrContractViolation) {
		t.Fatalf("unknown label should violate the contract, got %v", err)
	}
}

func TestLexiconRejectsEmptyInput(t *testing.T) {
	lex := NewLexicon()
	if _, _, err := lex.Classify(context.Background(), "   \t\n"); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("whitespace-only text should fail with ErrEmptyInput, got %v", err)
	}
}

func TestLexiconPolarity(t *testing.T) {
	lex := NewLexicon()

	label, conf, err := lex.Classify(context.Background(), "Bitcoin rally continues, ETF approval drives record adoption")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if label != Positive {
		t.Fatalf("bullish text should classify POSITIVE, got %s", label)
	}
	if conf <= 0.5 || conf > 0.95 {
		t.Fatalf("confidence out of expected band: %v", conf)
	}

	label, _, err = lex.Classify(context.Background(), "Exchange hack triggers selloff and liquidation cascade")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if label != Negative {
		t.Fatalf("bearish text should classify NEGATIVE, got %s", label)
	}
}

func TestLexiconDeterministic(t *testing.T) {
	lex := NewLexicon()
	text := "markets surge after upgrade"
	l1, c1, _ := lex.Classify(context.Background(), text)
	l2, c2, _ := lex.Classify(context.Background(), text)
	if l1 != l2 || c1 != c2 {
		t.Fatal("lexicon classifier must be deterministic")
	}
}

func TestHTTPClassifySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[[{"label":"NEGATIVE","score":0.12},{"label":"POSITIVE","score":0.88}]]`))
	}))
	defer srv.Close()

	c := NewHTTP(HTTPOptions{Endpoint: srv.URL, Timeout: time.Second}, noopLogger())
	label, conf, err := c.Classify(context.Background(), "great news")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if label != Positive {
		t.Fatalf("top score should win, got %s", label)
	}
	if conf != 0.88 {
		t.Fatalf("expected confidence 0.88, got %v", conf)
	}
}

func TestHTTPClassifyFlatResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"label":"NEGATIVE","score":0.97}]`))
	}))
	defer srv.Close()

	c := NewHTTP(HTTPOptions{Endpoint: srv.URL, Timeout: time.Second}, noopLogger())
	label, conf, err := c.Classify(context.Background(), "bad news")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if label != Negative || conf != 0.97 {
		t.Fatalf("unexpected result %s/%v", label, conf)
	}
}

func TestHTTPClassifyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTP(HTTPOptions{Endpoint: srv.URL, Timeout: time.Second}, noopLogger())
	if _, _, err := c.Classify(context.Background(), "text"); err == nil {
		t.Fatal("HTTP 500 should surface as an error")
	}
}

func TestHTTPClassifyEmptyInput(t *testing.T) {
	c := NewHTTP(HTTPOptions{Endpoint: "http://localhost:0"}, noopLogger())
	if _, _, err := c.Classify(context.Background(), ""); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("empty text must never reach the model, got %v", err)
	}
}

func TestResultCarriesItem(t *testing.T) {
	item := feeds.TextItem{SourceID: "news", RawText: "headline", FetchedAt: time.Now()}
	res := Result{Item: item, Label: Positive, Confidence: 0.7}
	if res.Item.SourceID != "news" {
		t.Fatal("result should retain its originating item")
	}
}
