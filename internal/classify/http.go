package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// HTTPOptions parameterise the inference-server adapter.
type HTTPOptions struct {
	Endpoint  string
	Timeout   time.Duration
	UserAgent string
}

// HTTP classifies text by calling a locally served text-classification
// endpoint speaking the HuggingFace pipeline wire format. The model is
// expected on the same host so per-call latency stays low and bounded.
type HTTP struct {
	opts   HTTPOptions
	logger zerolog.Logger
	client *http.Client
}

// NewHTTP constructs the inference-server classifier.
func NewHTTP(opts HTTPOptions, logger zerolog.Logger) *HTTP {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTP{
		opts:   opts,
		logger: logger.With().Str("component", "http_classifier").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// Classify posts the text to the inference endpoint and returns the top
// label with its confidence.
func (h *HTTP) Classify(ctx context.Context, text string) (Label, float64, error) {
	if err := checkInput(text); err != nil {
		return "", 0, err
	}
	if h.opts.Endpoint == "" {
		return "", 0, errors.New("classifier endpoint not configured")
	}

	body, err := json.Marshal(inferenceRequest{Inputs: text})
	if err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(h.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("inference error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	label, confidence, err := parseInference(payload)
	if err != nil {
		return "", 0, err
	}

	return label, confidence, nil
}

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

type inferenceScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// parseInference accepts the two shapes the pipeline wire format uses:
// a flat list of scores, or one nested list per input.
func parseInference(payload []byte) (Label, float64, error) {
	var flat []inferenceScore
	if err := json.Unmarshal(payload, &flat); err != nil {
		var nested [][]inferenceScore
		if err := json.Unmarshal(payload, &nested); err != nil || len(nested) == 0 {
			return "", 0, fmt.Errorf("decode inference response: %s", strings.TrimSpace(string(payload)))
		}
		flat = nested[0]
	}
	if len(flat) == 0 {
		return "", 0, errors.New("inference response contained no scores")
	}

	top := flat[0]
	for _, s := range flat[1:] {
		if s.Score > top.Score {
			top = s
		}
	}
	return Label(top.Label), top.Score, nil
}

var _ Classifier = (*HTTP)(nil)
