package feeds

import (
	"context"
	"time"
)

// TextItem is one piece of public text as fetched from a source.
// Immutable once created.
type TextItem struct {
	SourceID  string
	RawText   string
	FetchedAt time.Time
}

// SourceStatus reports the outcome of one adapter's fetch.
type SourceStatus struct {
	SourceID string
	OK       bool
	Count    int
	Err      string
}

// Source fetches a finite batch of text items. An empty query uses the
// adapter's default topic set for the symbol; a non-empty query searches.
type Source interface {
	ID() string
	Fetch(ctx context.Context, symbol, query string) ([]TextItem, error)
}
