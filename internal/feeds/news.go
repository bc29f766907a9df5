package feeds

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const newsSourceID = "news"

var (
	htmlTagPattern   = regexp.MustCompile(`<[^>]+>`)
	queryWordPattern = regexp.MustCompile(`[a-zA-Z0-9]{3,}`)
)

// FeedEndpoint names one RSS feed to poll.
type FeedEndpoint struct {
	Name string
	URL  string
}

// NewsOptions parameterise the news RSS adapter.
type NewsOptions struct {
	Feeds     []FeedEndpoint
	Keywords  map[string][]string
	Limit     int
	Timeout   time.Duration
	UserAgent string
	MaxAge    time.Duration
}

// News aggregates headlines from crypto news RSS feeds, filtered by
// symbol keywords or by words extracted from a free-text query.
type News struct {
	opts   NewsOptions
	logger zerolog.Logger
	client *http.Client
}

// NewNews constructs a news RSS source adapter.
func NewNews(opts NewsOptions, logger zerolog.Logger) *News {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7 * 24 * time.Hour
	}

	return &News{
		opts:   opts,
		logger: logger.With().Str("component", "news_source").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// ID returns the source identifier.
func (n *News) ID() string { return newsSourceID }

// Fetch reads the configured feeds and returns headlines matching the
// symbol's keywords, or the query words when a query is given.
func (n *News) Fetch(ctx context.Context, symbol, query string) ([]TextItem, error) {
	keywords := n.matchKeywords(symbol, query)

	now := time.Now().UTC()
	items := make([]TextItem, 0, n.opts.Limit)
	var lastErr error

	for _, feed := range n.opts.Feeds {
		if len(items) >= n.opts.Limit {
			break
		}

		channel, err := n.fetchFeed(ctx, feed)
		if err != nil {
			n.logger.Warn().Err(err).Str("feed", feed.Name).Msg("feed fetch failed")
			lastErr = err
			continue
		}

		for _, entry := range channel.Items {
			if len(items) >= n.opts.Limit {
				break
			}

			title := strings.TrimSpace(entry.Title)
			if title == "" {
				continue
			}

			desc := strings.TrimSpace(entry.Description)
			haystack := strings.ToLower(title + " " + desc)
			if len(keywords) > 0 && !containsAny(haystack, keywords) {
				continue
			}

			if published, ok := parsePubDate(entry.PubDate); ok && now.Sub(published) > n.opts.MaxAge {
				continue
			}

			cleaned := strings.TrimSpace(truncate(htmlTagPattern.ReplaceAllString(desc, ""), 200))
			text := title
			if cleaned != "" && !strings.EqualFold(cleaned, title) {
				text += " — " + cleaned
			}

			items = append(items, TextItem{
				SourceID:  newsSourceID,
				RawText:   text,
				FetchedAt: now,
			})
		}
	}

	if len(items) == 0 && lastErr != nil {
		return nil, fmt.Errorf("all feeds failed: %w", lastErr)
	}

	n.logger.Debug().Str("symbol", symbol).Str("query", query).Int("items", len(items)).Msg("news fetch complete")
	return items, nil
}

func (n *News) matchKeywords(symbol, query string) []string {
	query = strings.TrimSpace(query)
	if query != "" {
		words := queryWordPattern.FindAllString(query, -1)
		keywords := make([]string, 0, len(words))
		for _, w := range words {
			keywords = append(keywords, strings.ToLower(w))
		}
		return keywords
	}
	if kws, ok := n.opts.Keywords[symbol]; ok {
		return kws
	}
	return []string{strings.ToLower(symbol)}
}

func (n *News) fetchFeed(ctx context.Context, feed FeedEndpoint) (*rssChannel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, err
	}
	ua := strings.TrimSpace(n.opts.UserAgent)
	if ua == "" {
		ua = "sentifi/1.0"
	}
	req.Header.Set("User-Agent", ua)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s feed error (%d)", feed.Name, resp.StatusCode)
	}

	var doc rssDocument
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("parse %s feed: %w", feed.Name, err)
	}
	return &doc.Channel, nil
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

func parsePubDate(pub string) (time.Time, bool) {
	pub = strings.TrimSpace(pub)
	if pub == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822} {
		if t, err := time.Parse(layout, pub); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

type rssDocument struct {
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

var _ Source = (*News)(nil)
