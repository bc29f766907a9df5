package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const redditSourceID = "reddit"

// RedditOptions parameterise the Reddit adapter.
type RedditOptions struct {
	BaseURL     string
	UserAgent   string
	Limit       int
	Timeout     time.Duration
	Subreddits  map[string]string
	MaxAge      time.Duration
	QueryMaxAge time.Duration
}

// Reddit fetches posts from Reddit's public JSON API. Default topics map a
// symbol to its subreddit's hot listing; a query uses the sitewide search.
type Reddit struct {
	opts    RedditOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewReddit constructs a Reddit source adapter.
func NewReddit(opts RedditOptions, logger zerolog.Logger) *Reddit {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.reddit.com"
	}

	if opts.Limit <= 0 {
		opts.Limit = 8
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7 * 24 * time.Hour
	}
	if opts.QueryMaxAge <= 0 {
		opts.QueryMaxAge = 30 * 24 * time.Hour
	}

	return &Reddit{
		opts:    opts,
		logger:  logger.With().Str("component", "reddit_source").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// ID returns the source identifier.
func (r *Reddit) ID() string { return redditSourceID }

// Fetch retrieves fresh posts for a symbol, or search results for a query.
func (r *Reddit) Fetch(ctx context.Context, symbol, query string) ([]TextItem, error) {
	query = strings.TrimSpace(query)

	var endpoint string
	maxAge := r.opts.MaxAge
	if query != "" {
		endpoint = fmt.Sprintf("%s/search.json?q=%s&limit=%d&sort=relevance&type=link",
			r.baseURL, url.QueryEscape(query), r.opts.Limit)
		maxAge = r.opts.QueryMaxAge
	} else {
		subreddit, ok := r.opts.Subreddits[symbol]
		if !ok {
			return nil, fmt.Errorf("no subreddit configured for symbol %q", symbol)
		}
		endpoint = fmt.Sprintf("%s/r/%s/hot.json?limit=%d", r.baseURL, subreddit, r.opts.Limit)
	}

	listing, err := r.getListing(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	seen := make(map[string]struct{}, len(listing.Data.Children))
	items := make([]TextItem, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		post := child.Data
		title := strings.TrimSpace(post.Title)
		if title == "" {
			continue
		}

		created := time.Unix(int64(post.CreatedUTC), 0)
		if created.IsZero() || now.Sub(created) > maxAge {
			continue
		}

		// Search results contain cross-posts under the same title.
		key := strings.ToLower(title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		body := strings.TrimSpace(post.Selftext)
		if post.Stickied || body == "[removed]" || body == "[deleted]" {
			body = ""
		}

		text := title
		if body != "" {
			text += " — " + truncate(body, 200)
		}

		items = append(items, TextItem{
			SourceID:  redditSourceID,
			RawText:   text,
			FetchedAt: now,
		})
	}

	r.logger.Debug().Str("symbol", symbol).Str("query", query).Int("items", len(items)).Msg("reddit fetch complete")
	return items, nil
}

func (r *Reddit) getListing(ctx context.Context, endpoint string) (*redditListing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	// Reddit rate-limits requests without an identifying User-Agent.
	ua := strings.TrimSpace(r.opts.UserAgent)
	if ua == "" {
		ua = "sentifi/1.0"
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var listing redditListing
	if err := json.Unmarshal(payload, &listing); err != nil {
		return nil, fmt.Errorf("decode reddit listing: %w", err)
	}
	return &listing, nil
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Stickied   bool    `json:"stickied"`
	CreatedUTC float64 `json:"created_utc"`
	Permalink  string  `json:"permalink"`
	Ups        int     `json:"ups"`
	Subreddit  string  `json:"subreddit"`
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

var _ Source = (*Reddit)(nil)
