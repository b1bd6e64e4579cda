// Package newsapi provides a client for the NewsAPI "everything" endpoint.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "https://newsapi.org/v2"
	DefaultTimeout = 10 * time.Second

	// MaxArticles caps the feed after filtering
	MaxArticles = 12

	pageSize        = 20
	removedTitle    = "[Removed]"
	publishedLayout = "Jan 2, 2006 · 3:04 PM"
)

// Article is a single news item as served to the frontend
type Article struct {
	Title       string `json:"title" msgpack:"title"`
	Description string `json:"description" msgpack:"description"`
	URL         string `json:"url" msgpack:"url"`
	URLToImage  string `json:"urlToImage" msgpack:"url_to_image"`
	PublishedAt string `json:"publishedAt" msgpack:"published_at"`
	Source      string `json:"source" msgpack:"source"`
}

// Client fetches market news
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new NewsAPI client. An empty baseURL uses the public endpoint.
func NewClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("client", "newsapi").Logger(),
	}
}

type everythingResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Title       *string `json:"title"`
		Description string  `json:"description"`
		URL         string  `json:"url"`
		URLToImage  string  `json:"urlToImage"`
		PublishedAt string  `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// StockNews returns up to MaxArticles recent stock-market articles.
// Articles without a title or with a removed title are dropped.
func (c *Client) StockNews(ctx context.Context) ([]Article, error) {
	params := url.Values{}
	params.Set("q", "stock market")
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", fmt.Sprintf("%d", pageSize))
	params.Set("apiKey", c.apiKey)
	reqURL := fmt.Sprintf("%s/everything?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var body everythingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if body.Status != "ok" {
		return nil, fmt.Errorf("newsapi returned status %q: %s", body.Status, body.Message)
	}

	articles := make([]Article, 0, MaxArticles)
	for _, a := range body.Articles {
		if a.Title == nil || *a.Title == removedTitle {
			continue
		}
		articles = append(articles, Article{
			Title:       *a.Title,
			Description: a.Description,
			URL:         a.URL,
			URLToImage:  a.URLToImage,
			PublishedAt: formatPublished(a.PublishedAt),
			Source:      a.Source.Name,
		})
		if len(articles) == MaxArticles {
			break
		}
	}

	c.log.Debug().Int("articles", len(articles)).Msg("Fetched news")
	return articles, nil
}

// formatPublished renders ISO timestamps as "Jan 2, 2006 · 3:04 PM".
// Short or unparsable values are returned unchanged.
func formatPublished(s string) string {
	if len(s) <= 10 {
		return s
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.Format(publishedLayout)
}
