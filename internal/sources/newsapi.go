package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pressbeat/press-tracker/internal/models"
	"github.com/sirupsen/logrus"
)

const defaultNewsAPIBaseURL = "https://newsapi.org/v2"

// NewsAPISource fetches press mentions from the NewsAPI "everything" endpoint.
// One outbound call per (brand, window) pair, no internal retries.
type NewsAPISource struct {
	apiKey  string
	baseURL string
	client  *resty.Client
}

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Description string `json:"description"`
}

// NewNewsAPISource creates a new NewsAPI source
func NewNewsAPISource(apiKey string) *NewsAPISource {
	return &NewsAPISource{
		apiKey:  apiKey,
		baseURL: defaultNewsAPIBaseURL,
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "Press-Tracker/1.0"),
	}
}

// SetBaseURL overrides the provider endpoint. Used by tests.
func (n *NewsAPISource) SetBaseURL(baseURL string) {
	n.baseURL = baseURL
}

func (n *NewsAPISource) Name() string {
	return "newsapi"
}

func (n *NewsAPISource) IsEnabled() bool {
	return n.apiKey != ""
}

// FetchMentions returns the articles mentioning brand inside the window.
// A missing API key degrades to an empty result rather than an error, so the
// pipeline always receives a well-formed collection.
func (n *NewsAPISource) FetchMentions(ctx context.Context, brand string, window models.DateWindow) ([]models.Mention, error) {
	if !n.IsEnabled() {
		logrus.Debug("NewsAPI source disabled - missing API key")
		return nil, nil
	}

	searchURL := fmt.Sprintf("%s/everything?q=%s&language=en&from=%s&to=%s&sortBy=publishedAt&apiKey=%s",
		n.baseURL,
		url.QueryEscape(brand),
		window.Start.Format("2006-01-02"),
		window.End.Format("2006-01-02"),
		n.apiKey)

	resp, err := n.client.R().
		SetContext(ctx).
		Get(searchURL)

	if err != nil {
		return nil, fmt.Errorf("newsapi request for %q failed: %v: %w", brand, err, ErrSourceUnavailable)
	}

	switch resp.StatusCode() {
	case 200:
		// fall through to decoding
	case 401, 403:
		return nil, fmt.Errorf("newsapi returned status %d for %q: %w", resp.StatusCode(), brand, ErrSourceUnauthorized)
	default:
		return nil, fmt.Errorf("newsapi returned status %d for %q: %w", resp.StatusCode(), brand, ErrSourceUnavailable)
	}

	var searchResp newsAPIResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("newsapi payload for %q malformed: %w", brand, ErrSourceUnavailable)
	}

	if searchResp.Status != "ok" {
		return nil, fmt.Errorf("newsapi error %s (%s) for %q: %w", searchResp.Code, searchResp.Message, brand, ErrSourceUnavailable)
	}

	mentions := make([]models.Mention, 0, len(searchResp.Articles))
	for _, article := range searchResp.Articles {
		mention := models.Mention{
			Brand:   brand,
			Title:   article.Title,
			Source:  article.Source.Name,
			URL:     article.URL,
			Snippet: article.Description,
		}

		if article.PublishedAt != "" {
			if publishedAt, err := time.Parse(time.RFC3339, article.PublishedAt); err == nil {
				mention.PublishedAt = &publishedAt
			}
		}

		mentions = append(mentions, mention)
	}

	logrus.Debugf("NewsAPI returned %d articles for %q", len(mentions), brand)
	return mentions, nil
}
