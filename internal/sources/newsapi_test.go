package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pressbeat/press-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWindow() models.DateWindow {
	end := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	return models.DateWindow{Start: end.Add(-24 * time.Hour), End: end}
}

func TestNewsAPISource_Name(t *testing.T) {
	source := NewNewsAPISource("api_key")
	assert.Equal(t, "newsapi", source.Name())
}

func TestNewsAPISource_IsEnabled(t *testing.T) {
	tests := []struct {
		name     string
		apiKey   string
		expected bool
	}{
		{
			name:     "API key provided",
			apiKey:   "api_key",
			expected: true,
		},
		{
			name:     "No API key",
			apiKey:   "",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := NewNewsAPISource(tt.apiKey)
			assert.Equal(t, tt.expected, source.IsEnabled())
		})
	}
}

func TestNewsAPISource_MissingKeyDegradesToEmpty(t *testing.T) {
	source := NewNewsAPISource("")

	mentions, err := source.FetchMentions(context.Background(), "Zomato", testWindow())

	assert.NoError(t, err)
	assert.Empty(t, mentions)
}

func TestNewsAPISource_FetchMentions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Zomato", r.URL.Query().Get("q"))
		assert.Equal(t, "2025-06-01", r.URL.Query().Get("from"))
		assert.Equal(t, "2025-06-02", r.URL.Query().Get("to"))
		assert.Equal(t, "publishedAt", r.URL.Query().Get("sortBy"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "ok",
			"articles": [
				{
					"source": {"name": "Business Daily"},
					"title": "Zomato expands into quick commerce",
					"url": "https://example.com/a1",
					"publishedAt": "2025-06-01T10:30:00Z",
					"description": "The company announced..."
				},
				{
					"source": {"name": null},
					"title": "Untimed piece about Zomato",
					"url": "https://example.com/a2",
					"publishedAt": "",
					"description": null
				}
			]
		}`))
	}))
	defer server.Close()

	source := NewNewsAPISource("api_key")
	source.SetBaseURL(server.URL)

	mentions, err := source.FetchMentions(context.Background(), "Zomato", testWindow())
	require.NoError(t, err)
	require.Len(t, mentions, 2)

	assert.Equal(t, "Zomato", mentions[0].Brand)
	assert.Equal(t, "Zomato expands into quick commerce", mentions[0].Title)
	assert.Equal(t, "Business Daily", mentions[0].Source)
	assert.Equal(t, "https://example.com/a1", mentions[0].URL)
	require.NotNil(t, mentions[0].PublishedAt)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC), mentions[0].PublishedAt.UTC())

	// Absent provider fields stay zero
	assert.Equal(t, "", mentions[1].Source)
	assert.Nil(t, mentions[1].PublishedAt)
	assert.Equal(t, "", mentions[1].Snippet)
}

func TestNewsAPISource_TransportErrorKeepsCause(t *testing.T) {
	// Point at a server that is already gone so the dial fails.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	source := NewNewsAPISource("api_key")
	source.SetBaseURL(server.URL)

	_, err := source.FetchMentions(context.Background(), "Zomato", testWindow())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "refused")
}

func TestNewsAPISource_ErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		statusCode  int
		body        string
		expectedErr error
	}{
		{
			name:        "Rejected credentials",
			statusCode:  401,
			body:        `{"status":"error","code":"apiKeyInvalid","message":"bad key"}`,
			expectedErr: ErrSourceUnauthorized,
		},
		{
			name:        "Rate limited",
			statusCode:  429,
			body:        `{"status":"error","code":"rateLimited","message":"too many requests"}`,
			expectedErr: ErrSourceUnavailable,
		},
		{
			name:        "Server error",
			statusCode:  500,
			body:        `oops`,
			expectedErr: ErrSourceUnavailable,
		},
		{
			name:        "Malformed payload",
			statusCode:  200,
			body:        `{"status": "ok", "articles": [`,
			expectedErr: ErrSourceUnavailable,
		},
		{
			name:        "Provider-level error status",
			statusCode:  200,
			body:        `{"status":"error","code":"parameterInvalid","message":"bad from date"}`,
			expectedErr: ErrSourceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			source := NewNewsAPISource("api_key")
			source.SetBaseURL(server.URL)

			_, err := source.FetchMentions(context.Background(), "Zomato", testWindow())
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}
