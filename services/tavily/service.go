// Package tavily is a client for the Tavily search API, used by the agent's
// web-search fallback tool.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jaxonc/AIE7-Certification-Challenge/models"
)

const defaultBaseURL = "https://api.tavily.com"

type Service struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
}

func NewService(apiKey string) *Service {
	return NewServiceWithBaseURL(apiKey, defaultBaseURL)
}

// NewServiceWithBaseURL exists so tests can point the client at a local
// httptest server.
func NewServiceWithBaseURL(apiKey, baseURL string) *Service {
	return &Service{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxResults: 5,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type searchRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search returns ranked web snippets for the query, in provider order.
func (s *Service) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	log.Printf("[INFO] Starting Tavily search for %q", query)

	body, err := json.Marshal(searchRequest{
		APIKey:     s.apiKey,
		Query:      query,
		MaxResults: s.maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode Tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build Tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Tavily returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode Tavily response: %w", err)
	}

	results := make([]models.SearchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, models.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Score:   r.Score,
		})
	}

	log.Printf("[INFO] Tavily returned %d results for %q", len(results), query)
	return results, nil
}
