// Package websearch provides best-effort web search enrichment through
// the Tavily search API. Every failure mode is converted into an
// unsuccessful Response; nothing escapes this boundary as an error.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("resolvd.websearch")

// trustedDomainBoost is added to the relevance score of results hosted
// on a trusted technical domain, capped at 1.0.
const trustedDomainBoost = 0.2

// maxSnippetLength bounds each result snippet.
const maxSnippetLength = 500

// trustedDomains are hosts whose results get a relevance boost.
var trustedDomains = []string{
	"stackoverflow.com",
	"superuser.com",
	"serverfault.com",
	"github.com",
	"learn.microsoft.com",
	"developer.mozilla.org",
	"askubuntu.com",
}

// categoryQueryContext biases the search query toward the resolved
// category's problem domain.
var categoryQueryContext = map[string]string{
	"login_issue":     "authentication login troubleshooting",
	"bug_report":      "software bug crash fix",
	"technical_issue": "software error troubleshooting",
	"network_error":   "network connection troubleshooting",
	"performance":     "performance slow optimization",
	"integration":     "API integration configuration",
	"feature_request": "software feature documentation",
	"ui_ux":           "user interface display issue",
	"documentation":   "documentation how to guide",
}

// Config holds web search client settings.
type Config struct {
	// APIKey authenticates against the search API. Empty disables search.
	APIKey string

	// BaseURL is the API endpoint. Default: https://api.tavily.com
	BaseURL string

	// MaxResults caps returned results. Default: 3
	MaxResults int

	// Timeout bounds each search call. Default: 10s
	Timeout time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.tavily.com"
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

// Result is one ranked search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Response is the outcome of an enrichment attempt. Success false means
// the search contributed nothing; Error carries the reason.
type Response struct {
	Success bool     `json:"success"`
	Answer  string   `json:"answer,omitempty"`
	Results []Result `json:"results,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Client talks to the Tavily search API.
type Client struct {
	config Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a search client. A client with no API key is valid
// but reports unavailable.
func NewClient(config Config, logger *zap.Logger) *Client {
	config.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

// IsAvailable reports whether the client is configured for searching.
func (c *Client) IsAvailable() bool {
	return c != nil && c.config.APIKey != ""
}

type searchRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
	SearchDepth   string `json:"search_depth"`
}

type searchResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search runs an enriched query for the ticket and category. It never
// returns an error: failures come back as an unsuccessful Response.
func (c *Client) Search(ctx context.Context, query, category string) Response {
	ctx, span := tracer.Start(ctx, "Client.Search")
	defer span.End()

	span.SetAttributes(attribute.String("category", category))

	if !c.IsAvailable() {
		return Response{Success: false, Error: "web search not configured"}
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return Response{Success: false, Error: "empty query"}
	}

	enhanced := enhanceQuery(query, category)

	body, err := json.Marshal(searchRequest{
		APIKey:        c.config.APIKey,
		Query:         enhanced,
		MaxResults:    c.config.MaxResults,
		IncludeAnswer: true,
		SearchDepth:   "basic",
	})
	if err != nil {
		return Response{Success: false, Error: fmt.Sprintf("encoding request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return Response{Success: false, Error: fmt.Sprintf("building request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("web search request failed", zap.Error(err))
		return Response{Success: false, Error: fmt.Sprintf("search request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("search API returned status %d", resp.StatusCode)
		c.logger.Warn("web search rejected", zap.Int("status", resp.StatusCode))
		return Response{Success: false, Error: msg}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Response{Success: false, Error: fmt.Sprintf("reading response: %v", err)}
	}

	var parsed searchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Response{Success: false, Error: fmt.Sprintf("decoding response: %v", err)}
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: cleanSnippet(r.Content),
			Score:   boostScore(r.Score, r.URL),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > c.config.MaxResults {
		results = results[:c.config.MaxResults]
	}

	span.SetAttributes(attribute.Int("results", len(results)))
	return Response{
		Success: true,
		Answer:  strings.TrimSpace(parsed.Answer),
		Results: results,
	}
}

// enhanceQuery prepends category-specific domain terms to bias results.
func enhanceQuery(query, category string) string {
	ctxTerms, ok := categoryQueryContext[category]
	if !ok {
		return query
	}
	return ctxTerms + " " + query
}

// boostScore boosts results from trusted technical domains, capped at 1.0.
func boostScore(score float64, rawURL string) float64 {
	u, err := url.Parse(rawURL)
	if err != nil {
		return score
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, domain := range trustedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			score += trustedDomainBoost
			break
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// cleanSnippet collapses whitespace and bounds snippet length.
func cleanSnippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > maxSnippetLength {
		s = strings.TrimSpace(string(runes[:maxSnippetLength])) + "..."
	}
	return s
}
