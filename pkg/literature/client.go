// Package literature searches the PubMed E-utilities API and turns its
// records into Paper values.
//
// A search is two sequential requests: esearch.fcgi resolves the expanded
// query to a ranked PMID list and a server-side history handle (WebEnv +
// query_key), and efetch.fcgi pulls the full records through that handle.
// See https://www.ncbi.nlm.nih.gov/books/NBK25499/.
package literature

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is the NCBI E-utilities endpoint.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultMaxResults is used when Search is called with maxResults <= 0.
	DefaultMaxResults = 20

	defaultTool = "research-assistant"
	userAgent   = "research-assistant/1.0"
	maxBodySize = 10 << 20
)

var (
	// ErrNoResults means the index matched zero identifiers for the query.
	ErrNoResults = errors.New("no research papers found")

	// ErrUpstream matches every *UpstreamError.
	ErrUpstream = errors.New("literature index request failed")

	// ErrEmptyQuery means nothing searchable was left after cleaning.
	ErrEmptyQuery = errors.New("empty search query")
)

// UpstreamError describes a failed or unreadable E-utilities response.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", ErrUpstream, e.Endpoint)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " returned status %d", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// Config holds the client settings. Zero values fall back to defaults.
type Config struct {
	// BaseURL overrides DefaultBaseURL.
	BaseURL string

	// APIKey is the optional NCBI API key.
	APIKey string

	// Email and Tool identify the caller to NCBI.
	Email string
	Tool  string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to esearch/efetch.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Tool == "" {
		cfg.Tool = defaultTool
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

// Search cleans and expands query, then returns up to maxResults papers in
// the relevance order reported by esearch. It returns ErrNoResults when no
// identifier matches and an *UpstreamError when either request fails.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Paper, error) {
	cleaned := CleanQuery(query)
	term := ExpandQuery(cleaned)
	if term == "" {
		return nil, ErrEmptyQuery
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	c.logger.InfoContext(ctx, "Fetching research papers", "query", cleaned, "max_results", maxResults)

	found, err := c.esearch(ctx, term, maxResults)
	if err != nil {
		return nil, err
	}
	if len(found.IDs) == 0 {
		c.logger.InfoContext(ctx, "No research papers found", "query", cleaned)
		return nil, ErrNoResults
	}

	set, err := c.efetch(ctx, found, maxResults)
	if err != nil {
		return nil, err
	}

	papers := c.keepValid(ctx, orderByIDs(found.IDs, set.Articles))
	c.logger.InfoContext(ctx, "Fetched research papers", "ids", len(found.IDs), "papers", len(papers))
	return papers, nil
}

func (c *Client) esearch(ctx context.Context, term string, maxResults int) (*esearchResult, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", term)
	params.Set("retmax", strconv.Itoa(maxResults))
	params.Set("sort", "relevance")
	params.Set("usehistory", "y")

	var result esearchResult
	if err := c.get(ctx, "esearch.fcgi", params, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, &UpstreamError{Endpoint: "esearch.fcgi", Err: errors.New(result.Error)}
	}
	return &result, nil
}

func (c *Client) efetch(ctx context.Context, found *esearchResult, maxResults int) (*articleSet, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	if found.WebEnv != "" && found.QueryKey != "" {
		params.Set("WebEnv", found.WebEnv)
		params.Set("query_key", found.QueryKey)
		params.Set("retstart", "0")
		params.Set("retmax", strconv.Itoa(maxResults))
	} else {
		// esearch did not hand back a history handle; fall back to the ids.
		params.Set("id", strings.Join(found.IDs, ","))
	}
	params.Set("retmode", "xml")
	params.Set("rettype", "abstract")

	var set articleSet
	if err := c.get(ctx, "efetch.fcgi", params, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, v any) error {
	params.Set("tool", c.cfg.Tool)
	if c.cfg.Email != "" {
		params.Set("email", c.cfg.Email)
	}
	if c.cfg.APIKey != "" {
		params.Set("api_key", c.cfg.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", endpoint, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return &UpstreamError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.ErrorContext(ctx, "E-utilities returned non-200 status code", "endpoint", endpoint, "status", resp.StatusCode)
		return &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	if err := xml.Unmarshal(body, v); err != nil {
		return &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to unmarshal XML: %w", err)}
	}
	return nil
}

// orderByIDs returns one paper per id, in id order, skipping ids efetch did
// not return and links already seen.
func orderByIDs(ids []string, articles []pubmedArticle) []Paper {
	byID := make(map[string]pubmedArticle, len(articles))
	for _, a := range articles {
		byID[strings.TrimSpace(a.PMID)] = a
	}

	papers := make([]Paper, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		a, ok := byID[strings.TrimSpace(id)]
		if !ok {
			continue
		}
		p := a.toPaper()
		if seen[p.Link] {
			continue
		}
		seen[p.Link] = true
		papers = append(papers, p)
	}
	return papers
}

// keepValid drops records E-utilities returned without a usable title or link.
func (c *Client) keepValid(ctx context.Context, papers []Paper) []Paper {
	valid := papers[:0]
	for _, p := range papers {
		if err := p.Validate(); err != nil {
			c.logger.WarnContext(ctx, "Skipping malformed record", "error", err)
			continue
		}
		valid = append(valid, p)
	}
	return valid
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
