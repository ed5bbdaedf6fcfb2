package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Remote pricing endpoints. Exported as variables so tests can point them
// at httptest servers.
var (
	// GitHubURL serves community-maintained pricing JSON in the same shape
	// as the local config file.
	GitHubURL = "https://raw.githubusercontent.com/community/openai-pricing/main/pricing.json"

	// ExternalAPIURLs are tried in order; the first parseable response wins.
	ExternalAPIURLs = []string{
		"https://api.openai-pricing.com/v1/pricing",
		"https://api.ai-pricing-tracker.com/openai",
	}

	// WebScrapeURL is the public pricing page. The page must embed a
	// machine-readable pricing payload for scraping to succeed.
	WebScrapeURL = "https://openai.com/pricing"
)

const (
	fetchTimeout = 10 * time.Second
	maxBodySize  = 1 << 20 // 1 MB
	userAgent    = "promptroute-pricing/1.0"
)

// Fetcher retrieves pricing tables from remote sources. Each strategy
// returns an error on any failure; the loader treats all of them as
// recoverable and never lets one interrupt accounting.
type Fetcher struct {
	http *http.Client
}

// NewFetcher returns a fetcher with a timeout-bounded HTTP client.
func NewFetcher() *Fetcher {
	return &Fetcher{http: &http.Client{Timeout: fetchTimeout}}
}

// Fetch runs a single named strategy.
func (f *Fetcher) Fetch(ctx context.Context, method Method) (*Table, error) {
	switch method {
	case MethodGitHub:
		return f.fetchGitHub(ctx)
	case MethodExternalAPI:
		return f.fetchExternalAPI(ctx)
	case MethodWebScrape:
		return f.fetchWebScrape(ctx)
	default:
		return nil, fmt.Errorf("pricing: no fetch strategy for method %q", method)
	}
}

// fetchGitHub pulls the community-maintained pricing JSON.
func (f *Fetcher) fetchGitHub(ctx context.Context) (*Table, error) {
	body, err := f.get(ctx, GitHubURL)
	if err != nil {
		return nil, err
	}
	t, err := parseConfig(body)
	if err != nil {
		return nil, err
	}
	t.Source = SourceGitHub
	return t, nil
}

// fetchExternalAPI tries each configured pricing API in order.
func (f *Fetcher) fetchExternalAPI(ctx context.Context) (*Table, error) {
	var lastErr error
	for _, url := range ExternalAPIURLs {
		body, err := f.get(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		t, err := parseConfig(body)
		if err != nil {
			lastErr = err
			continue
		}
		t.Source = SourceExternalAPI
		return t, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("pricing: no external API sources configured")
	}
	return nil, lastErr
}

// fetchWebScrape pulls the public pricing page and extracts the embedded
// pricing payload. The page markup shifts often; a parse miss is an
// ordinary error, not a defect.
func (f *Fetcher) fetchWebScrape(ctx context.Context) (*Table, error) {
	body, err := f.get(ctx, WebScrapeURL)
	if err != nil {
		return nil, err
	}
	payload, err := extractEmbeddedJSON(string(body))
	if err != nil {
		return nil, err
	}
	t, err := parseConfig([]byte(payload))
	if err != nil {
		return nil, err
	}
	t.Source = SourceWebScrape
	return t, nil
}

// get performs a bounded GET and returns the body.
func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("pricing: creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pricing: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pricing: %s returned HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("pricing: reading %s: %w", url, err)
	}
	return body, nil
}

// extractEmbeddedJSON finds a JSON object embedded in an HTML page inside
// a <script type="application/json"> tag.
func extractEmbeddedJSON(page string) (string, error) {
	const marker = `type="application/json"`
	idx := strings.Index(page, marker)
	if idx < 0 {
		return "", fmt.Errorf("pricing: no embedded JSON payload in page")
	}
	rest := page[idx:]
	start := strings.Index(rest, ">")
	end := strings.Index(rest, "</script>")
	if start < 0 || end < 0 || end <= start {
		return "", fmt.Errorf("pricing: malformed embedded JSON payload")
	}
	payload := strings.TrimSpace(rest[start+1 : end])
	if !json.Valid([]byte(payload)) {
		return "", fmt.Errorf("pricing: embedded payload is not valid JSON")
	}
	return payload, nil
}
