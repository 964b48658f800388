package feeds

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// uaTransport adds a User-Agent header to every request.
type uaTransport struct {
	transport http.RoundTripper
}

func (t *uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", "lattice-site/1.0 (polite JSON feed consumer)")
	return t.transport.RoundTrip(req)
}

// Client fetches JSON resources relative to a base URL, honoring an optional
// mount prefix. Transport failures are errors; non-success statuses and
// undecodable bodies are reported as "absent" so callers can fall back.
type Client struct {
	base   string
	prefix string
	http   *http.Client
	log    *zap.Logger
}

// NewClient creates a feed client. A nil httpClient selects a default with a
// 30s timeout and the shared User-Agent transport.
func NewClient(baseURL, basePath string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   30 * time.Second,
			Transport: &uaTransport{transport: http.DefaultTransport},
		}
	}
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		prefix: strings.Trim(basePath, "/"),
		http:   httpClient,
		log:    logger,
	}
}

// Resolve normalizes a collaborator-relative path against the base URL,
// folding backslashes and stripping leading slashes first.
func (c *Client) Resolve(path string) string {
	path = strings.ReplaceAll(path, `\`, "/")
	path = strings.TrimLeft(path, "/")
	if c.prefix != "" {
		return c.base + "/" + c.prefix + "/" + path
	}
	return c.base + "/" + path
}

// GetJSON fetches the resource at path and decodes it into v. The bool result
// is false when the resource is unavailable (non-2xx or malformed body); the
// error is non-nil only for transport failures.
func (c *Client) GetJSON(ctx context.Context, path string, v any) (bool, error) {
	url := c.Resolve(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Debug("feed returned non-success status",
			zap.String("url", url), zap.Int("status", resp.StatusCode))
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		c.log.Warn("feed body is not valid JSON", zap.String("url", url), zap.Error(err))
		return false, nil
	}
	return true, nil
}
