// Package apiclient calls the holdings backend on behalf of a browser.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/holdings-portal/internal/navigation"
	"github.com/openkcm/holdings-portal/internal/serviceerr"
)

// LoginPath is where the client navigates when the backend rejects the token.
const LoginPath = "/login"

// maxErrorBody limits how much of an error response is kept.
const maxErrorBody = 4 << 10

// Credentials provides the bearer token of the current browser.
type Credentials interface {
	BearerToken(ctx context.Context) (string, bool)
}

// HTTPError is returned for non-success responses other than 401 and 403.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return strconv.Itoa(e.StatusCode) + " " + e.Body
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials Credentials
	nav         navigation.Navigator
}

func New(baseURL string, httpClient *http.Client, credentials Credentials, nav navigation.Navigator) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  httpClient,
		credentials: credentials,
		nav:         nav,
	}
}

// URL resolves path against the base URL.
func (c *Client) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

// Do issues the request and decodes a successful JSON response into T. The
// request is bound to ctx.
func Do[T any](ctx context.Context, c *Client, method, path string) (T, error) {
	var out T

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), nil)
	if err != nil {
		return out, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token, ok := c.credentials.BearerToken(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if serviceerr.IsUnauthorizedStatus(resp.StatusCode) {
		slogctx.Info(ctx, "Backend rejected the session", "status", resp.StatusCode, "path", path)
		c.nav.Navigate(LoginPath)

		return out, &serviceerr.UnauthorizedError{StatusCode: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       errorBody(resp),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decoding response: %w", err)
	}

	return out, nil
}

func errorBody(resp *http.Response) string {
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(b) == 0 {
		return http.StatusText(resp.StatusCode)
	}

	return string(b)
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	return Do[HealthResponse](ctx, c, http.MethodGet, "/health")
}

// Holdings calls GET /holdings. With refresh the backend bypasses its cache.
func (c *Client) Holdings(ctx context.Context, refresh bool) (HoldingsResponse, error) {
	path := "/holdings"
	if refresh {
		path += "?refresh=1"
	}

	return Do[HoldingsResponse](ctx, c, http.MethodGet, path)
}
