// Package mlplatform is a client for the managed ML platform's REST API:
// training definitions, training jobs, the model repository, and online
// deployments. All resources live inside a space, which must be selected
// before any resource call.
package mlplatform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/animus-labs/modelpipe/internal/platform/env"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// apiVersion is pinned per platform API versioning rules; every request
// carries it as a query parameter.
const apiVersion = "2024-03-14"

// ErrNoSpace reports that a resource call was made before a space was
// selected on the client.
var ErrNoSpace = errors.New("no space selected")

// Credential identifies a platform tenant: an API key plus the regional
// service endpoint. The key is exchanged for a bearer token at TokenURL.
type Credential struct {
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
	TokenURL string `yaml:"token_url"`
}

func CredentialFromEnv() (Credential, error) {
	cred := Credential{
		APIKey:   env.String("MODELPIPE_PLATFORM_API_KEY", ""),
		Endpoint: env.String("MODELPIPE_PLATFORM_ENDPOINT", ""),
		TokenURL: env.String("MODELPIPE_PLATFORM_TOKEN_URL", ""),
	}
	if err := cred.Validate(); err != nil {
		return Credential{}, err
	}
	return cred, nil
}

func (c Credential) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("api key is required")
	}
	endpoint := strings.TrimSpace(c.Endpoint)
	if endpoint == "" {
		return errors.New("endpoint is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("endpoint must be an absolute URL: %q", c.Endpoint)
	}
	return nil
}

// BaseURL composes the API base from the regional endpoint.
func (c Credential) BaseURL() (*url.URL, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(c.Endpoint), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	return u, nil
}

// Client calls the platform API. Safe for sequential use; resource calls
// fail with ErrNoSpace until SetSpace is called.
type Client struct {
	base    *url.URL
	httpc   *http.Client
	tokens  oauth2.TokenSource
	spaceID string
}

// Option adjusts client construction.
type Option func(*Client)

func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		if httpc != nil {
			c.httpc = httpc
		}
	}
}

// WithTokenSource replaces the API-key token exchange, e.g. in tests.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		if ts != nil {
			c.tokens = ts
		}
	}
}

func NewClient(cred Credential, opts ...Option) (*Client, error) {
	base, err := cred.BaseURL()
	if err != nil {
		return nil, err
	}
	c := &Client{
		base:  base,
		httpc: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokens == nil {
		tokenURL := strings.TrimSpace(cred.TokenURL)
		if tokenURL == "" {
			tokenURL = base.JoinPath("/identity/token").String()
		}
		c.tokens = oauth2.ReuseTokenSource(nil, &apiKeyTokenSource{
			apiKey:   cred.APIKey,
			tokenURL: tokenURL,
			httpc:    c.httpc,
		})
	}
	return c, nil
}

// SetSpace selects the space all subsequent resource calls are scoped to.
func (c *Client) SetSpace(spaceID string) error {
	spaceID = strings.TrimSpace(spaceID)
	if spaceID == "" {
		return errors.New("space id is required")
	}
	c.spaceID = spaceID
	return nil
}

func (c *Client) SpaceID() string {
	return c.spaceID
}

// doJSON performs a space-scoped JSON request. A nil in sends no body; a nil
// out discards the response body.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	resp, err := c.do(ctx, method, path, query, body, "application/json")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do performs a space-scoped request with an arbitrary body, returning the
// response for the caller to drain.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	if c.spaceID == "" {
		return nil, ErrNoSpace
	}

	u := c.base.JoinPath(path)
	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("version", apiVersion)
	q.Set("space_id", c.spaceID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("platform token: %w", err)
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Correlation-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		return nil, decodeAPIError(resp)
	}
	return resp, nil
}
