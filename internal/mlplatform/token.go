package mlplatform

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// apiKeyTokenSource exchanges the platform API key for a bearer token at the
// identity token endpoint. Wrapped in oauth2.ReuseTokenSource, so exchange
// happens only when the cached token has expired.
type apiKeyTokenSource struct {
	apiKey   string
	tokenURL string
	httpc    *http.Client
}

// expirySkew refreshes tokens slightly before the service-reported expiry.
const expirySkew = 30 * time.Second

func (s *apiKeyTokenSource) Token() (*oauth2.Token, error) {
	form := url.Values{}
	form.Set("grant_type", "apikey")
	form.Set("apikey", s.apiKey)

	resp, err := s.httpc.Post(
		s.tokenURL,
		"application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("token exchange: empty access token")
	}

	tok := &oauth2.Token{
		AccessToken: payload.AccessToken,
		TokenType:   payload.TokenType,
	}
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}
	if payload.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - expirySkew)
	}
	return tok, nil
}
