package mlplatform

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
)

func TestAPIKeyTokenSourceRefreshesExpiredTokens(t *testing.T) {
	var exchanges int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		// expires_in below the refresh skew, so every issued token is
		// already considered expired.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": fmt.Sprintf("tok-%d", exchanges),
			"token_type":   "Bearer",
			"expires_in":   1,
		})
	}))
	defer srv.Close()

	ts := oauth2.ReuseTokenSource(nil, &apiKeyTokenSource{
		apiKey:   "k",
		tokenURL: srv.URL,
		httpc:    srv.Client(),
	})

	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Token() err=%v", err)
	}
	if tok.AccessToken != "tok-1" {
		t.Fatalf("AccessToken=%q, want tok-1", tok.AccessToken)
	}

	tok, err = ts.Token()
	if err != nil {
		t.Fatalf("Token() err=%v", err)
	}
	if tok.AccessToken != "tok-2" {
		t.Fatalf("AccessToken=%q, want tok-2 after expiry", tok.AccessToken)
	}
	if exchanges != 2 {
		t.Fatalf("exchanges=%d, want 2", exchanges)
	}
}

func TestAPIKeyTokenSourceRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusUnauthorized)
	}))
	defer srv.Close()

	ts := &apiKeyTokenSource{apiKey: "k", tokenURL: srv.URL, httpc: srv.Client()}
	if _, err := ts.Token(); err == nil {
		t.Fatalf("Token() expected error for 401")
	}
}
