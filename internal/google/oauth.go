package google

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
)

// Scopes are the Gmail scopes the server needs: reading mail and composing
// drafts and messages.
var Scopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailComposeScope,
}

var (
	ErrCredentialsMissing = errors.New("google client credentials not found")
	ErrTokenMissing       = errors.New("google token not found")
)

// LoadConfig reads the client secrets file downloaded from the Google Cloud
// console and returns an OAuth config for Scopes.
func LoadConfig(credentialsPath string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s: download an OAuth client from https://console.cloud.google.com/apis/credentials", ErrCredentialsMissing, credentialsPath)
		}
		return nil, fmt.Errorf("read credentials %s: %w", credentialsPath, err)
	}
	conf, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", credentialsPath, err)
	}
	return conf, nil
}

// storedToken accepts both the oauth2.Token encoding and the authorized-user
// encoding ("token" instead of "access_token").
type storedToken struct {
	AccessToken  string `json:"access_token"`
	Token        string `json:"token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	Expiry       string `json:"expiry"`
}

// LoadToken reads a stored user token. A token without a parseable expiry is
// treated as expired so that it is refreshed on first use.
func LoadToken(tokenPath string) (*oauth2.Token, error) {
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s: authorize the Gmail account once and place token.json there", ErrTokenMissing, tokenPath)
		}
		return nil, fmt.Errorf("read token %s: %w", tokenPath, err)
	}

	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse token %s: %w", tokenPath, err)
	}

	tok := &oauth2.Token{
		AccessToken:  st.AccessToken,
		TokenType:    st.TokenType,
		RefreshToken: st.RefreshToken,
		Expiry:       time.Unix(1, 0),
	}
	if tok.AccessToken == "" {
		tok.AccessToken = st.Token
	}
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}
	if st.Expiry != "" {
		if exp, err := time.Parse(time.RFC3339Nano, st.Expiry); err == nil {
			tok.Expiry = exp
		}
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("token %s has neither an access nor a refresh token", tokenPath)
	}
	return tok, nil
}

// NewHTTPClient returns a client that authorizes requests with the stored
// token and refreshes it when it expires. The underlying transport speaks
// HTTP/1.1 only.
func NewHTTPClient(ctx context.Context, credentialsPath, tokenPath string) (*http.Client, error) {
	conf, err := LoadConfig(credentialsPath)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(tokenPath)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: conf.TokenSource(ctx, tok),
			Base:   http1Transport(),
		},
		Timeout: 60 * time.Second,
	}, nil
}

func http1Transport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.ForceAttemptHTTP2 = false
	t.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	return t
}
