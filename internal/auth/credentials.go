package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultTokenURL is the Login with Amazon token endpoint
	DefaultTokenURL = "https://api.amazon.com/auth/o2/token"

	// DefaultScope grants read/write access to the Appstore Submission API
	DefaultScope = "appstore::apps:readwrite"
)

// ErrEmptyToken is returned when the token endpoint answers without an access token
var ErrEmptyToken = errors.New("token response has no access_token")

// ClientCredentials exchanges a client id and secret for an access token
// using the OAuth2 client-credentials grant. A fresh token is fetched on
// every call; nothing is cached or refreshed.
type ClientCredentials struct {
	cfg        clientcredentials.Config
	httpClient *http.Client
}

// NewClientCredentials creates a token source for the given credentials
func NewClientCredentials(clientID, clientSecret string, timeout time.Duration) *ClientCredentials {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ClientCredentials{
		cfg: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     DefaultTokenURL,
			Scopes:       []string{DefaultScope},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithTokenURL sets a custom token endpoint (useful for testing)
func (c *ClientCredentials) WithTokenURL(tokenURL string) *ClientCredentials {
	if tokenURL != "" {
		c.cfg.TokenURL = tokenURL
	}
	return c
}

// Token fetches an access token. Failures from the endpoint carry the raw
// response body as their message.
func (c *ClientCredentials) Token(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.cfg.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && len(retrieveErr.Body) > 0 {
			return "", errors.New(strings.TrimSpace(string(retrieveErr.Body)))
		}
		return "", fmt.Errorf("fetch token: %w", err)
	}

	if tok.AccessToken == "" {
		return "", ErrEmptyToken
	}
	return tok.AccessToken, nil
}
