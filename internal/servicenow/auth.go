// Authentication for ServiceNow API access.
//
// Two mechanisms are supported:
//
//   - HTTP Basic Auth: username:password encoded as base64 in the
//     Authorization header. The header is built once at construction time.
//
//   - OAuth 2.0 Password Grant: client_id, client_secret, username, and
//     password are sent to /oauth_token.do and the resulting bearer token is
//     refreshed proactively before it expires, with ForceRefresh available
//     for the HTTP client to call on a 401.
//
// All authenticator implementations are safe for concurrent use. The OAuth
// authenticator uses sync.RWMutex so concurrent readers see either the old
// (still valid) token or the new one, never a partial state.
package servicenow

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/hematic/servicenow-client/internal/config"
)

// Authenticator provides authentication header values for ServiceNow API
// requests. Implementations must be safe for concurrent use.
type Authenticator interface {
	// Token returns the current Authorization header value. For basic auth
	// this is "Basic <base64>", for OAuth "Bearer <token>".
	Token(ctx context.Context) (string, error)

	// ForceRefresh forces a credential refresh. Called by the HTTP client
	// when it receives a 401 Unauthorized response. No-op for basic auth.
	ForceRefresh(ctx context.Context) error

	// Close stops any background goroutines.
	Close()
}

// ----- Basic Authenticator -----

// BasicAuthenticator implements Authenticator using HTTP Basic Authentication
// per RFC 7617. The header is encoded once at construction time.
type BasicAuthenticator struct {
	header string
}

// NewBasicAuthenticator creates a BasicAuthenticator from the given
// credentials. Both values must be ASCII: RFC 7617 leaves the charset of the
// userid/password undefined and ServiceNow instances disagree on non-ASCII
// handling, so rather than silently truncating we fail with *EncodingError.
func NewBasicAuthenticator(username, password string) (*BasicAuthenticator, error) {
	if !isASCII(username) {
		return nil, &EncodingError{Field: "username"}
	}
	if !isASCII(password) {
		return nil, &EncodingError{Field: "password"}
	}
	encoded := base64.StdEncoding.EncodeToString(
		[]byte(username + ":" + password),
	)
	return &BasicAuthenticator{
		header: "Basic " + encoded,
	}, nil
}

// isASCII reports whether s contains only ASCII bytes.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// Token returns the pre-computed "Basic <base64>" header value.
func (b *BasicAuthenticator) Token(_ context.Context) (string, error) {
	return b.header, nil
}

// ForceRefresh is a no-op for basic auth — credentials never expire.
func (b *BasicAuthenticator) ForceRefresh(_ context.Context) error {
	return nil
}

// Close is a no-op for basic auth — no background goroutines to stop.
func (b *BasicAuthenticator) Close() {}

// ----- OAuth Authenticator -----

// oauthTokenResponse matches the JSON response from ServiceNow's OAuth endpoint.
type oauthTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// OAuthAuthenticator implements Authenticator using ServiceNow's OAuth 2.0
// password grant flow. A background goroutine refreshes the token
// refreshBuffer before expiry; ForceRefresh covers revocation and clock skew.
type OAuthAuthenticator struct {
	baseURL      string
	tokenPath    string
	clientID     string
	clientSecret string
	username     string
	password     string
	httpClient   *http.Client
	logger       *slog.Logger

	// Token state — protected by mu
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// refreshBuffer is how long before expiry a refresh is triggered.
	refreshBuffer time.Duration
}

// NewOAuthAuthenticator creates an OAuthAuthenticator and performs the
// initial token acquisition synchronously, so the caller learns immediately
// if the credentials are invalid. The caller must Close() it when done.
func NewOAuthAuthenticator(ctx context.Context, cfg config.ServiceNowConfig, logger *slog.Logger) (*OAuthAuthenticator, error) {
	o := &OAuthAuthenticator{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		tokenPath:     cfg.Auth.OAuth.TokenPath,
		clientID:      cfg.Auth.OAuth.ClientID,
		clientSecret:  cfg.Auth.OAuth.ClientSecret,
		username:      cfg.Auth.OAuth.Username,
		password:      cfg.Auth.OAuth.Password,
		refreshBuffer: 60 * time.Second,
		logger:        logger.With("component", "oauth-auth"),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}

	if err := o.doRefresh(ctx); err != nil {
		return nil, fmt.Errorf("initial OAuth token acquisition: %w", err)
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.wg.Add(1)
	go o.refreshLoop(bgCtx)

	return o, nil
}

// Token returns the current "Bearer <access_token>" header value. Safe for
// concurrent use while a refresh is in progress.
func (o *OAuthAuthenticator) Token(_ context.Context) (string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.accessToken == "" {
		return "", fmt.Errorf("no OAuth token available")
	}
	return "Bearer " + o.accessToken, nil
}

// ForceRefresh triggers an immediate token refresh. Called by the HTTP client
// when it receives a 401 response.
func (o *OAuthAuthenticator) ForceRefresh(ctx context.Context) error {
	o.logger.Info("forced token refresh triggered (likely 401 response)")
	return o.doRefresh(ctx)
}

// Close stops the background refresh goroutine and waits for it to exit.
func (o *OAuthAuthenticator) Close() {
	if o.cancel != nil {
		o.cancel()
		o.wg.Wait()
	}
}

// refreshLoop proactively refreshes the token at expiresAt - refreshBuffer.
// On failure it retries with exponential backoff up to maxRetries before
// waiting for the next natural refresh cycle.
func (o *OAuthAuthenticator) refreshLoop(ctx context.Context) {
	defer o.wg.Done()

	for {
		o.mu.RLock()
		refreshAt := o.expiresAt.Add(-o.refreshBuffer)
		o.mu.RUnlock()

		delay := time.Until(refreshAt)
		if delay < 0 {
			delay = 0
		}

		o.logger.Debug("scheduling proactive token refresh",
			"refresh_in", delay.Round(time.Second),
		)

		select {
		case <-ctx.Done():
			o.logger.Info("OAuth refresh loop shutting down")
			return
		case <-time.After(delay):
		}

		const maxRetries = 5
		backoff := time.Second
		var err error
		for attempt := 0; attempt <= maxRetries; attempt++ {
			if attempt > 0 {
				o.logger.Warn("retrying token refresh",
					"attempt", attempt,
					"backoff", backoff,
					"error", err,
				)
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				backoff *= 2
			}

			err = o.doRefresh(ctx)
			if err == nil {
				break
			}
		}
		if err != nil {
			o.logger.Error("proactive token refresh failed after retries",
				"max_retries", maxRetries,
				"error", err,
			)
		}
	}
}

// doRefresh performs the OAuth password-grant token request and swaps in the
// new token under the write lock.
func (o *OAuthAuthenticator) doRefresh(ctx context.Context) error {
	tokenURL := o.baseURL + o.tokenPath

	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {o.clientID},
		"client_secret": {o.clientSecret},
		"username":      {o.username},
		"password":      {o.password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading token response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("OAuth token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp oauthTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return fmt.Errorf("parsing token response JSON: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return fmt.Errorf("OAuth response did not contain an access_token")
	}

	o.mu.Lock()
	o.accessToken = tokenResp.AccessToken
	o.refreshToken = tokenResp.RefreshToken
	if tokenResp.ExpiresIn > 0 {
		o.expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	} else {
		// Default to 30 minutes if the server doesn't specify expiry.
		o.expiresAt = time.Now().Add(30 * time.Minute)
	}
	o.mu.Unlock()

	o.logger.Info("OAuth token acquired", "expires_in", tokenResp.ExpiresIn)
	return nil
}

// NewAuthenticator creates the Authenticator matching the configured auth
// type. Returns an error for an unknown type, non-encodable basic
// credentials, or a failed initial OAuth token acquisition.
func NewAuthenticator(ctx context.Context, cfg config.ServiceNowConfig, logger *slog.Logger) (Authenticator, error) {
	switch cfg.Auth.Type {
	case "basic":
		return NewBasicAuthenticator(cfg.Auth.Basic.Username, cfg.Auth.Basic.Password)
	case "oauth":
		return NewOAuthAuthenticator(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported auth type: %q", cfg.Auth.Type)
	}
}
