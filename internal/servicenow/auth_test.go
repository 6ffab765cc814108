package servicenow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/hematic/servicenow-client/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newTestOAuthServer creates an httptest.Server that mimics ServiceNow's
// /oauth_token.do endpoint.
func newTestOAuthServer(t *testing.T, expiresIn int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth_token.do" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		resp := oauthTokenResponse{
			AccessToken:  "test-access-token-" + time.Now().Format("150405"),
			RefreshToken: "test-refresh-token",
			Scope:        "useraccount",
			TokenType:    "Bearer",
			ExpiresIn:    expiresIn,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestBasicAuthenticator_Token(t *testing.T) {
	auth, err := NewBasicAuthenticator("admin", "secret")
	if err != nil {
		t.Fatalf("NewBasicAuthenticator failed: %v", err)
	}
	token, err := auth.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// "admin:secret" → base64 "YWRtaW46c2VjcmV0"
	want := "Basic YWRtaW46c2VjcmV0"
	if token != want {
		t.Errorf("Token() = %q, want %q", token, want)
	}
}

func TestBasicAuthenticator_NonASCIICredentials(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		password  string
		wantField string
	}{
		{"non-ascii username", "ädmin", "secret", "username"},
		{"non-ascii password", "admin", "pässword", "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBasicAuthenticator(tt.username, tt.password)
			var encErr *EncodingError
			if !errors.As(err, &encErr) {
				t.Fatalf("expected *EncodingError, got %v", err)
			}
			if encErr.Field != tt.wantField {
				t.Errorf("EncodingError.Field = %q, want %q", encErr.Field, tt.wantField)
			}
		})
	}
}

func TestBasicAuthenticator_ForceRefresh(t *testing.T) {
	auth, err := NewBasicAuthenticator("user", "pass")
	if err != nil {
		t.Fatalf("NewBasicAuthenticator failed: %v", err)
	}
	if err := auth.ForceRefresh(context.Background()); err != nil {
		t.Fatalf("ForceRefresh should be no-op, got error: %v", err)
	}
}

func TestBasicAuthenticator_ConcurrentAccess(t *testing.T) {
	auth, err := NewBasicAuthenticator("user", "pass")
	if err != nil {
		t.Fatalf("NewBasicAuthenticator failed: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := auth.Token(context.Background())
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if token == "" {
				t.Error("empty token")
			}
		}()
	}
	wg.Wait()
}

func oauthTestConfig(baseURL string) config.ServiceNowConfig {
	return config.ServiceNowConfig{
		BaseURL:        baseURL,
		TimeoutSeconds: 10,
		Auth: config.AuthConfig{
			Type: "oauth",
			OAuth: config.OAuthConfig{
				ClientID:     "test-client",
				ClientSecret: "test-secret",
				Username:     "admin",
				Password:     "admin123",
				TokenPath:    "/oauth_token.do",
			},
		},
	}
}

func TestOAuthAuthenticator_InitialTokenAcquisition(t *testing.T) {
	srv := newTestOAuthServer(t, 1800)
	defer srv.Close()

	auth, err := NewOAuthAuthenticator(context.Background(), oauthTestConfig(srv.URL), testLogger())
	if err != nil {
		t.Fatalf("NewOAuthAuthenticator failed: %v", err)
	}
	defer auth.Close()

	token, err := auth.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	if len(token) < 8 { // "Bearer " + at least 1 char
		t.Errorf("Token too short: %q", token)
	}
}

func TestOAuthAuthenticator_ForceRefresh(t *testing.T) {
	srv := newTestOAuthServer(t, 1800)
	defer srv.Close()

	auth, err := NewOAuthAuthenticator(context.Background(), oauthTestConfig(srv.URL), testLogger())
	if err != nil {
		t.Fatalf("NewOAuthAuthenticator failed: %v", err)
	}
	defer auth.Close()

	if err := auth.ForceRefresh(context.Background()); err != nil {
		t.Fatalf("ForceRefresh failed: %v", err)
	}
	token, err := auth.Token(context.Background())
	if err != nil || token == "" {
		t.Fatalf("Token() after refresh: %q, %v", token, err)
	}
}

func TestOAuthAuthenticator_InvalidCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer srv.Close()

	_, err := NewOAuthAuthenticator(context.Background(), oauthTestConfig(srv.URL), testLogger())
	if err == nil {
		t.Fatal("expected error for invalid credentials")
	}
}

func TestNewAuthenticator_Factory(t *testing.T) {
	srv := newTestOAuthServer(t, 1800)
	defer srv.Close()

	basicCfg := config.ServiceNowConfig{
		BaseURL: "https://example.com",
		Auth: config.AuthConfig{
			Type: "basic",
			Basic: config.BasicConfig{
				Username: "admin",
				Password: "secret",
			},
		},
	}
	auth, err := NewAuthenticator(context.Background(), basicCfg, testLogger())
	if err != nil {
		t.Fatalf("NewAuthenticator(basic) failed: %v", err)
	}
	auth.Close()

	auth2, err := NewAuthenticator(context.Background(), oauthTestConfig(srv.URL), testLogger())
	if err != nil {
		t.Fatalf("NewAuthenticator(oauth) failed: %v", err)
	}
	auth2.Close()

	invalidCfg := config.ServiceNowConfig{
		Auth: config.AuthConfig{Type: "kerberos"},
	}
	if _, err := NewAuthenticator(context.Background(), invalidCfg, testLogger()); err == nil {
		t.Fatal("expected error for unsupported auth type")
	}
}
