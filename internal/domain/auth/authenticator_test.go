package auth

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
)

// denyLimiter rejects every request, for checking pipeline ordering.
type denyLimiter struct{}

func (denyLimiter) Allow(string) bool { return false }

// allowLimiter admits every request.
type allowLimiter struct{}

func (allowLimiter) Allow(string) bool { return true }

func newTestRequest(t *testing.T) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	r.RemoteAddr = "192.0.2.10:51234"
	r.Header.Set("User-Agent", "test-client/1.0")
	return r
}

func TestAuthenticate_DisabledShortCircuits(t *testing.T) {
	t.Parallel()

	a := NewAuthenticator(Settings{Enabled: false}, nil, denyLimiter{}, nil)

	ip, err := a.Authenticate(newTestRequest(t))
	if err != nil {
		t.Fatalf("Authenticate() = %v, want nil", err)
	}
	if ip != "192.0.2.10" {
		t.Errorf("resolved IP = %q, want 192.0.2.10", ip)
	}
}

func TestAuthenticate_WhitelistPrecedesRateLimit(t *testing.T) {
	t.Parallel()

	// The caller is outside the whitelist AND over quota; the 403 must win.
	filter := NewIPFilter([]string{"10.0.0.0/8"}, nil)
	a := NewAuthenticator(Settings{Enabled: true, Method: MethodAPIKey, APIKey: "k"}, filter, denyLimiter{}, nil)

	_, err := a.Authenticate(newTestRequest(t))
	authErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %v", err)
	}
	if authErr.Status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", authErr.Status)
	}
}

func TestAuthenticate_RateLimitPrecedesCredentials(t *testing.T) {
	t.Parallel()

	// Valid credentials but over quota; the 429 must win.
	a := NewAuthenticator(Settings{Enabled: true, Method: MethodAPIKey, APIKey: "k"}, nil, denyLimiter{}, nil)

	r := newTestRequest(t)
	r.Header.Set("X-API-Key", "k")

	_, err := a.Authenticate(r)
	authErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %v", err)
	}
	if authErr.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", authErr.Status)
	}
}

func TestAuthenticate_APIKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int // 0 means success
	}{
		{"header match", "secret-key", "", 0},
		{"query fallback", "", "secret-key", 0},
		{"missing", "", "", http.StatusUnauthorized},
		{"mismatch", "wrong-key", "", http.StatusUnauthorized},
		{"header wins over query", "secret-key", "ignored", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := NewAuthenticator(Settings{Enabled: true, Method: MethodAPIKey, APIKey: "secret-key"}, nil, allowLimiter{}, nil)

			r := newTestRequest(t)
			if tt.header != "" {
				r.Header.Set("X-API-Key", tt.header)
			}
			if tt.query != "" {
				q := r.URL.Query()
				q.Set("api_key", tt.query)
				r.URL.RawQuery = q.Encode()
			}

			_, err := a.Authenticate(r)
			if tt.wantStatus == 0 {
				if err != nil {
					t.Errorf("Authenticate() = %v, want nil", err)
				}
				return
			}
			authErr, ok := AsError(err)
			if !ok {
				t.Fatalf("expected *Error, got %v", err)
			}
			if authErr.Status != tt.wantStatus {
				t.Errorf("status = %d, want %d", authErr.Status, tt.wantStatus)
			}
		})
	}
}

func TestAuthenticate_Bearer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		authorization string
		wantOK        bool
	}{
		{"exact scheme", "Bearer tok-123", true},
		{"case-insensitive scheme", "bEaReR tok-123", true},
		{"wrong scheme", "Basic tok-123", false},
		{"missing header", "", false},
		{"missing token", "Bearer ", false},
		{"wrong token", "Bearer nope", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := NewAuthenticator(Settings{Enabled: true, Method: MethodBearer, BearerToken: "tok-123"}, nil, allowLimiter{}, nil)

			r := newTestRequest(t)
			if tt.authorization != "" {
				r.Header.Set("Authorization", tt.authorization)
			}

			_, err := a.Authenticate(r)
			if tt.wantOK && err != nil {
				t.Errorf("Authenticate() = %v, want nil", err)
			}
			if !tt.wantOK && err == nil {
				t.Error("Authenticate() = nil, want error")
			}
		})
	}
}

func TestAuthenticate_Basic(t *testing.T) {
	t.Parallel()

	a := NewAuthenticator(Settings{
		Enabled:       true,
		Method:        MethodBasic,
		BasicUsername: "admin",
		BasicPassword: "secret",
	}, nil, allowLimiter{}, nil)

	// base64("admin:secret")
	const good = "YWRtaW46c2VjcmV0"

	r := newTestRequest(t)
	r.Header.Set("Authorization", "Basic "+good)
	if _, err := a.Authenticate(r); err != nil {
		t.Fatalf("valid basic credentials rejected: %v", err)
	}

	// Any single-character mutation of the payload must fail with 401.
	for i := 0; i < len(good); i++ {
		mutated := []byte(good)
		if mutated[i] == 'A' {
			mutated[i] = 'B'
		} else {
			mutated[i] = 'A'
		}

		r := newTestRequest(t)
		r.Header.Set("Authorization", "Basic "+string(mutated))
		_, err := a.Authenticate(r)
		authErr, ok := AsError(err)
		if !ok {
			t.Fatalf("mutation at %d: expected *Error, got %v", i, err)
		}
		if authErr.Status != http.StatusUnauthorized {
			t.Errorf("mutation at %d: status = %d, want 401", i, authErr.Status)
		}
	}
}

func TestAuthenticate_BasicSplitsOnFirstColon(t *testing.T) {
	t.Parallel()

	a := NewAuthenticator(Settings{
		Enabled:       true,
		Method:        MethodBasic,
		BasicUsername: "admin",
		BasicPassword: "pa:ss:word",
	}, nil, allowLimiter{}, nil)

	encoded := base64.StdEncoding.EncodeToString([]byte("admin:pa:ss:word"))
	r := newTestRequest(t)
	r.Header.Set("Authorization", "Basic "+encoded)

	if _, err := a.Authenticate(r); err != nil {
		t.Errorf("password containing colons rejected: %v", err)
	}
}

func TestEnsureSecrets_GeneratesMissing(t *testing.T) {
	t.Parallel()

	a := NewAuthenticator(Settings{Enabled: true, Method: MethodAPIKey}, nil, nil, nil)
	if err := a.EnsureSecrets(); err != nil {
		t.Fatalf("EnsureSecrets() = %v", err)
	}
	if a.settings.APIKey == "" {
		t.Error("expected a generated API key")
	}

	// Generated secret must authenticate.
	r := newTestRequest(t)
	r.Header.Set("X-API-Key", a.settings.APIKey)
	if _, err := a.Authenticate(r); err != nil {
		t.Errorf("generated key rejected: %v", err)
	}
}

func TestEnsureSecrets_KeepsConfigured(t *testing.T) {
	t.Parallel()

	a := NewAuthenticator(Settings{Enabled: true, Method: MethodBearer, BearerToken: "configured"}, nil, nil, nil)
	if err := a.EnsureSecrets(); err != nil {
		t.Fatalf("EnsureSecrets() = %v", err)
	}
	if a.settings.BearerToken != "configured" {
		t.Errorf("BearerToken = %q, want configured", a.settings.BearerToken)
	}
}
