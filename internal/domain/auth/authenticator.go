package auth

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/insightfinder/mcp-server-go/internal/domain/ratelimit"
)

// Authentication methods selectable in Settings.Method.
const (
	MethodAPIKey = "api_key"
	MethodBearer = "bearer"
	MethodBasic  = "basic"
)

// Settings is the immutable snapshot of authentication configuration,
// loaded once at startup.
type Settings struct {
	// Enabled turns authentication on or off.
	Enabled bool

	// Method selects the credential scheme: api_key, bearer, or basic.
	Method string

	// APIKey is the shared secret for the api_key method.
	APIKey string

	// BearerToken is the shared secret for the bearer method.
	BearerToken string

	// BasicUsername and BasicPassword are the basic method credentials.
	BasicUsername string
	BasicPassword string

	// TrustProxyHeaders enables forwarded-header client IP resolution.
	TrustProxyHeaders bool
}

// Authenticator verifies requests against the IP whitelist, then the rate
// limiter, then the configured credential method.
type Authenticator struct {
	settings Settings
	filter   *IPFilter
	limiter  ratelimit.Limiter
	logger   *slog.Logger
}

// NewAuthenticator creates an Authenticator.
// limiter may be nil when rate limiting is disabled; filter may be nil
// when no whitelist is configured.
func NewAuthenticator(settings Settings, filter *IPFilter, limiter ratelimit.Limiter, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	if filter == nil {
		filter = NewIPFilter(nil, logger)
	}
	return &Authenticator{
		settings: settings,
		filter:   filter,
		limiter:  limiter,
		logger:   logger,
	}
}

// EnsureSecrets generates a random secret for the selected method when
// auth is enabled but no secret is configured. The generated value is
// logged as a warning so operators can connect; it is an operational
// convenience, not a security feature.
func (a *Authenticator) EnsureSecrets() error {
	if !a.settings.Enabled {
		return nil
	}

	switch a.settings.Method {
	case MethodAPIKey:
		if a.settings.APIKey != "" {
			return nil
		}
		secret, err := GenerateSecret()
		if err != nil {
			return err
		}
		a.settings.APIKey = secret
		a.logger.Warn("no API key configured, generated one for this run",
			"api_key", secret,
			"hint", "set auth.api_key (or IF_MCP_AUTH_API_KEY) to use a fixed key")

	case MethodBearer:
		if a.settings.BearerToken != "" {
			return nil
		}
		secret, err := GenerateSecret()
		if err != nil {
			return err
		}
		a.settings.BearerToken = secret
		a.logger.Warn("no bearer token configured, generated one for this run",
			"bearer_token", secret,
			"hint", "set auth.bearer_token (or IF_MCP_AUTH_BEARER_TOKEN) to use a fixed token")

	case MethodBasic:
		if a.settings.BasicPassword != "" {
			return nil
		}
		secret, err := GenerateSecret()
		if err != nil {
			return err
		}
		a.settings.BasicPassword = secret
		a.logger.Warn("no basic auth password configured, generated one for this run",
			"username", a.settings.BasicUsername,
			"password", secret,
			"hint", "set auth.basic_password (or IF_MCP_AUTH_BASIC_PASSWORD) to use a fixed password")
	}

	return nil
}

// Authenticate verifies the request and returns the resolved client IP.
//
// Order matters: IP whitelist (403) precedes rate limit (429) precedes
// the credential check (401). When auth is globally disabled, the
// request is admitted after IP resolution with no further checks.
func (a *Authenticator) Authenticate(r *http.Request) (string, error) {
	clientIP := ResolveClientIP(r, a.settings.TrustProxyHeaders)

	if !a.settings.Enabled {
		return clientIP, nil
	}

	if !a.filter.Allowed(clientIP) {
		return clientIP, NewAuthorizationError(fmt.Sprintf("IP address %s not in whitelist", clientIP))
	}

	if a.limiter != nil {
		identity := ratelimit.NewClientIdentity(clientIP, r.Header.Get("User-Agent"))
		if !a.limiter.Allow(identity.Key()) {
			return clientIP, NewRateLimitError("Rate limit exceeded. Please try again later.")
		}
	}

	switch a.settings.Method {
	case MethodAPIKey:
		return clientIP, a.checkAPIKey(r)
	case MethodBearer:
		return clientIP, a.checkBearer(r)
	case MethodBasic:
		return clientIP, a.checkBasic(r)
	default:
		return clientIP, NewAuthenticationError(fmt.Sprintf("Unsupported authentication method: %s", a.settings.Method))
	}
}

// checkAPIKey verifies the X-API-Key header, falling back to the
// api_key query parameter.
func (a *Authenticator) checkAPIKey(r *http.Request) error {
	apiKey := r.Header.Get("X-API-Key")
	if apiKey == "" {
		apiKey = r.URL.Query().Get("api_key")
	}

	if apiKey == "" {
		return NewAuthenticationError("Missing API key")
	}
	if !VerifySecret(apiKey, a.settings.APIKey) {
		return NewAuthenticationError("Invalid API key")
	}
	return nil
}

// checkBearer verifies the Authorization: Bearer header.
func (a *Authenticator) checkBearer(r *http.Request) error {
	authorization := r.Header.Get("Authorization")
	if authorization == "" {
		return NewAuthenticationError("Missing Authorization header")
	}

	scheme, token, _ := strings.Cut(authorization, " ")
	if !strings.EqualFold(scheme, "bearer") {
		return NewAuthenticationError("Invalid authentication scheme")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return NewAuthenticationError("Missing bearer token")
	}
	if !VerifySecret(token, a.settings.BearerToken) {
		return NewAuthenticationError("Invalid bearer token")
	}
	return nil
}

// checkBasic verifies the Authorization: Basic header.
func (a *Authenticator) checkBasic(r *http.Request) error {
	authorization := r.Header.Get("Authorization")
	if authorization == "" {
		return NewAuthenticationError("Missing Authorization header")
	}

	scheme, encoded, _ := strings.Cut(authorization, " ")
	if !strings.EqualFold(scheme, "basic") {
		return NewAuthenticationError("Invalid authentication scheme")
	}
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return NewAuthenticationError("Missing credentials")
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return NewAuthenticationError("Invalid credentials format")
	}
	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return NewAuthenticationError("Invalid credentials format")
	}

	if username != a.settings.BasicUsername || !VerifySecret(password, a.settings.BasicPassword) {
		return NewAuthenticationError("Invalid username or password")
	}
	return nil
}
