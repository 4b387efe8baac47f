// Package auth manages the Keycloak tokens of a Shanoir session. A Manager
// obtains the first access token with the OAuth2 password grant and swaps it
// for a fresh one with the refresh grant when the API rejects it. Token
// expiry is only logged, never acted upon: a stale token is discovered
// through a 401.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Keycloak client registered for the Shanoir uploader tooling. offline_access
// makes the server hand out a refresh token with the password grant.
const (
	DefaultClientID = "shanoir-uploader"
	offlineScope    = "offline_access"
)

// Known Keycloak error payloads for rejected credentials.
const (
	invalidCredentialsDescription = "Invalid user credentials"
	invalidGrantCode              = "invalid_grant"
)

// singleflight keys.
const (
	flightPassword = "password"
	flightRefresh  = "refresh"
)

// Config describes how to reach the identity provider.
type Config struct {
	TokenURL string
	ClientID string // defaults to DefaultClientID
	Username string
	Password PasswordFunc
	// Status, if set, receives short progress lines ("get keycloak token...").
	Status func(msg string)
}

// Manager owns the access and refresh tokens of one session. It is safe for
// concurrent use; concurrent grants of the same kind are coalesced.
type Manager struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	username   string
	password   PasswordFunc
	status     func(string)
	logger     *slog.Logger

	mu      sync.Mutex
	access  string
	refresh string

	flights singleflight.Group
}

// New creates a Manager. httpClient carries the proxy, TLS and timeout
// settings used for the token endpoint; nil means http.DefaultClient.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}

	status := cfg.Status
	if status == nil {
		status = func(string) {}
	}

	return &Manager{
		oauth: &oauth2.Config{
			ClientID: clientID,
			Scopes:   []string{offlineScope},
			Endpoint: oauth2.Endpoint{
				TokenURL: cfg.TokenURL,
				// Public client: client_id travels in the form body.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
		username:   cfg.Username,
		password:   cfg.Password,
		status:     status,
		logger:     logger,
	}
}

// Token returns the current access token, performing the password grant on
// first use.
func (m *Manager) Token(ctx context.Context) (string, error) {
	if tok := m.currentAccess(); tok != "" {
		return tok, nil
	}

	v, err, _ := m.flights.Do(flightPassword, func() (any, error) {
		// Another caller may have finished the grant while we waited.
		if tok := m.currentAccess(); tok != "" {
			return tok, nil
		}

		return m.passwordGrant(ctx)
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// Refresh exchanges the refresh token for a new access token and stores it.
// On failure the stored tokens are left untouched and ErrRefreshFailed is
// returned; the caller must not retry with the old token.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	v, err, _ := m.flights.Do(flightRefresh, func() (any, error) {
		return m.refreshGrant(ctx)
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

func (m *Manager) currentAccess() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.access
}

func (m *Manager) passwordGrant(ctx context.Context) (string, error) {
	if m.password == nil {
		return "", ErrNoPassword
	}

	password, err := m.password(m.username)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoPassword, err)
	}

	m.status("get keycloak token...")
	m.logger.Debug("requesting access token with password grant",
		slog.String("username", m.username),
		slog.String("token_url", m.oauth.Endpoint.TokenURL),
	)

	tok, err := m.oauth.PasswordCredentialsToken(m.clientContext(ctx), m.username, password)
	if err != nil {
		return "", m.classifyGrantError(err)
	}

	m.mu.Lock()
	m.access = tok.AccessToken
	m.refresh = tok.RefreshToken
	m.mu.Unlock()

	m.logger.Info("access token obtained", append([]any{
		slog.String("username", m.username),
		slog.Bool("has_refresh_token", tok.RefreshToken != ""),
	}, tokenAttrs(tok.AccessToken)...)...)

	return tok.AccessToken, nil
}

func (m *Manager) refreshGrant(ctx context.Context) (string, error) {
	m.mu.Lock()
	refresh := m.refresh
	m.mu.Unlock()

	if refresh == "" {
		return "", fmt.Errorf("%w: no refresh token held", ErrRefreshFailed)
	}

	m.status("refresh keycloak token...")

	// An empty access token is never valid, so the source goes straight to
	// the refresh grant.
	src := m.oauth.TokenSource(m.clientContext(ctx), &oauth2.Token{RefreshToken: refresh})

	tok, err := src.Token()
	if err != nil {
		attrs := []any{slog.String("error", err.Error())}

		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			attrs = append(attrs,
				slog.Int("status", re.Response.StatusCode),
				slog.String("reason", http.StatusText(re.Response.StatusCode)),
			)
		}

		m.logger.Error("token refresh failed", attrs...)

		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	m.mu.Lock()
	m.access = tok.AccessToken
	if tok.RefreshToken != "" {
		m.refresh = tok.RefreshToken
	}
	m.mu.Unlock()

	m.logger.Info("access token refreshed", tokenAttrs(tok.AccessToken)...)

	return tok.AccessToken, nil
}

// tokenAttrs describes an access token for the log without exposing it.
func tokenAttrs(raw string) []any {
	claims, ok := inspectToken(raw)
	if !ok {
		return nil
	}

	attrs := []any{slog.Duration("expires_in", claims.expiresIn(time.Now()).Round(time.Second))}
	if claims.PreferredUsername != "" {
		attrs = append(attrs, slog.String("subject", claims.PreferredUsername))
	}

	return attrs
}

// clientContext hands the configured HTTP client to the oauth2 library.
func (m *Manager) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

// classifyGrantError maps a failed password grant onto the sentinel errors.
func (m *Manager) classifyGrantError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		m.logger.Error("token endpoint unreachable", slog.String("error", err.Error()))

		return fmt.Errorf("%w: %w", ErrIdentityProviderUnreachable, err)
	}

	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}

	if re.ErrorDescription == invalidCredentialsDescription || re.ErrorCode == invalidGrantCode {
		m.logger.Error("credentials rejected",
			slog.String("username", m.username),
			slog.Int("status", status),
		)

		return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}

	m.logger.Error("token request failed",
		slog.Int("status", status),
		slog.String("error_code", re.ErrorCode),
	)

	return fmt.Errorf("%w: %w", ErrIdentityProviderUnreachable, err)
}
