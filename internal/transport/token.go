package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// gracePeriod refreshes the token this long before it actually expires.
	gracePeriod = 60 * time.Second
	// defaultTTL is used when a login response's JWT carries no exp claim.
	defaultTTL = 600 * time.Second
	// loginRetryInterval is how long a failed login waits before retrying;
	// login retries forever and never aborts the process (spec §7).
	loginRetryInterval = 10 * time.Second
)

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

// TokenProvider caches a bearer token for one Credentials set, refreshing
// it shortly before expiry and coalescing concurrent refreshes into a
// single login call (spec §6, §4.10).
type TokenProvider struct {
	creds  Credentials
	client *http.Client
	name   string

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenProvider builds a provider for one credential set. name is used
// only for log messages.
func NewTokenProvider(name string, creds Credentials, client *http.Client) *TokenProvider {
	return &TokenProvider{name: name, creds: creds, client: client}
}

// EnsureToken returns a cached token if it has more than gracePeriod left,
// otherwise performs a single-flight login.
func (p *TokenProvider) EnsureToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && time.Now().Before(p.expiresAt.Add(-gracePeriod)) {
		return p.token, nil
	}

	token, expiresAt, err := p.login(ctx)
	if err != nil {
		return "", err
	}
	p.token = token
	p.expiresAt = expiresAt
	return token, nil
}

// Invalidate forces the next EnsureToken call to perform a fresh login,
// used on a 401 response (spec §7).
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
	p.expiresAt = time.Time{}
}

// login retries indefinitely on failure (bad credentials or network),
// since a persistently invalid credential must never abort the bridge
// process (spec §7's "Auth credentials invalid" policy).
func (p *TokenProvider) login(ctx context.Context) (string, time.Time, error) {
	for {
		token, expiresAt, err := p.attemptLogin(ctx)
		if err == nil {
			return token, expiresAt, nil
		}

		cclog.Errorf("%s: login attempt failed: %s", p.name, err.Error())

		select {
		case <-ctx.Done():
			return "", time.Time{}, ctx.Err()
		case <-time.After(loginRetryInterval):
		}
	}
}

func (p *TokenProvider) attemptLogin(ctx context.Context) (string, time.Time, error) {
	body, err := json.Marshal(map[string]string{
		p.creds.UsernameKey: p.creds.Username,
		"password":          p.creds.Password,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("marshal login body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.creds.LoginURL, bytes.NewReader(body))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("login returned status %d", resp.StatusCode)
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", time.Time{}, fmt.Errorf("decode login response: %w", err)
	}
	if lr.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("login response had no access_token")
	}

	exp, ok := extractExpiry(lr.AccessToken)
	if !ok {
		exp = time.Now().Add(defaultTTL)
	}

	return lr.AccessToken, exp, nil
}

// extractExpiry base64url-decodes the JWT's claims segment and reads its
// exp claim, without verifying the signature (spec §6, §9).
func extractExpiry(token string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	expVal, ok := claims["exp"]
	if !ok {
		return time.Time{}, false
	}

	switch v := expVal.(type) {
	case float64:
		return time.Unix(int64(v), 0), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(int64(f), 0), true
	default:
		return time.Time{}, false
	}
}
