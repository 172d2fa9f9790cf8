package transport

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsignedJWT(exp int64) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	claims := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"exp":%d}`, exp)))
	return header + "." + claims + "."
}

func TestEnsureTokenCachesUntilExpiry(t *testing.T) {
	var logins atomic.Int32
	exp := time.Now().Add(time.Hour).Unix()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"access_token": unsignedJWT(exp)})
	}))
	defer srv.Close()

	creds := Credentials{UsernameKey: "email", Username: "u", Password: "p", LoginURL: srv.URL}
	tp := NewTokenProvider("test", creds, &http.Client{Timeout: time.Second})

	tok1, err := tp.EnsureToken(t.Context())
	require.NoError(t, err)
	tok2, err := tp.EnsureToken(t.Context())
	require.NoError(t, err)

	assert.Equal(t, tok1, tok2)
	assert.Equal(t, int32(1), logins.Load())
}

func TestInvalidateForcesRefresh(t *testing.T) {
	var logins atomic.Int32
	exp := time.Now().Add(time.Hour).Unix()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"access_token": unsignedJWT(exp)})
	}))
	defer srv.Close()

	creds := Credentials{UsernameKey: "email", Username: "u", Password: "p", LoginURL: srv.URL}
	tp := NewTokenProvider("test", creds, &http.Client{Timeout: time.Second})

	_, err := tp.EnsureToken(t.Context())
	require.NoError(t, err)
	tp.Invalidate()
	_, err = tp.EnsureToken(t.Context())
	require.NoError(t, err)

	assert.Equal(t, int32(2), logins.Load())
}

func TestExtractExpiryParsesExpClaim(t *testing.T) {
	exp := time.Now().Add(2 * time.Hour).Unix()
	got, ok := extractExpiry(unsignedJWT(exp))
	require.True(t, ok)
	assert.Equal(t, exp, got.Unix())
}

func TestExtractExpiryMissingClaim(t *testing.T) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	claims := base64.RawURLEncoding.EncodeToString([]byte(`{}`))
	_, ok := extractExpiry(header + "." + claims + ".")
	assert.False(t, ok)
}
