package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoResponse struct {
	OK bool `json:"ok"`
}

func TestDoJSONSucceedsOnFirstTry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(echoResponse{OK: true})
	}))
	defer srv.Close()

	c := NewClient("test", nil, nil, DefaultRetryPolicy())
	var out echoResponse
	err := c.DoJSON(t.Context(), http.MethodGet, srv.URL, nil, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
}

func TestDoJSONRetriesOnRetryableStatus(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(echoResponse{OK: true})
	}))
	defer srv.Close()

	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	c := NewClient("test", nil, nil, policy)
	var out echoResponse
	err := c.DoJSON(t.Context(), http.MethodGet, srv.URL, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDoJSONRefreshesTokenOnceOn401(t *testing.T) {
	var apiCalls atomic.Int32
	var loginCalls atomic.Int32

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := apiCalls.Add(1)
		if n == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(echoResponse{OK: true})
	}))
	defer api.Close()

	login := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loginCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
	}))
	defer login.Close()

	creds := Credentials{UsernameKey: "username", Username: "u", Password: "p", LoginURL: login.URL}
	tokens := NewTokenProvider("test", creds, &http.Client{Timeout: time.Second})

	c := NewClient("test", tokens, nil, DefaultRetryPolicy())
	var out echoResponse
	err := c.DoJSON(t.Context(), http.MethodGet, api.URL, nil, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, int32(2), apiCalls.Load())
	assert.Equal(t, int32(2), loginCalls.Load(), "the first EnsureToken call plus the post-401 refresh")
}
