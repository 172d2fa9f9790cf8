// Package transport provides a shared, retrying HTTP client with bearer
// token management and rate limiting, used by both the upstream (SDG) and
// platform (Intab) API clients.
package transport

// Credentials identifies one login: the field name the login endpoint
// expects for the username ("email" for Intab, "username" for SDG per
// original_source/config.py) plus the username/password pair and login
// URL.
type Credentials struct {
	UsernameKey string
	Username    string
	Password    string
	LoginURL    string
}
