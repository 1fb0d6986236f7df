package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Credentials is the server URL and login pair every request is built from.
// It is passed by value: a snapshot taken when a request is built cannot be
// changed by a later settings edit.
type Credentials struct {
	ServerURL string
	Username  string
	Password  string
}

// ProxyConfig selects how outbound connections reach the server.
type ProxyConfig struct {
	// Mode is one of "no-proxy" (or empty), "system", "basic", "ntlm".
	Mode     string
	Host     string
	Port     int
	User     string
	Password string
	// NoProxy is a comma separated bypass list (hosts, domains, CIDRs).
	NoProxy string
	// Warmup sends one request through the proxy when the client is built.
	Warmup bool
}

// Settings is everything the settings file holds.
type Settings struct {
	Credentials
	Proxy      ProxyConfig
	StagingDir string
}

// Validation errors
var (
	ErrMissingServerURL   = errors.New("missing server URL")
	ErrInvalidServerURL   = errors.New("server URL must be an http or https URL")
	ErrMissingCredentials = errors.New("missing username or password")
)

// Validate reports whether the credentials are complete enough to log in.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.ServerURL) == "" {
		return ErrMissingServerURL
	}
	if !IsValidServerURL(c.ServerURL) {
		return fmt.Errorf("%w: %q", ErrInvalidServerURL, c.ServerURL)
	}
	if c.Username == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// IsSecure reports whether the server URL uses https.
func (c Credentials) IsSecure() bool {
	return IsSecureServerURL(c.ServerURL)
}

// IsValidServerURL accepts only absolute http and https URLs.
func IsValidServerURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsSecureServerURL reports whether raw parses as an https URL.
func IsSecureServerURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return u.Scheme == "https"
}

// Masked returns the password replaced by asterisks, for display.
func (c Credentials) Masked() string {
	if c.Password == "" {
		return ""
	}
	return strings.Repeat("*", 8)
}

// ProxyActive reports whether outbound connections go through a proxy.
func (p ProxyConfig) ProxyActive(envHasProxy bool) bool {
	switch strings.ToLower(p.Mode) {
	case "no-proxy", "":
		return false
	case "system":
		return envHasProxy
	default:
		return true
	}
}
