package wren

import (
	"log"
	"os"
	"time"
)

// SiteConfig holds process-level configuration for a wren install.
// Everything content-related lives in the document, not here.
type SiteConfig struct {
	URL  string // Canonical URL (default "http://localhost:3000")
	Addr string // Listen address (default ":3000")

	// RootDir is the install root containing data/, files/, themes/
	// and plugins/ (default ".").
	RootDir string

	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	FetchTimeout time.Duration // Outbound fetch timeout (default 10s)
}

func (c *SiteConfig) setDefaults() {
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.RootDir == "" {
		c.RootDir = "."
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = 10 * time.Second
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithUpdateURL overrides the canonical release artifact URL used by
// the self-update action.
func WithUpdateURL(url string) Option {
	return func(a *App) {
		a.updateURL = url
	}
}

// WithSecurityTemplateURLs overrides the remote locations of the
// hardened and default server access-control files.
func WithSecurityTemplateURLs(hardened, standard string) Option {
	return func(a *App) {
		a.hardenedConfigURL = hardened
		a.defaultConfigURL = standard
	}
}

// EnvOr returns the value of the environment variable key, or fallback
// if empty. Convenience for main.go wiring.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally
// exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("wren: required environment variable %s is not set", key)
	}
	return v
}
