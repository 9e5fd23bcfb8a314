// Package wren is a flat-file site-content engine built with Go, Echo,
// and templ. A single persisted JSON document describes the site's
// configuration, pages and blocks; authenticated requests mutate it
// through an ordered action pipeline, and a pluggable theme renders the
// result.
//
// Users provide their own templ components via the Theme struct; wren
// handles the document store, authentication, the mutation actions, and
// the file operations.
package wren

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"
)

// Version is set at build time via ldflags.
var Version = "dev"

// dbVersion is written into fresh documents and bumped with breaking
// document-format changes.
const dbVersion = 1000000

const accessConfigFile = ".htaccess"

// Canonical remote artifacts. Overridable via options, mainly for tests.
const (
	defaultUpdateURL         = "https://github.com/wrencms/wren/releases/latest/download/wren.zip"
	defaultHardenedConfigURL = "https://raw.githubusercontent.com/wrencms/wren/main/config/htaccess-hardened"
	defaultStandardConfigURL = "https://raw.githubusercontent.com/wrencms/wren/main/config/htaccess-default"
)

// App is the central wren application. It wires together the store,
// session handling, the action pipeline, and the theme.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  *Store
	Theme  Theme

	rootDir      string
	actions      []action
	loginLimiter *LoginLimiter
	fetchClient  *http.Client
	customRoutes []func(*App)

	updateURL         string
	hardenedConfigURL string
	defaultConfigURL  string
}

// New creates a wren App with the given configuration and theme.
func New(cfg SiteConfig, theme Theme, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:            cfg,
		Echo:              echo.New(),
		Theme:             theme,
		rootDir:           cfg.RootDir,
		updateURL:         defaultUpdateURL,
		hardenedConfigURL: defaultHardenedConfigURL,
		defaultConfigURL:  defaultStandardConfigURL,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start initializes the store, middleware, and routes, then starts the
// server.
func (a *App) Start() error {
	if err := a.init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// init wires everything short of listening. Split from Start so tests
// can drive the app through httptest.
func (a *App) init() error {
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("wren: SessionSecret is required")
	}
	if a.Theme.Page == nil || a.Theme.Login == nil || a.Theme.NotFound == nil {
		return fmt.Errorf("wren: theme must provide Page, Login and NotFound components")
	}

	store, err := NewStore(a.dataDir())
	if err != nil {
		return err
	}
	a.Store = store
	if store.SeededPassword != "" {
		a.Echo.Logger.Warnf("created a new site document; admin password: %s (login path: /%s)",
			store.SeededPassword, store.Document().Config.Login)
	}

	a.loginLimiter = NewLoginLimiter(5, loginWindow)
	a.fetchClient = &http.Client{Timeout: a.Config.FetchTimeout}
	a.actions = a.pipeline()

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/themes", a.themesDir())
	e.Static("/files", a.filesDir())

	e.Any("/", a.handleRequest)
	e.Any("/:page", a.handleRequest)
}

// handleRequest serves the single route space: reload the document,
// resolve the current page, run the action pipeline, and fall through
// to the theme when no action fires.
func (a *App) handleRequest(c echo.Context) error {
	if err := a.Store.Reload(); err != nil {
		// Corrupt document: the store is the sole source of truth, so
		// this request cannot proceed.
		return err
	}

	ctx := &actionContext{
		c:        c,
		store:    a.Store,
		page:     a.currentPage(c),
		loggedIn: a.loggedIn(c),
	}

	for _, act := range a.actions {
		if !act.guard(ctx) {
			continue
		}
		out, err := act.run(ctx)
		if err != nil {
			return err
		}
		switch out.kind {
		case kindRedirect:
			return c.Redirect(http.StatusSeeOther, out.location)
		case kindNotFound:
			return a.renderNotFound(ctx)
		default:
			return nil
		}
	}
	return a.renderPage(ctx)
}

// currentPage resolves the requested page slug, defaulting to the
// configured front page. The raw segment is slugified so the document
// is only ever indexed by slugs it could itself contain — except the
// login path, which is matched verbatim.
func (a *App) currentPage(c echo.Context) string {
	raw := c.Param("page")
	if raw == "" {
		return a.Store.Document().Config.DefaultPage
	}
	if raw == a.Store.Document().Config.Login {
		return raw
	}
	return Slugify(raw)
}

func (a *App) dataDir() string {
	return filepath.Join(a.rootDir, "data")
}

func (a *App) filesDir() string {
	return filepath.Join(a.rootDir, "files")
}

func (a *App) themesDir() string {
	return filepath.Join(a.rootDir, "themes")
}

func (a *App) pluginsDir() string {
	return filepath.Join(a.rootDir, "plugins")
}
