package wren

import (
	"crypto/subtle"
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const sessionName = "wren_session"

const (
	sessAuthenticated = "authenticated"
	sessRoot          = "root"
	sessToken         = "token"
	sessAlerts        = "alerts"
)

// Alert classes shown to the operator.
const (
	AlertSuccess = "success"
	AlertInfo    = "info"
	AlertWarning = "warning"
	AlertDanger  = "danger"
)

// Alert is one pending user-visible message. Alerts accumulate in the
// session and are cleared once displayed.
type Alert struct {
	Class   string
	Message string
}

func init() {
	gob.Register([]Alert{})
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60 * 60 * 12,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// loggedIn reports whether the session carries a valid login marker for
// this install. The marker records the install root so a session minted
// by one install on the host cannot authenticate another.
func (a *App) loggedIn(c echo.Context) bool {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return false
	}
	auth, ok := sess.Values[sessAuthenticated].(bool)
	if !ok || !auth {
		return false
	}
	root, ok := sess.Values[sessRoot].(string)
	return ok && root == a.rootDir
}

// setLoginSession rotates the session on successful login: all prior
// values (including any pre-login CSRF token a fixation attacker could
// have planted) are discarded before the marker is set.
func (a *App) setLoginSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	token, err := randomHex(32)
	if err != nil {
		return err
	}
	sess.Values = map[any]any{
		sessAuthenticated: true,
		sessRoot:          a.rootDir,
		sessToken:         token,
	}
	return sess.Save(c.Request(), c.Response())
}

// resetSession wipes all session values (login marker, token, pending
// alerts) while keeping the session cookie alive.
func resetSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values = map[any]any{}
	return sess.Save(c.Request(), c.Response())
}

func clearSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// csrfToken returns the session token, generating and caching a
// 32-byte random value on first use.
func (a *App) csrfToken(c echo.Context) string {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return ""
	}
	if token, ok := sess.Values[sessToken].(string); ok && token != "" {
		return token
	}
	token, err := randomHex(32)
	if err != nil {
		return ""
	}
	sess.Values[sessToken] = token
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return ""
	}
	return token
}

// tokenValid compares the presented token against the session token in
// constant time. A mismatch makes the calling guard fail silently; the
// viewer never learns which actions exist.
func (a *App) tokenValid(c echo.Context) bool {
	presented := c.FormValue("token")
	if presented == "" {
		presented = c.QueryParam("token")
	}
	if presented == "" {
		return false
	}
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return false
	}
	stored, ok := sess.Values[sessToken].(string)
	if !ok || stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}

// alert queues a user-visible message, deduplicating on class+message
// within the pending batch.
func (a *App) alert(c echo.Context, class, message string) {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return
	}
	pending, _ := sess.Values[sessAlerts].([]Alert)
	for _, al := range pending {
		if al.Class == class && al.Message == message {
			return
		}
	}
	sess.Values[sessAlerts] = append(pending, Alert{Class: class, Message: message})
	_ = sess.Save(c.Request(), c.Response())
}

// consumeAlerts returns the pending batch and clears it.
func (a *App) consumeAlerts(c echo.Context) []Alert {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return nil
	}
	pending, _ := sess.Values[sessAlerts].([]Alert)
	if len(pending) == 0 {
		return nil
	}
	delete(sess.Values, sessAlerts)
	_ = sess.Save(c.Request(), c.Response())
	return pending
}
