package wren

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// login verifies the submitted password against the stored hash and, on
// success, rotates the session and sets the login marker. Attempts are
// rate-limited per IP before the hash comparison runs.
func (a *App) login(ctx *actionContext) (outcome, error) {
	c := ctx.c
	if !a.loginLimiter.Check(c.RealIP()) {
		return rendered, c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	doc := ctx.store.Document()
	if !verifyPassword(doc.Config.Password, c.FormValue("password")) {
		a.loginLimiter.Record(c.RealIP())
		a.alert(c, AlertDanger, "Wrong password.")
		return redirectTo("/" + doc.Config.Login), nil
	}
	if err := a.setLoginSession(c); err != nil {
		return rendered, err
	}
	return redirectTo("/" + doc.Config.Login), nil
}

// logout destroys the session and sends the viewer home.
func (a *App) logout(ctx *actionContext) (outcome, error) {
	if err := clearSession(ctx.c); err != nil {
		return rendered, err
	}
	return redirectTo("/"), nil
}

// changePassword requires the old password to verify, enforces the
// minimum length, rehashes, and destroys the session so the operator
// logs back in with the new credential.
func (a *App) changePassword(ctx *actionContext) (outcome, error) {
	c := ctx.c
	doc := ctx.store.Document()
	target := "/" + doc.Config.Login

	if !verifyPassword(doc.Config.Password, c.FormValue("old_password")) {
		a.alert(c, AlertDanger, "Wrong old password.")
		return redirectTo(target), nil
	}
	newPassword := c.FormValue("new_password")
	if len(newPassword) < minPasswordLength {
		a.alert(c, AlertDanger, "Password must be at least 8 characters long.")
		return redirectTo(target), nil
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return rendered, err
	}
	if err := ctx.store.Set([]string{"config", "password"}, hash); err != nil {
		return rendered, err
	}
	// Drop the login marker and token but keep the session alive so the
	// alert below reaches the login page.
	if err := resetSession(c); err != nil {
		return rendered, err
	}
	a.alert(c, AlertSuccess, "Password changed. Log in with the new password.")
	return redirectTo(target), nil
}
