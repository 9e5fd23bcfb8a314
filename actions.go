package wren

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/labstack/echo/v4"
)

// outcome is the result of a fired action. A successful mutation always
// redirects so the client never resubmits on refresh; notFound renders
// the 404 page with the matching status; rendered means the action
// wrote the response itself.
type outcome struct {
	kind     outcomeKind
	location string
}

type outcomeKind int

const (
	kindRedirect outcomeKind = iota
	kindRendered
	kindNotFound
)

func redirectTo(location string) outcome {
	return outcome{kind: kindRedirect, location: location}
}

var (
	rendered = outcome{kind: kindRendered}
	notFound = outcome{kind: kindNotFound}
)

// actionContext carries everything a handler may read for one request.
// Handlers never reach into ambient state.
type actionContext struct {
	c        echo.Context
	store    *Store
	page     string // resolved current page slug
	loggedIn bool
}

// action is one guarded request handler. The dispatcher evaluates
// guards in order and runs the first that is satisfied; a failed guard
// is a silent no-op so unauthenticated viewers cannot probe which
// actions exist.
type action struct {
	name  string
	guard func(*actionContext) bool
	run   func(*actionContext) (outcome, error)
}

// pipeline returns the fixed, ordered action list. Guards of actions
// that could read the same POST are mutually exclusive by construction:
// login/changePassword split on new_password, save/deletePage split on
// fieldname vs delete.
func (a *App) pipeline() []action {
	return []action{
		{name: "backup", guard: a.guardBackup, run: a.runBackup},
		{name: "securityToggle", guard: a.guardSecurityToggle, run: a.runSecurityToggle},
		{name: "changePassword", guard: a.guardChangePassword, run: a.changePassword},
		{name: "deleteAddonOrFile", guard: a.guardDeleteAddon, run: a.runDeleteAddon},
		{name: "installAddon", guard: a.guardInstallAddon, run: a.runInstallAddon},
		{name: "logout", guard: a.guardLogout, run: a.logout},
		{name: "login", guard: a.guardLogin, run: a.login},
		{name: "deletePage", guard: a.guardDeletePage, run: a.runDeletePage},
		{name: "save", guard: a.guardSave, run: a.runSave},
		{name: "update", guard: a.guardUpdate, run: a.runUpdate},
		{name: "uploadFile", guard: a.guardUpload, run: a.uploadFile},
		{name: "notFound", guard: a.guardNotFound, run: a.runNotFound},
	}
}

// mutatingGuard is the common precondition for every document-touching
// action: an authenticated session presenting the session token.
func (a *App) mutatingGuard(ctx *actionContext) bool {
	return ctx.loggedIn && a.tokenValid(ctx.c)
}

func isPost(c echo.Context) bool {
	return c.Request().Method == http.MethodPost
}

func (a *App) guardBackup(ctx *actionContext) bool {
	return a.mutatingGuard(ctx) && isPost(ctx.c) && ctx.c.FormValue("backup") != ""
}

func (a *App) runBackup(ctx *actionContext) (outcome, error) {
	c := ctx.c
	name, err := a.backupInstall()
	switch {
	case errors.Is(err, errStaleBackups):
		a.alert(c, AlertWarning, "Remove the existing backup archives from the files directory before creating a new one.")
	case err != nil:
		c.Logger().Errorf("backup failed: %v", err)
		a.alert(c, AlertDanger, "Backup failed.")
	default:
		a.alert(c, AlertSuccess, "Backup created: files/"+name+". Download it and delete it from the server.")
	}
	return redirectTo(c.Request().URL.Path), nil
}

func (a *App) guardSecurityToggle(ctx *actionContext) bool {
	return a.mutatingGuard(ctx) && isPost(ctx.c) && ctx.c.FormValue("betterSecurity") != ""
}

func (a *App) runSecurityToggle(ctx *actionContext) (outcome, error) {
	c := ctx.c
	hardened := c.FormValue("betterSecurity") == "on"
	if err := a.applySecurityConfig(hardened); err != nil {
		c.Logger().Errorf("security toggle failed: %v", err)
		a.alert(c, AlertDanger, "Could not fetch the server configuration template. Nothing was changed.")
	} else if hardened {
		a.alert(c, AlertSuccess, "Hardened server configuration applied.")
	} else {
		a.alert(c, AlertSuccess, "Default server configuration restored.")
	}
	return redirectTo(c.Request().URL.Path), nil
}

func (a *App) guardChangePassword(ctx *actionContext) bool {
	c := ctx.c
	return a.mutatingGuard(ctx) && isPost(c) &&
		c.FormValue("new_password") != "" && c.FormValue("old_password") != ""
}

func (a *App) guardDeleteAddon(ctx *actionContext) bool {
	c := ctx.c
	return a.mutatingGuard(ctx) && isPost(c) &&
		(c.FormValue("deleteFile") != "" || c.FormValue("deleteTheme") != "" || c.FormValue("deletePlugin") != "")
}

func (a *App) runDeleteAddon(ctx *actionContext) (outcome, error) {
	c := ctx.c
	back := redirectTo(c.Request().URL.Path)

	var root, name string
	switch {
	case c.FormValue("deleteFile") != "":
		root, name = a.filesDir(), c.FormValue("deleteFile")
	case c.FormValue("deleteTheme") != "":
		root, name = a.themesDir(), c.FormValue("deleteTheme")
	default:
		root, name = a.pluginsDir(), c.FormValue("deletePlugin")
	}
	if root == a.themesDir() && sanitizeName(name) == ctx.store.Document().Config.Theme {
		a.alert(c, AlertDanger, "Cannot delete the active theme.")
		return back, nil
	}
	if err := deleteContained(root, name); err != nil {
		if errors.Is(err, errEscapesRoot) {
			a.alert(c, AlertDanger, "Invalid name.")
			return back, nil
		}
		return rendered, err
	}
	a.alert(c, AlertSuccess, "Deleted.")
	return back, nil
}

func (a *App) guardInstallAddon(ctx *actionContext) bool {
	c := ctx.c
	return a.mutatingGuard(ctx) && isPost(c) &&
		c.FormValue("installLocation") != "" && c.FormValue("addonURL") != ""
}

func (a *App) runInstallAddon(ctx *actionContext) (outcome, error) {
	c := ctx.c
	if err := a.installAddon(c.FormValue("addonURL"), c.FormValue("installLocation")); err != nil {
		c.Logger().Errorf("addon install failed: %v", err)
		a.alert(c, AlertDanger, "Install failed: the addon could not be downloaded or extracted.")
	} else {
		a.alert(c, AlertSuccess, "Addon installed.")
	}
	return redirectTo(c.Request().URL.Path), nil
}

func (a *App) guardLogout(ctx *actionContext) bool {
	return ctx.loggedIn && ctx.page == ctx.store.Document().Config.Login &&
		ctx.c.QueryParam("logout") != "" && a.tokenValid(ctx.c)
}

// guardLogin needs no token: the session may not exist before the first
// login. The limiter inside the handler takes the brunt instead.
func (a *App) guardLogin(ctx *actionContext) bool {
	c := ctx.c
	return ctx.page == ctx.store.Document().Config.Login && isPost(c) &&
		c.FormValue("password") != "" && c.FormValue("new_password") == ""
}

func (a *App) guardDeletePage(ctx *actionContext) bool {
	return a.mutatingGuard(ctx) && isPost(ctx.c) && ctx.c.FormValue("delete") != ""
}

func (a *App) runDeletePage(ctx *actionContext) (outcome, error) {
	c := ctx.c
	slug := Slugify(c.FormValue("delete"))
	err := ctx.store.DeletePage(slug, true)
	switch {
	case errors.Is(err, ErrProtectedPage):
		a.alert(c, AlertDanger, "The 404 page cannot be deleted.")
	case errors.Is(err, ErrNotFound):
		a.alert(c, AlertDanger, "No such page.")
	case err != nil:
		return rendered, err
	default:
		a.alert(c, AlertSuccess, "Page deleted.")
	}
	return redirectTo("/"), nil
}

func (a *App) guardSave(ctx *actionContext) bool {
	return a.mutatingGuard(ctx) && isPost(ctx.c) && ctx.c.FormValue("fieldname") != ""
}

// runSave is the generic content-editing entry point, routed by the
// target discriminator.
func (a *App) runSave(ctx *actionContext) (outcome, error) {
	c := ctx.c
	back := redirectTo(c.Request().URL.Path)

	fieldname := c.FormValue("fieldname")
	content := c.FormValue("content")
	menuRef := c.FormValue("menu")
	visibility := c.FormValue("visibility")

	switch c.FormValue("target") {
	case "config":
		return back, a.saveConfig(ctx, fieldname, content)
	case "blocks":
		return back, ctx.store.Set([]string{"blocks", fieldname, "content"}, content)
	case "pages":
		return back, a.savePageField(ctx, fieldname, content)
	case "menuItem":
		err := ctx.store.CreateMenuItem(content, menuRef, visibility)
		switch {
		case errors.Is(err, ErrReservedSlug):
			a.alert(c, AlertDanger, "That name collides with the login path.")
		case errors.Is(err, ErrIndexOutOfRange):
			a.alert(c, AlertDanger, "No such menu entry.")
		case err != nil:
			return rendered, err
		}
		return back, nil
	case "menuItemVsbl":
		if visibility != VisibilityShow && visibility != VisibilityHide {
			a.alert(c, AlertDanger, "Invalid visibility.")
			return back, nil
		}
		if err := ctx.store.Set([]string{"config", "menuItems", menuRef, "visibility"}, visibility); err != nil {
			a.alert(c, AlertDanger, "No such menu entry.")
		}
		return back, nil
	case "menuItemOrder":
		delta, err := strconv.Atoi(content)
		if err != nil {
			a.alert(c, AlertDanger, "Invalid move.")
			return back, nil
		}
		index, err := strconv.Atoi(menuRef)
		if err != nil {
			a.alert(c, AlertDanger, "Invalid menu entry.")
			return back, nil
		}
		if err := ctx.store.OrderMenuItem(delta, index); err != nil {
			a.alert(c, AlertDanger, "Cannot move the entry out of the menu.")
		}
		return back, nil
	}
	a.alert(c, AlertDanger, "Unknown save target.")
	return back, nil
}

func (a *App) saveConfig(ctx *actionContext, fieldname, content string) error {
	c := ctx.c
	doc := ctx.store.Document()
	switch fieldname {
	case "siteTitle":
		return ctx.store.Set([]string{"config", "siteTitle"}, content)
	case "theme":
		name := sanitizeName(content)
		if _, err := os.Stat(filepath.Join(a.themesDir(), name)); err != nil {
			a.alert(c, AlertDanger, "No such theme.")
			return nil
		}
		return ctx.store.Set([]string{"config", "theme"}, name)
	case "defaultPage":
		slug := Slugify(content)
		if !doc.PageExists(slug) {
			a.alert(c, AlertDanger, "The default page must be an existing page.")
			return nil
		}
		return ctx.store.Set([]string{"config", "defaultPage"}, slug)
	case "login":
		slug := Slugify(content)
		if doc.PageExists(slug) {
			a.alert(c, AlertDanger, "The login path cannot match an existing page slug.")
			return nil
		}
		return ctx.store.Set([]string{"config", "login"}, slug)
	}
	a.alert(c, AlertDanger, "Unknown setting.")
	return nil
}

// savePageField writes one field of the current page, auto-creating the
// page on first edit.
func (a *App) savePageField(ctx *actionContext, fieldname, content string) error {
	c := ctx.c
	doc := ctx.store.Document()
	slug := ctx.page
	if slug == doc.Config.Login {
		a.alert(c, AlertDanger, "The login path cannot become a page.")
		return nil
	}
	switch fieldname {
	case "title", "keywords", "description", "content":
	default:
		a.alert(c, AlertDanger, "Unknown page field.")
		return nil
	}
	if !doc.PageExists(slug) {
		if err := ctx.store.Set([]string{"pages", slug}, newPage(slug)); err != nil {
			return err
		}
	}
	return ctx.store.Set([]string{"pages", slug, fieldname}, content)
}

func (a *App) guardUpdate(ctx *actionContext) bool {
	return a.mutatingGuard(ctx) && isPost(ctx.c) && ctx.c.FormValue("update") != ""
}

// runUpdate stages the canonical release artifact. Writing operator-
// fetched code into the serving directory is the riskiest operation in
// the system, so it is logged loudly and never applied automatically.
func (a *App) runUpdate(ctx *actionContext) (outcome, error) {
	c := ctx.c
	c.Logger().Warnf("self-update requested from %s, fetching %s", c.RealIP(), a.updateURL)
	staged, err := a.stageUpdate()
	if err != nil {
		c.Logger().Errorf("update fetch failed: %v", err)
		a.alert(c, AlertDanger, "Update could not be downloaded. Nothing was changed.")
	} else {
		a.alert(c, AlertSuccess, "Update downloaded to "+staged+". Review and apply it manually.")
	}
	return redirectTo(c.Request().URL.Path), nil
}

func (a *App) guardUpload(ctx *actionContext) bool {
	if !a.mutatingGuard(ctx) || !isPost(ctx.c) {
		return false
	}
	form, err := ctx.c.MultipartForm()
	if err != nil || form == nil {
		return false
	}
	if _, ok := form.File["uploadFile"]; ok {
		return true
	}
	_, ok := form.Value["uploadFile"]
	return ok
}

func (a *App) guardNotFound(ctx *actionContext) bool {
	doc := ctx.store.Document()
	return !ctx.loggedIn && ctx.page != doc.Config.Login && !doc.PageExists(ctx.page)
}

func (a *App) runNotFound(ctx *actionContext) (outcome, error) {
	return notFound, nil
}
