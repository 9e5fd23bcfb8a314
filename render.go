package wren

import (
	"net/http"
	"net/url"
	"path"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/wrencms/wren/views"
)

// Theme holds the templ components a site supplies for rendering. This
// is the inversion-of-control seam: themes read the assembled view
// values and never write to the document.
type Theme struct {
	Page     func(v views.PageView) templ.Component
	Login    func(v views.LoginView) templ.Component
	NotFound func(v views.PageView) templ.Component
}

// DefaultTheme returns the bundled minimal theme.
func DefaultTheme() Theme {
	return Theme{
		Page:     views.DefaultPage,
		Login:    views.DefaultLogin,
		NotFound: views.DefaultNotFound,
	}
}

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// Read accessors consumed when assembling a view. Themes see only the
// assembled result.

func (a *App) menu(doc *Document, loggedIn bool) []views.MenuEntry {
	var out []views.MenuEntry
	for _, item := range doc.Config.MenuItems {
		visible := item.Visibility == VisibilityShow
		if !visible && !loggedIn {
			continue
		}
		out = append(out, views.MenuEntry{
			Name:    item.Name,
			Slug:    item.Slug,
			Link:    "/" + item.Slug,
			Visible: visible,
		})
	}
	return out
}

func (a *App) block(doc *Document, name string) string {
	return doc.Blocks[name].Content
}

func (a *App) css(doc *Document) string {
	return a.asset(doc, "css/style.css")
}

// js returns the admin script, injected only for authenticated viewers.
func (a *App) js(loggedIn bool) string {
	if !loggedIn {
		return ""
	}
	return "/files/admin.js"
}

func (a *App) asset(doc *Document, p string) string {
	return "/themes/" + doc.Config.Theme + "/" + p
}

// siteURL joins path segments onto the configured canonical URL.
func (a *App) siteURL(segments ...string) string {
	u, err := url.Parse(a.Config.URL)
	if err != nil {
		return a.Config.URL
	}
	u.Path = path.Join(u.Path, path.Join(segments...))
	return u.String()
}

func (a *App) pageView(c echo.Context, doc *Document, slug string, page Page, loggedIn bool) views.PageView {
	return views.PageView{
		SiteTitle:   doc.Config.SiteTitle,
		Title:       page.Title,
		Keywords:    page.Keywords,
		Description: page.Description,
		Content:     page.Content,
		Page:        slug,
		URL:         a.siteURL(slug),
		Menu:        a.menu(doc, loggedIn),
		SubSide:     a.block(doc, "subside"),
		Footer:      a.block(doc, "footer"),
		CSSPath:     a.css(doc),
		JSPath:      a.js(loggedIn),
		LoggedIn:    loggedIn,
		Token:       a.tokenForViewer(c, loggedIn),
		LoginPath:   doc.Config.Login,
		Alerts:      viewAlerts(a.consumeAlerts(c)),
	}
}

// tokenForViewer exposes the CSRF token only to authenticated viewers;
// public pages carry no token to present.
func (a *App) tokenForViewer(c echo.Context, loggedIn bool) string {
	if !loggedIn {
		return ""
	}
	return a.csrfToken(c)
}

func viewAlerts(alerts []Alert) []views.Alert {
	if len(alerts) == 0 {
		return nil
	}
	out := make([]views.Alert, len(alerts))
	for i, al := range alerts {
		out[i] = views.Alert{Class: al.Class, Message: al.Message}
	}
	return out
}

// renderPage is the fall-through when no action fired: resolve the
// page and hand the assembled view to the theme.
func (a *App) renderPage(ctx *actionContext) error {
	c := ctx.c
	doc := ctx.store.Document()

	if ctx.page == doc.Config.Login {
		if ctx.loggedIn {
			return c.Redirect(http.StatusSeeOther, "/")
		}
		return Render(c, a.Theme.Login(views.LoginView{
			SiteTitle: doc.Config.SiteTitle,
			Token:     a.csrfToken(c),
			LoginPath: doc.Config.Login,
			Alerts:    viewAlerts(a.consumeAlerts(c)),
		}))
	}

	page, ok := doc.Pages[ctx.page]
	if ok {
		return Render(c, a.Theme.Page(a.pageView(c, doc, ctx.page, page, ctx.loggedIn)))
	}
	// Missing page for an authenticated viewer: show an editable stub;
	// the page itself is only created when the first save lands.
	if ctx.loggedIn {
		return Render(c, a.Theme.Page(a.pageView(c, doc, ctx.page, newPage(ctx.page), true)))
	}
	return a.renderNotFound(ctx)
}

// renderNotFound emits the 404 page with a 404 status without touching
// the document.
func (a *App) renderNotFound(ctx *actionContext) error {
	c := ctx.c
	doc := ctx.store.Document()
	view := a.pageView(c, doc, "404", doc.Pages["404"], ctx.loggedIn)
	return RenderStatus(c, http.StatusNotFound, a.Theme.NotFound(view))
}
