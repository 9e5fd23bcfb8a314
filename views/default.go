package views

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
)

// DefaultPage renders a minimal, dependency-free page layout. Sites
// that want real markup supply their own components; this keeps a
// fresh install viewable before any theme is installed.
func DefaultPage(v PageView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := writeHead(w, v.SiteTitle, v.Title, v.Keywords, v.Description, v.CSSPath); err != nil {
			return err
		}
		writeAlerts(w, v.Alerts)
		fmt.Fprint(w, "<nav><ul>")
		for _, entry := range v.Menu {
			fmt.Fprintf(w, `<li><a href="%s">%s</a></li>`,
				html.EscapeString(entry.Link), html.EscapeString(entry.Name))
		}
		fmt.Fprint(w, "</ul></nav>")
		// Page and block content is operator-authored HTML and is
		// written unescaped.
		fmt.Fprintf(w, `<main>%s</main>`, v.Content)
		fmt.Fprintf(w, `<aside>%s</aside>`, v.SubSide)
		fmt.Fprintf(w, `<footer>%s</footer>`, v.Footer)
		if v.LoggedIn && v.JSPath != "" {
			fmt.Fprintf(w, `<script src="%s"></script>`, html.EscapeString(v.JSPath))
		}
		_, err := fmt.Fprint(w, "</body></html>")
		return err
	})
}

// DefaultLogin renders the password form for the data-driven login
// path.
func DefaultLogin(v LoginView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := writeHead(w, v.SiteTitle, "Login", "", "", ""); err != nil {
			return err
		}
		writeAlerts(w, v.Alerts)
		fmt.Fprintf(w, `<main><form action="/%s" method="post">`, html.EscapeString(v.LoginPath))
		fmt.Fprint(w, `<input type="password" name="password" autofocus> `)
		fmt.Fprint(w, `<button type="submit">Login</button></form></main>`)
		_, err := fmt.Fprint(w, "</body></html>")
		return err
	})
}

// DefaultNotFound renders the 404 body for unauthenticated viewers.
func DefaultNotFound(v PageView) templ.Component {
	return DefaultPage(v)
}

func writeHead(w io.Writer, siteTitle, title, keywords, description, cssPath string) error {
	fmt.Fprint(w, "<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\">")
	fmt.Fprintf(w, "<title>%s - %s</title>", html.EscapeString(title), html.EscapeString(siteTitle))
	if keywords != "" {
		fmt.Fprintf(w, `<meta name="keywords" content="%s">`, html.EscapeString(keywords))
	}
	if description != "" {
		fmt.Fprintf(w, `<meta name="description" content="%s">`, html.EscapeString(description))
	}
	if cssPath != "" {
		fmt.Fprintf(w, `<link rel="stylesheet" href="%s">`, html.EscapeString(cssPath))
	}
	_, err := fmt.Fprint(w, "</head><body>")
	return err
}

func writeAlerts(w io.Writer, alerts []Alert) {
	for _, al := range alerts {
		fmt.Fprintf(w, `<div class="alert alert-%s">%s</div>`,
			html.EscapeString(al.Class), html.EscapeString(al.Message))
	}
}
