// Package views holds the types and default components a wren theme
// works with. Themes receive fully assembled view values and never
// touch the document directly.
package views

// MenuEntry is one navigation link, already filtered to visible
// entries for public viewers.
type MenuEntry struct {
	Name    string
	Slug    string
	Link    string
	Visible bool
}

// Alert is a pending operator message carried into the layout.
type Alert struct {
	Class   string
	Message string
}

// PageView is everything a theme needs to render one page.
type PageView struct {
	SiteTitle   string
	Title       string
	Keywords    string
	Description string
	Content     string // trusted HTML authored by the operator

	Page      string // current slug
	URL       string // canonical URL of the current page
	Menu      []MenuEntry
	SubSide   string // trusted HTML
	Footer    string // trusted HTML
	CSSPath   string
	JSPath    string
	LoggedIn  bool
	Token     string
	LoginPath string
	Alerts    []Alert
}

// LoginView is the data handed to the login page component.
type LoginView struct {
	SiteTitle string
	Token     string
	LoginPath string
	Alerts    []Alert
}
