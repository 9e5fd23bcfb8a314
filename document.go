package wren

// Menu item visibility values.
const (
	VisibilityShow = "show"
	VisibilityHide = "hide"
)

// MenuItem is one ordered navigation entry pointing at a page slug.
type MenuItem struct {
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Visibility string `json:"visibility"`
}

// Config holds the site-wide settings section of the document.
// Password stores a bcrypt hash, never a plaintext credential.
type Config struct {
	SiteTitle   string     `json:"siteTitle"`
	Theme       string     `json:"theme"`
	DefaultPage string     `json:"defaultPage"`
	Login       string     `json:"login"`
	Password    string     `json:"password"`
	DBVersion   int        `json:"dbVersion"`
	MenuItems   []MenuItem `json:"menuItems"`
}

// Page is a single editable page keyed by slug in the document.
type Page struct {
	Title       string `json:"title"`
	Keywords    string `json:"keywords"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

// Block is a named content fragment shown on every page (e.g. "footer").
type Block struct {
	Content string `json:"content"`
}

// Document is the entire persisted site: settings, pages, and blocks.
// It is the sole source of truth and is re-serialized in full after
// every mutation.
type Document struct {
	Config Config           `json:"config"`
	Pages  map[string]Page  `json:"pages"`
	Blocks map[string]Block `json:"blocks"`
}

// clone returns a deep copy. The maps and the menu slice are the only
// shared-mutable state; field values are plain strings and ints.
func (d *Document) clone() *Document {
	out := &Document{
		Config: d.Config,
		Pages:  make(map[string]Page, len(d.Pages)),
		Blocks: make(map[string]Block, len(d.Blocks)),
	}
	out.Config.MenuItems = append([]MenuItem(nil), d.Config.MenuItems...)
	for slug, page := range d.Pages {
		out.Pages[slug] = page
	}
	for name, block := range d.Blocks {
		out.Blocks[name] = block
	}
	return out
}

// PageExists reports whether a page is stored under the given slug.
func (d *Document) PageExists(slug string) bool {
	_, ok := d.Pages[slug]
	return ok
}

// VisibleMenu returns the menu entries tagged as shown, in order.
func (d *Document) VisibleMenu() []MenuItem {
	var out []MenuItem
	for _, item := range d.Config.MenuItems {
		if item.Visibility == VisibilityShow {
			out = append(out, item)
		}
	}
	return out
}
