package wren

import (
	"fmt"
	"strconv"
)

// MenuNew is the menuRef sentinel that appends a new entry instead of
// renaming an existing one.
const MenuNew = "new"

// newPage returns the starter page created behind a fresh menu entry.
func newPage(title string) Page {
	return Page{
		Title:       title,
		Keywords:    "Enter, keywords, for, this page",
		Description: "A page description is also good for search engines.",
		Content:     "<h2>" + title + "</h2>\n<p>Click here to start editing.</p>",
	}
}

// CreateMenuItem creates or renames a menu entry and keeps the page
// collection in lockstep. A numeric menuRef renames the entry at that
// index in place; if the rename changes the slug, a page is created at
// the new slug and the page at the old slug is removed (its content is
// discarded). The sentinel "new" appends an entry, disambiguating a
// slug collision with a numeric suffix counted up until a free slug is
// found, and creates the backing page. The login path is never a valid
// target slug.
func (s *Store) CreateMenuItem(content, menuRef, visibility string) error {
	if visibility != VisibilityShow && visibility != VisibilityHide {
		visibility = VisibilityHide
	}
	slug := Slugify(content)

	return s.mutate(func(doc *Document) error {
		if menuRef == MenuNew {
			if doc.PageExists(slug) || slug == doc.Config.Login {
				base := slug
				for n := len(doc.Config.MenuItems); ; n++ {
					slug = fmt.Sprintf("%s-%d", base, n)
					if !doc.PageExists(slug) && slug != doc.Config.Login {
						break
					}
				}
			}
			doc.Config.MenuItems = append(doc.Config.MenuItems, MenuItem{
				Name:       content,
				Slug:       slug,
				Visibility: visibility,
			})
			doc.Pages[slug] = newPage(content)
			return nil
		}

		idx, err := strconv.Atoi(menuRef)
		if err != nil || idx < 0 || idx >= len(doc.Config.MenuItems) {
			return ErrIndexOutOfRange
		}
		if slug == doc.Config.Login {
			return ErrReservedSlug
		}
		old := doc.Config.MenuItems[idx]
		doc.Config.MenuItems[idx].Name = content
		doc.Config.MenuItems[idx].Slug = slug
		doc.Config.MenuItems[idx].Visibility = visibility
		if old.Slug != slug {
			if !doc.PageExists(slug) {
				doc.Pages[slug] = newPage(content)
			}
			delete(doc.Pages, old.Slug)
		}
		return nil
	})
}

// OrderMenuItem swaps the entry at index with the entry at index+delta.
// Delta must be -1 or +1; a swap that would land outside the menu fails
// with ErrIndexOutOfRange and leaves the document untouched.
func (s *Store) OrderMenuItem(delta, index int) error {
	if delta != -1 && delta != 1 {
		return ErrIndexOutOfRange
	}
	return s.mutate(func(doc *Document) error {
		items := doc.Config.MenuItems
		target := index + delta
		if index < 0 || index >= len(items) || target < 0 || target >= len(items) {
			return ErrIndexOutOfRange
		}
		items[index], items[target] = items[target], items[index]
		return nil
	})
}

// DeletePage removes a page and, unless suppressed, its menu entry.
// Remaining menu entries stay contiguous, so positional references held
// by clients are invalidated by a deletion. The 404 page is protected.
func (s *Store) DeletePage(slug string, alsoMenu bool) error {
	if slug == "404" {
		return ErrProtectedPage
	}
	return s.mutate(func(doc *Document) error {
		if !doc.PageExists(slug) {
			return ErrNotFound
		}
		delete(doc.Pages, slug)
		if !alsoMenu {
			return nil
		}
		kept := doc.Config.MenuItems[:0]
		for _, item := range doc.Config.MenuItems {
			if item.Slug != slug {
				kept = append(kept, item)
			}
		}
		doc.Config.MenuItems = kept
		return nil
	})
}
