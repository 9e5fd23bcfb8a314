package wren

import (
	"errors"
	"testing"
)

// checkMenuInvariant asserts every menu entry has a backing page.
func checkMenuInvariant(t *testing.T, doc *Document) {
	t.Helper()
	for i, item := range doc.Config.MenuItems {
		if !doc.PageExists(item.Slug) {
			t.Errorf("menuItems[%d] slug %q has no backing page", i, item.Slug)
		}
	}
}

func TestCreateMenuItemAppends(t *testing.T) {
	s := setupTestStore(t)

	if err := s.CreateMenuItem("About", MenuNew, VisibilityShow); err != nil {
		t.Fatalf("CreateMenuItem failed: %v", err)
	}
	doc := s.Document()
	if len(doc.Config.MenuItems) != 3 {
		t.Fatalf("menu length = %d, want 3", len(doc.Config.MenuItems))
	}
	item := doc.Config.MenuItems[2]
	if item.Slug != "about" {
		t.Errorf("appended slug = %q, want %q", item.Slug, "about")
	}
	if item.Name != "About" {
		t.Errorf("appended name = %q, want %q", item.Name, "About")
	}
	if !doc.PageExists("about") {
		t.Error("appending a menu item should create the backing page")
	}
	checkMenuInvariant(t, doc)
}

func TestCreateMenuItemCollisionSuffix(t *testing.T) {
	s := setupTestStore(t)

	// "Home" collides with the seeded home page; the slug gets the
	// current menu length appended.
	if err := s.CreateMenuItem("Home", MenuNew, VisibilityShow); err != nil {
		t.Fatalf("CreateMenuItem failed: %v", err)
	}
	doc := s.Document()
	item := doc.Config.MenuItems[len(doc.Config.MenuItems)-1]
	if item.Slug != "home-2" {
		t.Errorf("collision slug = %q, want %q", item.Slug, "home-2")
	}
	if !doc.PageExists("home-2") {
		t.Error("collision slug should get its own backing page")
	}
	checkMenuInvariant(t, doc)
}

func TestCreateMenuItemRepeatedCollisions(t *testing.T) {
	s := setupTestStore(t)

	// Each repeated "Home" must land on its own free slug, never
	// aliasing a page an earlier entry already owns.
	for _, want := range []string{"home-2", "home-3", "home-4"} {
		if err := s.CreateMenuItem("Home", MenuNew, VisibilityShow); err != nil {
			t.Fatalf("CreateMenuItem failed: %v", err)
		}
		doc := s.Document()
		item := doc.Config.MenuItems[len(doc.Config.MenuItems)-1]
		if item.Slug != want {
			t.Errorf("appended slug = %q, want %q", item.Slug, want)
		}
		checkMenuInvariant(t, doc)
	}

	seen := map[string]bool{}
	for _, item := range s.Document().Config.MenuItems {
		if seen[item.Slug] {
			t.Errorf("duplicate menu slug %q", item.Slug)
		}
		seen[item.Slug] = true
	}
}

func TestCreateMenuItemRenames(t *testing.T) {
	s := setupTestStore(t)

	if err := s.CreateMenuItem("Intro", "1", VisibilityShow); err != nil {
		t.Fatalf("CreateMenuItem rename failed: %v", err)
	}
	doc := s.Document()
	item := doc.Config.MenuItems[1]
	if item.Name != "Intro" || item.Slug != "intro" {
		t.Errorf("renamed entry = %+v, want Intro/intro", item)
	}
	if doc.PageExists("example") {
		t.Error("old slug's page should be removed after a re-slug")
	}
	if !doc.PageExists("intro") {
		t.Error("new slug should have a backing page")
	}
	checkMenuInvariant(t, doc)
}

func TestCreateMenuItemRejectsLoginSlug(t *testing.T) {
	s := setupTestStore(t)
	if err := s.Set([]string{"config", "login"}, "secret"); err != nil {
		t.Fatal(err)
	}
	err := s.CreateMenuItem("Secret", "0", VisibilityShow)
	if !errors.Is(err, ErrReservedSlug) {
		t.Errorf("renaming onto the login slug: got %v, want ErrReservedSlug", err)
	}
}

func TestCreateMenuItemBadIndex(t *testing.T) {
	s := setupTestStore(t)
	if err := s.CreateMenuItem("X", "9", VisibilityShow); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("got %v, want ErrIndexOutOfRange", err)
	}
}

func TestOrderMenuItemSwapsAndPersists(t *testing.T) {
	s := setupTestStore(t)

	if err := s.OrderMenuItem(-1, 1); err != nil {
		t.Fatalf("OrderMenuItem failed: %v", err)
	}
	doc := s.Document()
	if doc.Config.MenuItems[0].Slug != "example" || doc.Config.MenuItems[1].Slug != "home" {
		t.Errorf("menu after swap = %+v", doc.Config.MenuItems)
	}

	// The swap must have hit disk.
	if err := s.Reload(); err != nil {
		t.Fatal(err)
	}
	doc = s.Document()
	if doc.Config.MenuItems[0].Slug != "example" {
		t.Error("swap was not persisted")
	}
}

func TestOrderMenuItemOutOfRange(t *testing.T) {
	s := setupTestStore(t)

	cases := []struct{ delta, index int }{
		{-1, 0}, // first entry up
		{1, 1},  // last entry down
		{-1, 9},
		{2, 0}, // invalid delta
	}
	for _, tc := range cases {
		if err := s.OrderMenuItem(tc.delta, tc.index); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("OrderMenuItem(%d, %d): got %v, want ErrIndexOutOfRange", tc.delta, tc.index, err)
		}
	}
	doc := s.Document()
	if doc.Config.MenuItems[0].Slug != "home" {
		t.Error("failed reorder must leave the menu untouched")
	}
}

func TestDeletePageRemovesMenuEntry(t *testing.T) {
	s := setupTestStore(t)

	if err := s.DeletePage("home", true); err != nil {
		t.Fatalf("DeletePage failed: %v", err)
	}
	doc := s.Document()
	if doc.PageExists("home") {
		t.Error("page should be gone")
	}
	if len(doc.Config.MenuItems) != 1 {
		t.Fatalf("menu length = %d, want 1", len(doc.Config.MenuItems))
	}
	if doc.Config.MenuItems[0].Slug != "example" {
		t.Error("remaining entries should be reindexed contiguously")
	}
	checkMenuInvariant(t, doc)
}

func TestDeletePageKeepsMenuWhenSuppressed(t *testing.T) {
	s := setupTestStore(t)
	if err := s.DeletePage("example", false); err != nil {
		t.Fatalf("DeletePage failed: %v", err)
	}
	doc := s.Document()
	if len(doc.Config.MenuItems) != 2 {
		t.Error("menu should be untouched when suppression is requested")
	}
}

func TestDeletePageProtects404(t *testing.T) {
	s := setupTestStore(t)
	if err := s.DeletePage("404", true); !errors.Is(err, ErrProtectedPage) {
		t.Errorf("got %v, want ErrProtectedPage", err)
	}
}

func TestDeleteOnlyMenuEntries(t *testing.T) {
	s := setupTestStore(t)

	// Deleting every page that backs a menu entry must never panic and
	// must keep the invariant at each step.
	for _, slug := range []string{"home", "example"} {
		if err := s.DeletePage(slug, true); err != nil {
			t.Fatalf("DeletePage(%q) failed: %v", slug, err)
		}
		checkMenuInvariant(t, s.Document())
	}
	if len(s.Document().Config.MenuItems) != 0 {
		t.Error("menu should be empty")
	}
}

func TestMenuMutationSequenceKeepsInvariant(t *testing.T) {
	s := setupTestStore(t)

	steps := []func() error{
		func() error { return s.CreateMenuItem("Blog", MenuNew, VisibilityShow) },
		func() error { return s.CreateMenuItem("Contact", MenuNew, VisibilityHide) },
		func() error { return s.OrderMenuItem(1, 0) },
		func() error { return s.CreateMenuItem("Writing", "2", VisibilityShow) },
		func() error { return s.DeletePage("home", true) },
		func() error { return s.OrderMenuItem(-1, 1) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
		checkMenuInvariant(t, s.Document())
	}
}
