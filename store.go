package wren

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

const documentFile = "database.json"

// Sentinel errors returned by the store and the menu manager.
var (
	ErrNotFound         = errors.New("wren: path not found")
	ErrTooManyKeys      = errors.New("wren: path exceeds supported depth")
	ErrIndexOutOfRange  = errors.New("wren: menu index out of range")
	ErrProtectedPage    = errors.New("wren: page cannot be deleted")
	ErrReservedSlug     = errors.New("wren: slug collides with the login path")
	ErrPasswordTooShort = errors.New("wren: password below minimum length")
)

const maxPathDepth = 4

// Store owns the persisted document. Every mutation re-serializes the
// whole tree; a single-writer mutex keeps concurrent requests from
// interleaving partial writes.
type Store struct {
	mu  sync.Mutex
	dir string
	doc *Document

	// SeededPassword holds the generated plaintext admin password when
	// this process created the document, so it can be surfaced once.
	SeededPassword string
}

// NewStore opens the document under dir, ensuring the directory exists
// and seeding a fresh document if none is present. A document that
// exists but fails to parse is a fatal error: the file is the sole
// source of truth and must not be silently replaced.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("wren: create data dir: %w", err)
	}
	s := &Store{dir: dir}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the location of the serialized document.
func (s *Store) Path() string {
	return filepath.Join(s.dir, documentFile)
}

// Document returns a snapshot of the current document. Callers get
// their own copy and can read it without holding the store lock while
// concurrent mutations land.
func (s *Store) Document() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.clone()
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return s.seedLocked()
	}
	if err != nil {
		return fmt.Errorf("wren: read document: %w", err)
	}
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("wren: corrupt document %s: %w", s.Path(), err)
	}
	if doc.Pages == nil {
		doc.Pages = map[string]Page{}
	}
	if doc.Blocks == nil {
		doc.Blocks = map[string]Block{}
	}
	s.doc = doc
	return nil
}

// Reload re-reads the document from disk. Called at the start of every
// request so no cached copy outlives the request that loaded it.
func (s *Store) Reload() error {
	return s.load()
}

func (s *Store) seedLocked() error {
	password, err := randomHex(8)
	if err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	s.doc = seedDocument(hash)
	s.SeededPassword = password
	return s.persistLocked()
}

func seedDocument(passwordHash string) *Document {
	return &Document{
		Config: Config{
			SiteTitle:   "Website",
			Theme:       "default",
			DefaultPage: "home",
			Login:       "loginURL",
			Password:    passwordHash,
			DBVersion:   dbVersion,
			MenuItems: []MenuItem{
				{Name: "Home", Slug: "home", Visibility: VisibilityShow},
				{Name: "Example", Slug: "example", Visibility: VisibilityShow},
			},
		},
		Pages: map[string]Page{
			"home": {
				Title:       "Home",
				Keywords:    "Enter, keywords, for, this page",
				Description: "A page description is also good for search engines.",
				Content:     "<h1>Website alive!</h1>\n\n<h4>Your password for editing everything is in the server log.</h4>",
			},
			"example": {
				Title:       "Example",
				Keywords:    "Enter, keywords, for, this page",
				Description: "A page description is also good for search engines.",
				Content:     "<h1>How to create new pages</h1>\n<p>Open the menu settings and add a page.</p>",
			},
			"404": {
				Title:   "404",
				Content: "<h1>Sorry, page not found. :(</h1>",
			},
		},
		Blocks: map[string]Block{
			"subside": {Content: "<h2>About your website</h2>\n\n<p>Your photo, website description, contact information or anything else.</p>"},
			"footer":  {Content: "&copy; Website"},
		},
	}
}

// persistLocked writes the full document atomically: marshal, write a
// temp file in the same directory, rename over the target.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.doc, "", "    ")
	if err != nil {
		return fmt.Errorf("wren: marshal document: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, documentFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("wren: create temp document: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("wren: write temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("wren: close temp document: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("wren: replace document: %w", err)
	}
	return nil
}

// Get retrieves a nested value by a sequence of 1-4 keys. The first key
// selects the document section; deeper keys walk the typed tree.
func (s *Store) Get(keys ...string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(keys) == 0 {
		return nil, ErrNotFound
	}
	if len(keys) > maxPathDepth {
		return nil, ErrTooManyKeys
	}
	switch keys[0] {
	case "config":
		return s.getConfig(keys[1:])
	case "pages":
		return getEntry(s.doc.Pages, keys[1:], pageField)
	case "blocks":
		return getEntry(s.doc.Blocks, keys[1:], blockField)
	}
	return nil, ErrNotFound
}

func (s *Store) getConfig(keys []string) (any, error) {
	cfg := &s.doc.Config
	if len(keys) == 0 {
		return *cfg, nil
	}
	if keys[0] == "menuItems" {
		return getMenu(cfg.MenuItems, keys[1:])
	}
	if len(keys) > 1 {
		return nil, ErrNotFound
	}
	switch keys[0] {
	case "siteTitle":
		return cfg.SiteTitle, nil
	case "theme":
		return cfg.Theme, nil
	case "defaultPage":
		return cfg.DefaultPage, nil
	case "login":
		return cfg.Login, nil
	case "password":
		return cfg.Password, nil
	case "dbVersion":
		return cfg.DBVersion, nil
	}
	return nil, ErrNotFound
}

func getMenu(items []MenuItem, keys []string) (any, error) {
	if len(keys) == 0 {
		return items, nil
	}
	idx, err := strconv.Atoi(keys[0])
	if err != nil || idx < 0 || idx >= len(items) {
		return nil, ErrNotFound
	}
	if len(keys) == 1 {
		return items[idx], nil
	}
	switch keys[1] {
	case "name":
		return items[idx].Name, nil
	case "slug":
		return items[idx].Slug, nil
	case "visibility":
		return items[idx].Visibility, nil
	}
	return nil, ErrNotFound
}

func getEntry[T any](m map[string]T, keys []string, field func(T, string) (string, bool)) (any, error) {
	if len(keys) == 0 {
		return m, nil
	}
	entry, ok := m[keys[0]]
	if !ok {
		return nil, ErrNotFound
	}
	if len(keys) == 1 {
		return entry, nil
	}
	if len(keys) > 2 {
		return nil, ErrNotFound
	}
	if v, ok := field(entry, keys[1]); ok {
		return v, nil
	}
	return nil, ErrNotFound
}

func pageField(p Page, name string) (string, bool) {
	switch name {
	case "title":
		return p.Title, true
	case "keywords":
		return p.Keywords, true
	case "description":
		return p.Description, true
	case "content":
		return p.Content, true
	}
	return "", false
}

func blockField(b Block, name string) (string, bool) {
	if name == "content" {
		return b.Content, true
	}
	return "", false
}

// Set writes a nested value, creating missing pages and blocks as
// needed, and always persists the full document synchronously.
func (s *Store) Set(keys []string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(keys) == 0 {
		return ErrNotFound
	}
	if len(keys) > maxPathDepth {
		return ErrTooManyKeys
	}
	var err error
	switch keys[0] {
	case "config":
		err = s.setConfig(keys[1:], value)
	case "pages":
		err = s.setPage(keys[1:], value)
	case "blocks":
		err = s.setBlock(keys[1:], value)
	default:
		err = ErrNotFound
	}
	if err != nil {
		return err
	}
	return s.persistLocked()
}

func (s *Store) setConfig(keys []string, value any) error {
	cfg := &s.doc.Config
	if len(keys) == 0 {
		return ErrNotFound
	}
	if keys[0] == "menuItems" {
		return setMenu(cfg, keys[1:], value)
	}
	if len(keys) > 1 {
		return ErrNotFound
	}
	if keys[0] == "dbVersion" {
		n, ok := value.(int)
		if !ok {
			return fmt.Errorf("wren: dbVersion requires an int value")
		}
		cfg.DBVersion = n
		return nil
	}
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("wren: config.%s requires a string value", keys[0])
	}
	switch keys[0] {
	case "siteTitle":
		cfg.SiteTitle = str
	case "theme":
		cfg.Theme = str
	case "defaultPage":
		cfg.DefaultPage = str
	case "login":
		cfg.Login = str
	case "password":
		cfg.Password = str
	default:
		return ErrNotFound
	}
	return nil
}

func setMenu(cfg *Config, keys []string, value any) error {
	if len(keys) == 0 {
		items, ok := value.([]MenuItem)
		if !ok {
			return fmt.Errorf("wren: menuItems requires a []MenuItem value")
		}
		cfg.MenuItems = items
		return nil
	}
	idx, err := strconv.Atoi(keys[0])
	if err != nil || idx < 0 || idx >= len(cfg.MenuItems) {
		return ErrNotFound
	}
	if len(keys) == 1 {
		item, ok := value.(MenuItem)
		if !ok {
			return fmt.Errorf("wren: menu entry requires a MenuItem value")
		}
		cfg.MenuItems[idx] = item
		return nil
	}
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("wren: menu field requires a string value")
	}
	switch keys[1] {
	case "name":
		cfg.MenuItems[idx].Name = str
	case "slug":
		cfg.MenuItems[idx].Slug = str
	case "visibility":
		cfg.MenuItems[idx].Visibility = str
	default:
		return ErrNotFound
	}
	return nil
}

func (s *Store) setPage(keys []string, value any) error {
	switch len(keys) {
	case 1:
		page, ok := value.(Page)
		if !ok {
			return fmt.Errorf("wren: page requires a Page value")
		}
		s.doc.Pages[keys[0]] = page
		return nil
	case 2:
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("wren: page field requires a string value")
		}
		page := s.doc.Pages[keys[0]]
		switch keys[1] {
		case "title":
			page.Title = str
		case "keywords":
			page.Keywords = str
		case "description":
			page.Description = str
		case "content":
			page.Content = str
		default:
			return ErrNotFound
		}
		s.doc.Pages[keys[0]] = page
		return nil
	}
	return ErrNotFound
}

func (s *Store) setBlock(keys []string, value any) error {
	switch len(keys) {
	case 1:
		block, ok := value.(Block)
		if !ok {
			return fmt.Errorf("wren: block requires a Block value")
		}
		s.doc.Blocks[keys[0]] = block
		return nil
	case 2:
		if keys[1] != "content" {
			return ErrNotFound
		}
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("wren: block content requires a string value")
		}
		s.doc.Blocks[keys[0]] = Block{Content: str}
		return nil
	}
	return ErrNotFound
}

// mutate runs fn against the document under the writer lock and
// persists the result in a single write. Multi-field mutations (menu
// reorder, page delete) go through here so the invariants they maintain
// never hit disk half-applied.
func (s *Store) mutate(fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.doc); err != nil {
		return err
	}
	return s.persistLocked()
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("wren: generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
