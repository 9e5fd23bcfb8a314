package wren

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var errEscapesRoot = errors.New("wren: path escapes its root")

// sanitizeName strips path-traversal fragments from an operator-
// supplied file or directory name.
func sanitizeName(name string) string {
	replacer := strings.NewReplacer("./", "", "../", "", "..", "", "~", "", "\\", "")
	name = replacer.Replace(name)
	name = strings.Trim(name, "/")
	return name
}

// containedPath joins name onto root and verifies the result stays
// inside root.
func containedPath(root, name string) (string, error) {
	joined := filepath.Join(root, name)
	rel, err := filepath.Rel(root, joined)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errEscapesRoot
	}
	return joined, nil
}

// deleteContained removes name under root recursively, refusing to
// delete the root itself or anything outside it. Removal is depth-first
// (files before their directories).
func deleteContained(root, name string) error {
	name = sanitizeName(name)
	if name == "" {
		return errEscapesRoot
	}
	target, err := containedPath(root, name)
	if err != nil {
		return err
	}
	return os.RemoveAll(target)
}

// downloadToTemp fetches a URL into a temp file and returns its path.
// The caller is responsible for removing the file.
func downloadToTemp(client *http.Client, rawURL string) (string, error) {
	resp, err := client.Get(rawURL)
	if err != nil {
		return "", fmt.Errorf("wren: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wren: fetch %s: unexpected status %s", rawURL, resp.Status)
	}
	tmp, err := os.CreateTemp("", "wren-download-*.zip")
	if err != nil {
		return "", fmt.Errorf("wren: create temp download: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("wren: write temp download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("wren: close temp download: %w", err)
	}
	return tmp.Name(), nil
}

// fetchText retrieves a small remote text artifact in full.
func fetchText(client *http.Client, rawURL string) ([]byte, error) {
	resp, err := client.Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("wren: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wren: fetch %s: unexpected status %s", rawURL, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// extractZip unpacks src under destRoot. Entry names are containment-
// checked so a crafted archive cannot write outside destRoot (zip
// slip). On any failure the extracted portion is left for the caller to
// clean up.
func extractZip(src, destRoot string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("wren: open archive: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return fmt.Errorf("wren: create extract root: %w", err)
	}
	for _, f := range r.File {
		target, err := containedPath(destRoot, f.Name)
		if err != nil {
			return fmt.Errorf("wren: archive entry %q: %w", f.Name, err)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("wren: extract dir %q: %w", f.Name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("wren: extract dir for %q: %w", f.Name, err)
		}
		if err := extractZipFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("wren: open archive entry %q: %w", f.Name, err)
	}
	defer rc.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return fmt.Errorf("wren: create %q: %w", target, err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, rc); err != nil {
		return fmt.Errorf("wren: write %q: %w", target, err)
	}
	return nil
}

// zipDirectory archives root into dest, skipping paths for which skip
// returns true. Entry names are stored relative to root.
func zipDirectory(root, dest string, skip func(path string) bool) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("wren: create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if skip != nil && skip(path) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("wren: zip %s: %w", root, err)
	}
	return zw.Close()
}

// existingBackups lists backup archives already present in the files
// directory.
func existingBackups(filesDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(filesDir, "*.zip"))
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// backupInstall zips the entire install root into the files directory.
// It refuses with errStaleBackups when earlier archives are still
// present: backups contain the password hash and every uploaded file,
// and letting them pile up in a web-served directory is how secrets
// leak.
func (a *App) backupInstall() (string, error) {
	filesDir := a.filesDir()
	stale, err := existingBackups(filesDir)
	if err != nil {
		return "", err
	}
	if len(stale) > 0 {
		return "", errStaleBackups
	}
	if err := os.MkdirAll(filesDir, 0o755); err != nil {
		return "", fmt.Errorf("wren: create files dir: %w", err)
	}
	name := fmt.Sprintf("backup-%s-%s.zip", time.Now().Format("2006-01-02"), uuid.NewString())
	dest := filepath.Join(filesDir, name)
	// The archive under construction lives inside the tree being
	// zipped; skip it.
	skipSelf := func(path string) bool {
		return path == dest
	}
	if err := zipDirectory(a.rootDir, dest, skipSelf); err != nil {
		os.Remove(dest)
		return "", err
	}
	return name, nil
}

var errStaleBackups = errors.New("wren: stale backup archives present")

// installAddon downloads a zip from an operator-supplied URL and
// extracts it under the themes or plugins root. Extraction goes
// through a staging directory that is removed on any failure, so an
// archive that fails partway through never leaves a half-installed
// addon behind. The temp zip is always removed.
func (a *App) installAddon(rawURL, location string) error {
	root, err := a.addonRoot(location)
	if err != nil {
		return err
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("wren: invalid addon URL %q", rawURL)
	}
	tmp, err := downloadToTemp(a.fetchClient, rawURL)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	// Stage inside the install root so the final renames stay on one
	// filesystem.
	stage, err := os.MkdirTemp(a.rootDir, ".addon-stage-*")
	if err != nil {
		return fmt.Errorf("wren: create staging dir: %w", err)
	}
	defer os.RemoveAll(stage)
	if err := extractZip(tmp, stage); err != nil {
		return err
	}
	return moveEntries(stage, root)
}

// moveEntries moves each top-level entry of stage into root, replacing
// entries already installed under the same name.
func moveEntries(stage, root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("wren: create addon root: %w", err)
	}
	entries, err := os.ReadDir(stage)
	if err != nil {
		return fmt.Errorf("wren: read staging dir: %w", err)
	}
	for _, entry := range entries {
		target := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("wren: replace %q: %w", entry.Name(), err)
		}
		if err := os.Rename(filepath.Join(stage, entry.Name()), target); err != nil {
			return fmt.Errorf("wren: install %q: %w", entry.Name(), err)
		}
	}
	return nil
}

func (a *App) addonRoot(location string) (string, error) {
	switch location {
	case "themes":
		return a.themesDir(), nil
	case "plugins":
		return a.pluginsDir(), nil
	}
	return "", fmt.Errorf("wren: invalid install location %q", location)
}

// stageUpdate fetches the canonical release artifact and stages it in
// the install root for the operator to apply. The running binary is
// never overwritten in place.
func (a *App) stageUpdate() (string, error) {
	tmp, err := downloadToTemp(a.fetchClient, a.updateURL)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp)

	staged := filepath.Join(a.rootDir, "wren-update.zip")
	data, err := os.ReadFile(tmp)
	if err != nil {
		return "", fmt.Errorf("wren: read staged update: %w", err)
	}
	if err := os.WriteFile(staged, data, 0o644); err != nil {
		return "", fmt.Errorf("wren: write staged update: %w", err)
	}
	return staged, nil
}

// applySecurityConfig swaps the web-server access-control file between
// the hardened and default remote templates. A failed fetch leaves the
// current file untouched.
func (a *App) applySecurityConfig(hardened bool) error {
	src := a.defaultConfigURL
	if hardened {
		src = a.hardenedConfigURL
	}
	body, err := fetchText(a.fetchClient, src)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(a.rootDir, accessConfigFile), body, 0o644)
}
