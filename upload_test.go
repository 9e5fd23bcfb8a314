package wren

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// pngHeader is a minimal valid PNG signature followed by padding, so
// content sniffing reports image/png.
var pngHeader = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

func TestValidateUpload(t *testing.T) {
	cases := []struct {
		name    string
		content []byte
		wantErr bool
	}{
		{"picture.png", pngHeader, false},
		{"notes.txt", []byte("plain text notes"), false},
		{"archive.zip", []byte("PK\x03\x04rest-of-zip"), false},
		// Spoofed extension: PHP source behind a .jpg name sniffs as
		// text, not image/jpeg.
		{"shell.php.jpg", []byte("<?php system($_GET['c']); ?>"), true},
		{"script.php", []byte("<?php ?>"), true},
		{"binary.exe", []byte{0x4d, 0x5a, 0x00, 0x00}, true},
		{"noextension", []byte("data"), true},
		// Wrong container: a zip payload behind a .png name.
		{"fake.png", []byte("PK\x03\x04rest-of-zip"), true},
	}
	for _, tc := range cases {
		err := validateUpload(tc.name, bytes.NewReader(tc.content))
		if tc.wantErr && err == nil {
			t.Errorf("validateUpload(%q) should be rejected", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("validateUpload(%q) unexpectedly rejected: %v", tc.name, err)
		}
	}
}

func TestValidateUploadRejectsUnknownExtension(t *testing.T) {
	if err := validateUpload("file.xyz", bytes.NewReader([]byte("data"))); !errors.Is(err, errForbiddenType) {
		t.Errorf("got %v, want errForbiddenType", err)
	}
}

func multipartUpload(t *testing.T, field, filename string, content []byte, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range extra {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return body, w.FormDataContentType()
}

func TestUploadActionStoresAllowedFile(t *testing.T) {
	a := newTestApp(t)
	cookie := authSession(t, a, "tok")

	body, ctype := multipartUpload(t, "uploadFile", "picture.png", pngHeader, map[string]string{"token": "tok"})
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", ctype)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	stored, err := os.ReadFile(filepath.Join(a.filesDir(), "picture.png"))
	if err != nil {
		t.Fatalf("uploaded file missing: %v", err)
	}
	if !bytes.Equal(stored, pngHeader) {
		t.Error("stored file should be byte-identical to the upload")
	}
}

func TestUploadActionRejectsSpoofedExtension(t *testing.T) {
	a := newTestApp(t)
	cookie := authSession(t, a, "tok")

	payload := []byte("<?php system($_GET['c']); ?>")
	body, ctype := multipartUpload(t, "uploadFile", "shell.php.jpg", payload, map[string]string{"token": "tok"})
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", ctype)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303 (rejection is an alert, not an error page)", rec.Code)
	}
	if _, err := os.Stat(filepath.Join(a.filesDir(), "shell.php.jpg")); !errors.Is(err, os.ErrNotExist) {
		t.Error("spoofed upload must not be written to the files directory")
	}
}

func TestUploadActionRequiresToken(t *testing.T) {
	a := newTestApp(t)
	cookie := authSession(t, a, "tok")

	body, ctype := multipartUpload(t, "uploadFile", "picture.png", pngHeader, map[string]string{"token": "nope"})
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", ctype)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)

	// A bad token is a silent no-op: the page renders normally.
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if _, err := os.Stat(filepath.Join(a.filesDir(), "picture.png")); !errors.Is(err, os.ErrNotExist) {
		t.Error("upload with a bad token must not be stored")
	}
}

func TestUploadUsesBaseNameOnly(t *testing.T) {
	a := newTestApp(t)
	cookie := authSession(t, a, "tok")

	body, ctype := multipartUpload(t, "uploadFile", "../../escape.txt", []byte("text"), map[string]string{"token": "tok"})
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", ctype)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if _, err := os.Stat(filepath.Join(a.filesDir(), "escape.txt")); err != nil {
		t.Errorf("upload should land under its base name in files/: %v", err)
	}
	if _, err := os.Stat(filepath.Join(a.rootDir, "escape.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Error("upload must not escape the files directory")
	}
}
