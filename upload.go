package wren

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const maxUploadSize = 10 << 20 // 10MB

// allowedUploads maps a lowercase file extension to the sniffed
// content types accepted for it. http.DetectContentType reports
// container formats for several of these (docx and friends are zip
// archives, most audio/video and document types sniff as
// application/octet-stream), so each entry lists every sniff result a
// legitimate file of that type can produce.
var allowedUploads = map[string][]string{
	"avi":  {"video/avi", "application/octet-stream"},
	"css":  {"text/plain"},
	"doc":  {"application/msword", "application/octet-stream"},
	"docx": {"application/zip"},
	"flv":  {"video/x-flv", "application/octet-stream"},
	"gif":  {"image/gif"},
	"htm":  {"text/html"},
	"html": {"text/html"},
	"ico":  {"image/x-icon", "image/vnd.microsoft.icon"},
	"jpg":  {"image/jpeg"},
	"jpeg": {"image/jpeg"},
	"kdbx": {"application/octet-stream"},
	"m4a":  {"audio/mp4", "video/mp4", "application/octet-stream"},
	"mov":  {"video/quicktime", "application/octet-stream"},
	"mp3":  {"audio/mpeg", "application/octet-stream"},
	"mp4":  {"video/mp4"},
	"mpg":  {"video/mpeg", "application/octet-stream"},
	"ods":  {"application/zip"},
	"odt":  {"application/zip"},
	"ogg":  {"application/ogg"},
	"ogv":  {"application/ogg"},
	"pdf":  {"application/pdf"},
	"png":  {"image/png"},
	"ppt":  {"application/vnd.ms-powerpoint", "application/octet-stream"},
	"pptx": {"application/zip"},
	"psd":  {"image/vnd.adobe.photoshop", "application/octet-stream"},
	"rar":  {"application/x-rar-compressed", "application/octet-stream"},
	"svg":  {"image/svg+xml", "text/xml", "text/plain"},
	"txt":  {"text/plain"},
	"wav":  {"audio/wave", "audio/wav"},
	"webm": {"video/webm", "application/octet-stream"},
	"webp": {"image/webp"},
	"xls":  {"application/vnd.ms-excel", "application/octet-stream"},
	"xlsx": {"application/zip"},
	"zip":  {"application/zip"},
}

var (
	errNoFile        = errors.New("wren: no file selected")
	errFileTooLarge  = errors.New("wren: file too large")
	errForbiddenType = errors.New("wren: file type not allowed")
)

// sniffContent reads the first 512 bytes and reports the detected
// content type without parameters ("text/plain; charset=utf-8" becomes
// "text/plain").
func sniffContent(r io.Reader) (string, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	detected := http.DetectContentType(buf[:n])
	if i := strings.Index(detected, ";"); i >= 0 {
		detected = detected[:i]
	}
	return detected, nil
}

// validateUpload checks a named upload's extension against the
// allow-list and cross-checks the content-sniffed type, so a forbidden
// payload behind a friendly extension (shell.php.jpg) is rejected.
func validateUpload(name string, r io.Reader) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	accepted, ok := allowedUploads[ext]
	if !ok {
		return errForbiddenType
	}
	detected, err := sniffContent(r)
	if err != nil {
		return err
	}
	for _, want := range accepted {
		if detected == want {
			return nil
		}
	}
	return errForbiddenType
}

// uploadFile validates and stores a multipart upload in the files
// directory under its original base name. The last upload with a given
// name wins; there is no collision handling.
func (a *App) uploadFile(ctx *actionContext) (outcome, error) {
	c := ctx.c
	back := redirectTo(c.Request().URL.Path)

	file, err := c.FormFile("uploadFile")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			a.alert(c, AlertDanger, "No file selected.")
		} else {
			a.alert(c, AlertDanger, "Upload failed for an unknown reason.")
		}
		return back, nil
	}
	if file.Size > maxUploadSize {
		a.alert(c, AlertDanger, "File too large. Maximum upload size is 10MB.")
		return back, nil
	}

	if err := a.saveUpload(file); err != nil {
		switch {
		case errors.Is(err, errForbiddenType):
			a.alert(c, AlertDanger, "File type is not allowed.")
		case errors.Is(err, errNoFile):
			a.alert(c, AlertDanger, "No file selected.")
		default:
			return rendered, err
		}
		return back, nil
	}
	a.alert(c, AlertSuccess, "File uploaded.")
	return back, nil
}

func (a *App) saveUpload(file *multipart.FileHeader) error {
	name := filepath.Base(file.Filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return errNoFile
	}

	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("wren: open upload: %w", err)
	}
	defer src.Close()

	if err := validateUpload(name, src); err != nil {
		return err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("wren: rewind upload: %w", err)
	}

	dir := a.filesDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("wren: create files dir: %w", err)
	}
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("wren: create upload target: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("wren: write upload: %w", err)
	}
	return nil
}
