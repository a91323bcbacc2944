package extracthtml

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// Document is a parsed export page together with the path it was read from.
type Document struct {
	Source string
	*goquery.Document
}

// Loader reads export pages from disk.
type Loader struct {
	// open is a test seam. Production uses os.Open.
	open func(name string) (io.ReadCloser, error)
	stat func(name string) (fs.FileInfo, error)
}

// NewLoader returns a Loader backed by the local filesystem.
func NewLoader() *Loader {
	return &Loader{
		open: func(name string) (io.ReadCloser, error) { return os.Open(name) },
		stat: os.Stat,
	}
}

// Load reads the file at path and returns its content decoded to UTF-8.
//
// The file handle is closed as soon as the read completes, whether or not
// decoding succeeds. A missing, unreadable or non-regular path yields an
// error wrapping ErrInputNotFound.
func (l *Loader) Load(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty path", ErrInputNotFound)
	}

	fi, err := l.stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: file %q: %v", ErrInputNotFound, path, err)
	}
	if !fi.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %q is not a regular file", ErrInputNotFound, path)
	}

	b, err := l.readAll(path)
	if err != nil {
		return "", err
	}
	return decode(b)
}

func (l *Loader) readAll(path string) ([]byte, error) {
	f, err := l.open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", ErrInputNotFound, path, err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %v", ErrInputNotFound, path, err)
	}
	return b, nil
}

// decode converts b to UTF-8 when the document declares another charset.
// Undeclared documents that are valid UTF-8, which is what the export tool
// writes, are returned unchanged. Undeclared invalid UTF-8 falls back to
// windows-1252 as browsers do.
func decode(b []byte) (string, error) {
	b = bytes.TrimPrefix(b, utf8BOM)

	enc, name, _ := charset.DetermineEncoding(b, "text/html")
	if name == "utf-8" {
		return string(b), nil
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), b)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return string(out), nil
}

// Parse parses html into a Document tagged with source.
func Parse(source, html string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html %s: %w", source, err)
	}
	return &Document{Source: source, Document: doc}, nil
}
