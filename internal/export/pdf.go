package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const pdfMimeType = "application/pdf"

// Document is one rendered entry. The same bytes back every output sink.
type Document struct {
	data     []byte
	filename string
	pages    int
}

// Build validates rec and renders it with style.
func Build(rec Record, style StyleSheet) (*Document, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	created, _ := time.Parse(isoDate, rec.Date)

	c := newFPDFCanvas(style, created)
	c.pdf.SetTitle(rec.DocumentTitle+" · "+rec.Date, true)
	c.pdf.SetAuthor(rec.DisplayName, true)
	c.pdf.SetCreator("booklogger", false)

	pages, err := Render(c, style, rec)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := c.output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return &Document{
		data:     buf.Bytes(),
		filename: Filename(rec.DocumentTitle, rec.Date),
		pages:    pages,
	}, nil
}

func (d *Document) Bytes() []byte    { return d.data }
func (d *Document) Filename() string { return d.filename }
func (d *Document) Pages() int       { return d.pages }

// Base64 returns the document as standard base64 for JSON upload bodies.
func (d *Document) Base64() string {
	return base64.StdEncoding.EncodeToString(d.data)
}

// WriteTo streams the document bytes to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d.data)
	return int64(n), err
}

// SaveToFile writes the document into dir under its filename and returns the
// full path.
func (d *Document) SaveToFile(dir string) (string, error) {
	path := filepath.Join(dir, d.filename)
	if err := os.WriteFile(path, d.data, 0o644); err != nil {
		return "", fmt.Errorf("save pdf: %w", err)
	}
	return path, nil
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Filename builds "{slug}-{date}.pdf" from a document title.
func Filename(title, date string) string {
	slug := slugUnsafe.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "logbook"
	}
	return slug + "-" + date + ".pdf"
}
