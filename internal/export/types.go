// Package export renders journal entries into paginated PDF documents.
package export

import (
	"errors"
)

// Format represents the export output encoding
type Format string

const (
	FormatPDF    Format = "pdf"
	FormatBase64 Format = "base64"
)

// Result contains the export output. Pages is zero when the document was
// served from cache.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
	Pages    int
	Cached   bool
}

var (
	// ErrInvalidRecord indicates a record is missing data the layout needs.
	ErrInvalidRecord = errors.New("export record invalid")
	// ErrRender indicates the PDF backend reported a drawing or output failure.
	ErrRender = errors.New("export render failed")
	// ErrContentUnavailable indicates entry data could not be loaded for export.
	ErrContentUnavailable = errors.New("export content unavailable")
)
