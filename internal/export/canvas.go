package export

import (
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

// Canvas is the drawing surface the renderer paints on. Shapes are filled
// with the current fill color; lines use the current draw color.
type Canvas interface {
	Measurer
	AddPage()
	SetFont(family, style string, size float64)
	SetFillColor(c RGB)
	SetTextColor(c RGB)
	SetDrawColor(c RGB)
	SetLineWidth(w float64)
	Text(x, y float64, s string)
	Rect(x, y, w, h float64)
	RoundedRect(x, y, w, h, r float64)
	Circle(x, y, r float64)
	Line(x1, y1, x2, y2 float64)
}

// fpdfCanvas draws with the core PDF fonts. Text is translated to cp1252 so
// the separators and dashes used in headers render correctly.
type fpdfCanvas struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newFPDFCanvas(style StyleSheet, created time.Time) *fpdfCanvas {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: style.PageWidth, Ht: style.PageHeight},
	})
	pdf.SetMargins(style.Margin, style.Margin, style.Margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(created)
	pdf.SetModificationDate(created)
	pdf.SetCatalogSort(true)
	return &fpdfCanvas{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

func (c *fpdfCanvas) AddPage() { c.pdf.AddPage() }

func (c *fpdfCanvas) SetFont(family, style string, size float64) {
	c.pdf.SetFont(family, style, size)
}

func (c *fpdfCanvas) SetFillColor(rgb RGB) { c.pdf.SetFillColor(rgb.R, rgb.G, rgb.B) }
func (c *fpdfCanvas) SetTextColor(rgb RGB) { c.pdf.SetTextColor(rgb.R, rgb.G, rgb.B) }
func (c *fpdfCanvas) SetDrawColor(rgb RGB) { c.pdf.SetDrawColor(rgb.R, rgb.G, rgb.B) }
func (c *fpdfCanvas) SetLineWidth(w float64) {
	c.pdf.SetLineWidth(w)
}

func (c *fpdfCanvas) StringWidth(s string) float64 {
	return c.pdf.GetStringWidth(c.tr(s))
}

func (c *fpdfCanvas) Text(x, y float64, s string) {
	c.pdf.Text(x, y, c.tr(s))
}

func (c *fpdfCanvas) Rect(x, y, w, h float64) {
	c.pdf.Rect(x, y, w, h, "F")
}

func (c *fpdfCanvas) RoundedRect(x, y, w, h, r float64) {
	c.pdf.RoundedRect(x, y, w, h, r, "1234", "F")
}

func (c *fpdfCanvas) Circle(x, y, r float64) {
	c.pdf.Circle(x, y, r, "F")
}

func (c *fpdfCanvas) Line(x1, y1, x2, y2 float64) {
	c.pdf.Line(x1, y1, x2, y2)
}

func (c *fpdfCanvas) output(w io.Writer) error {
	return c.pdf.Output(w)
}
