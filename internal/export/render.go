package export

import (
	"fmt"
	"math"
	"strings"
)

// PlaceholderText is drawn when an entry has no non-empty blocks.
const PlaceholderText = "No notes recorded for this entry."

const continuedSuffix = " (cont.)"

type renderer struct {
	c      Canvas
	style  StyleSheet
	rec    Record
	layout *PageLayout
	cards  int
}

// Render draws rec onto c and returns the number of pages produced.
// The record is assumed to be validated.
func Render(c Canvas, style StyleSheet, rec Record) (int, error) {
	energy, ok := style.Energy[rec.Energy]
	if !ok {
		return 0, fmt.Errorf("%w: no style for energy %q", ErrInvalidRecord, rec.Energy)
	}
	r := &renderer{
		c:      c,
		style:  style,
		rec:    rec,
		layout: NewPageLayout(style.FirstContentTop(), style.ContinuationTop(), style.ContentBottom()),
	}

	r.startPage()
	r.drawHeader(energy)
	for _, block := range rec.Blocks {
		r.drawBlock(block)
	}
	if r.cards == 0 {
		r.drawPlaceholder()
	}
	r.drawFooter()
	return r.layout.Page(), nil
}

func (r *renderer) startPage() {
	r.c.AddPage()
	r.c.SetFillColor(r.style.Background)
	r.c.Rect(0, 0, r.style.PageWidth, r.style.PageHeight)
}

func (r *renderer) breakPage() {
	r.drawFooter()
	r.layout.NewPage()
	r.startPage()
}

func (r *renderer) drawHeader(energy EnergyStyle) {
	s := r.style
	r.c.SetFillColor(s.Section)
	r.c.Rect(0, 0, s.PageWidth, s.HeaderHeight)
	r.c.SetFillColor(s.Accent)
	r.c.Rect(0, 0, s.PageWidth, s.AccentStripH)

	r.c.SetFont(s.FontFamily, "B", s.TitleSize)
	r.c.SetTextColor(s.Accent)
	r.c.Text(s.Margin, s.TitleBaseline, r.rec.DocumentTitle)

	r.c.SetFont(s.FontFamily, "", s.SubtitleSize)
	r.c.SetTextColor(s.TextSecondary)
	r.c.Text(s.Margin, s.SubtitleBaseline, r.rec.LongDate())

	r.c.SetDrawColor(s.Border)
	r.c.SetLineWidth(s.LineWidth)
	r.c.Line(s.Margin, s.DividerY, s.PageWidth-s.Margin, s.DividerY)

	r.drawMetaRow(energy)
}

// drawMetaRow lays the metadata out left to right; each element starts where
// the measured width of the previous one ends.
func (r *renderer) drawMetaRow(energy EnergyStyle) {
	s := r.style
	y := s.MetaBaseline
	x := s.Margin
	r.c.SetFont(s.FontFamily, "", s.MetaSize)

	if org := strings.TrimSpace(r.rec.Organization); org != "" {
		r.c.SetTextColor(s.TextMuted)
		r.c.Text(x, y, org)
		x += r.c.StringWidth(org)
		r.c.SetTextColor(s.TextSecondary)
		r.c.Text(x+s.MetaSeparator/2, y, "·")
		x += s.MetaSeparator + 4
	}

	duration := r.rec.Duration.String()
	r.c.SetTextColor(s.TextSecondary)
	r.c.Text(x, y, duration)
	x += r.c.StringWidth(duration) + s.MetaSeparator

	dot := s.EnergyDotRadius
	r.c.SetFillColor(energy.Color)
	r.c.Circle(x+dot, y-dot, dot)
	r.c.SetTextColor(energy.Color)
	r.c.Text(x+2*dot+2, y, energy.Label)

	if loc := strings.TrimSpace(r.rec.Location); loc != "" {
		r.c.SetTextColor(s.TextMuted)
		r.c.Text(s.PageWidth-s.Margin-r.c.StringWidth(loc), y, loc)
	}
}

func (r *renderer) drawFooter() {
	s := r.style
	footerY := s.PageHeight - s.FooterOffset
	r.c.SetDrawColor(s.Border)
	r.c.SetLineWidth(s.LineWidth)
	r.c.Line(s.Margin, footerY-s.FooterGap, s.PageWidth-s.Margin, footerY-s.FooterGap)

	r.c.SetFont(s.FontFamily, "I", s.FooterSize)
	r.c.SetTextColor(s.TextMuted)
	r.c.Text(s.Margin, footerY, "— "+r.rec.DisplayName)

	r.c.SetFont(s.FontFamily, "", s.FooterLabel)
	label := r.rec.DocumentTitle + " · " + r.rec.Date
	r.c.Text(s.PageWidth-s.Margin-r.c.StringWidth(label), footerY, label)
}

// drawBlock places one block as one or more cards. A card that fits a fresh
// page but not the current one moves to the next page whole; a card taller
// than a fresh page is split across pages.
func (r *renderer) drawBlock(block ContentBlock) {
	text, ok := DisplayText(block.Value)
	if !ok {
		return
	}
	s := r.style
	r.c.SetFont(s.FontFamily, "", s.BodySize)
	lines := WrapText(r.c, text, s.CardInnerWidth())
	label := block.Label

	for len(lines) > 0 {
		h := s.CardHeight(len(lines))
		if !r.layout.WouldOverflow(h) {
			r.drawCard(label, lines)
			return
		}
		if h <= r.layout.Capacity() {
			r.breakPage()
			continue
		}

		n := r.linesThatFit(r.layout.Remaining())
		if n < 1 {
			if !r.layout.Fresh() {
				r.breakPage()
				continue
			}
			// The style leaves no room for even one line; draw one and let it clip.
			n = 1
		}
		r.drawCard(label, lines[:n])
		lines = lines[n:]
		label = block.Label + continuedSuffix
		if len(lines) > 0 {
			r.breakPage()
		}
	}
}

func (r *renderer) linesThatFit(space float64) int {
	s := r.style
	n := (space - s.CardHeight(0)) / s.CardLineHeight
	return int(math.Floor(n + 1e-9))
}

func (r *renderer) drawCard(label string, lines []string) {
	s := r.style
	y := r.layout.Y()
	h := s.CardHeight(len(lines))

	r.c.SetFillColor(s.Section)
	r.c.RoundedRect(s.Margin, y, s.ContentWidth(), h, s.CardRadius)
	r.c.SetFillColor(s.Accent)
	r.c.RoundedRect(s.Margin, y, s.CardBarWidth, h, s.CardBarRadius)

	textX := s.Margin + s.CardBarWidth + s.CardInnerPadding
	r.c.SetFont(s.FontFamily, "B", s.CardLabelSize)
	r.c.SetTextColor(s.TextMuted)
	r.c.Text(textX, y+s.CardPadding, strings.ToUpper(label))

	r.c.SetFont(s.FontFamily, "", s.BodySize)
	r.c.SetTextColor(s.TextPrimary)
	base := y + s.CardPadding + s.CardLabelHeight + s.CardLabelGap
	for i, line := range lines {
		r.c.Text(textX, base+float64(i)*s.CardLineHeight, line)
	}

	r.layout.Advance(h + s.CardGap)
	r.cards++
}

func (r *renderer) drawPlaceholder() {
	s := r.style
	r.c.SetFont(s.FontFamily, "I", s.BodySize)
	r.c.SetTextColor(s.TextMuted)
	r.c.Text(s.Margin, r.layout.Y(), PlaceholderText)
}
