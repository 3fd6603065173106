package export

// RGB is an 8-bit per channel color.
type RGB struct {
	R, G, B int
}

// EnergyStyle binds an energy level to its indicator label and color.
type EnergyStyle struct {
	Label string
	Color RGB
}

// StyleSheet holds every dimension, color and font size the renderer uses.
// Units are millimetres.
type StyleSheet struct {
	PageWidth  float64
	PageHeight float64
	Margin     float64

	Background    RGB
	Section       RGB
	Accent        RGB
	TextPrimary   RGB
	TextSecondary RGB
	TextMuted     RGB
	Border        RGB

	FontFamily string

	HeaderHeight     float64
	AccentStripH     float64
	TitleSize        float64
	TitleBaseline    float64
	SubtitleSize     float64
	SubtitleBaseline float64
	DividerY         float64
	MetaSize         float64
	MetaBaseline     float64
	MetaSeparator    float64
	EnergyDotRadius  float64
	LineWidth        float64

	// ContentGap separates the header band from the first card.
	ContentGap float64
	// HeaderReserve is the top offset below the margin on continuation pages.
	HeaderReserve float64
	// FooterReserve is kept free above the bottom margin for the footer band.
	FooterReserve float64
	FooterOffset  float64
	FooterGap     float64
	FooterSize    float64
	FooterLabel   float64

	CardPadding      float64
	CardLabelHeight  float64
	CardLabelGap     float64
	CardLineHeight   float64
	CardBarWidth     float64
	CardInnerPadding float64
	CardRadius       float64
	CardBarRadius    float64
	CardGap          float64
	CardLabelSize    float64
	BodySize         float64

	Energy map[Energy]EnergyStyle
}

// DefaultStyle returns the dark A4 theme used by the web app.
func DefaultStyle() StyleSheet {
	return StyleSheet{
		PageWidth:  210,
		PageHeight: 297,
		Margin:     20,

		Background:    RGB{15, 15, 19},
		Section:       RGB{28, 28, 37},
		Accent:        RGB{240, 192, 96},
		TextPrimary:   RGB{240, 237, 232},
		TextSecondary: RGB{138, 133, 153},
		TextMuted:     RGB{78, 76, 90},
		Border:        RGB{30, 30, 40},

		FontFamily: "Helvetica",

		HeaderHeight:     42,
		AccentStripH:     2.5,
		TitleSize:        18,
		TitleBaseline:    16,
		SubtitleSize:     10,
		SubtitleBaseline: 24,
		DividerY:         29,
		MetaSize:         9,
		MetaBaseline:     36,
		MetaSeparator:    8,
		EnergyDotRadius:  1.5,
		LineWidth:        0.3,

		ContentGap:    10,
		HeaderReserve: 10,
		FooterReserve: 10,
		FooterOffset:  14,
		FooterGap:     4,
		FooterSize:    9,
		FooterLabel:   8,

		CardPadding:      10,
		CardLabelHeight:  5,
		CardLabelGap:     4,
		CardLineHeight:   5.5,
		CardBarWidth:     3,
		CardInnerPadding: 8,
		CardRadius:       3,
		CardBarRadius:    1.5,
		CardGap:          5,
		CardLabelSize:    7.5,
		BodySize:         10,

		Energy: map[Energy]EnergyStyle{
			EnergyGreen:  {Label: "High energy", Color: RGB{74, 222, 128}},
			EnergyYellow: {Label: "Medium energy", Color: RGB{250, 204, 21}},
			EnergyRed:    {Label: "Low energy", Color: RGB{248, 113, 113}},
		},
	}
}

// ContentWidth is the page width between the side margins.
func (s StyleSheet) ContentWidth() float64 {
	return s.PageWidth - 2*s.Margin
}

// CardInnerWidth is the width available to wrapped body text inside a card.
func (s StyleSheet) CardInnerWidth() float64 {
	return s.ContentWidth() - s.CardBarWidth - s.CardInnerPadding
}

// CardHeight is the height of a card holding the given number of body lines.
func (s StyleSheet) CardHeight(lines int) float64 {
	return s.CardPadding + s.CardLabelHeight + s.CardLabelGap + float64(lines)*s.CardLineHeight + s.CardPadding
}

// FirstContentTop is where the first card starts on page one.
func (s StyleSheet) FirstContentTop() float64 {
	return s.HeaderHeight + s.ContentGap
}

// ContinuationTop is where content starts on every page after the first.
func (s StyleSheet) ContinuationTop() float64 {
	return s.Margin + s.HeaderReserve
}

// ContentBottom is the lowest y a card may reach.
func (s StyleSheet) ContentBottom() float64 {
	return s.PageHeight - s.Margin - s.FooterReserve
}
