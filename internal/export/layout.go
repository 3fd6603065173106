package export

// PageLayout tracks the vertical cursor while cards are stacked onto pages.
type PageLayout struct {
	y       float64
	page    int
	top     float64
	bottom  float64
	onFresh bool
}

// NewPageLayout starts page one at firstTop. Later pages start at top and
// content may not extend past bottom.
func NewPageLayout(firstTop, top, bottom float64) *PageLayout {
	return &PageLayout{y: firstTop, page: 1, top: top, bottom: bottom}
}

// Y is the current cursor position.
func (l *PageLayout) Y() float64 { return l.y }

// Page is the 1-based index of the current page.
func (l *PageLayout) Page() int { return l.page }

// WouldOverflow reports whether a block of height h starting at the cursor
// would cross the bottom boundary. Touching the boundary is allowed.
func (l *PageLayout) WouldOverflow(h float64) bool {
	return l.y+h > l.bottom
}

// Advance moves the cursor down by h.
func (l *PageLayout) Advance(h float64) {
	l.y += h
	l.onFresh = false
}

// NewPage resets the cursor to the continuation top of the next page.
func (l *PageLayout) NewPage() {
	l.page++
	l.y = l.top
	l.onFresh = true
}

// Remaining is the vertical space left on the current page.
func (l *PageLayout) Remaining() float64 {
	return l.bottom - l.y
}

// Capacity is the usable height of a freshly started continuation page.
func (l *PageLayout) Capacity() float64 {
	return l.bottom - l.top
}

// Fresh reports whether nothing has been placed since the last page break.
func (l *PageLayout) Fresh() bool {
	return l.onFresh
}
