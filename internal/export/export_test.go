package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

type drawOp struct {
	Kind string
	X, Y float64
	W, H float64
	Text string
}

// recordingCanvas captures drawing calls. Every rune is size/5 mm wide, so
// body text at 10pt measures 2mm per character.
type recordingCanvas struct {
	ops   []drawOp
	pages int
	style string
	size  float64
}

func (c *recordingCanvas) AddPage() {
	c.pages++
	c.ops = append(c.ops, drawOp{Kind: "page"})
}

func (c *recordingCanvas) SetFont(_, style string, size float64) {
	c.style = style
	c.size = size
}

func (c *recordingCanvas) SetFillColor(RGB)     {}
func (c *recordingCanvas) SetTextColor(RGB)     {}
func (c *recordingCanvas) SetDrawColor(RGB)     {}
func (c *recordingCanvas) SetLineWidth(float64) {}

func (c *recordingCanvas) StringWidth(s string) float64 {
	return float64(utf8.RuneCountInString(s)) * c.size / 5
}

func (c *recordingCanvas) Text(x, y float64, s string) {
	c.ops = append(c.ops, drawOp{Kind: "text", X: x, Y: y, Text: s})
}

func (c *recordingCanvas) Rect(x, y, w, h float64) {
	c.ops = append(c.ops, drawOp{Kind: "rect", X: x, Y: y, W: w, H: h})
}

func (c *recordingCanvas) RoundedRect(x, y, w, h, _ float64) {
	c.ops = append(c.ops, drawOp{Kind: "rrect", X: x, Y: y, W: w, H: h})
}

func (c *recordingCanvas) Circle(x, y, r float64) {
	c.ops = append(c.ops, drawOp{Kind: "circle", X: x, Y: y, W: r})
}

func (c *recordingCanvas) Line(x1, y1, x2, _ float64) {
	c.ops = append(c.ops, drawOp{Kind: "line", X: x1, Y: y1, W: x2 - x1})
}

// cards returns the card backgrounds, skipping the narrower accent bars.
func (c *recordingCanvas) cards(style StyleSheet) []drawOp {
	var out []drawOp
	for _, op := range c.ops {
		if op.Kind == "rrect" && op.W == style.ContentWidth() {
			out = append(out, op)
		}
	}
	return out
}

func (c *recordingCanvas) textOp(s string) (drawOp, bool) {
	for _, op := range c.ops {
		if op.Kind == "text" && op.Text == s {
			return op, true
		}
	}
	return drawOp{}, false
}

func (c *recordingCanvas) countText(s string) int {
	n := 0
	for _, op := range c.ops {
		if op.Kind == "text" && op.Text == s {
			n++
		}
	}
	return n
}

func sampleRecord() Record {
	return Record{
		Date:          "2024-03-01",
		Duration:      Duration{Start: "09:00", End: "17:30"},
		Energy:        EnergyGreen,
		Location:      "Remote",
		Organization:  "Acme",
		DisplayName:   "Alex",
		DocumentTitle: "Work Log",
		Blocks:        []ContentBlock{{Label: "Summary", Value: "Shipped v1"}},
	}
}

func numberedLines(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}
	return strings.Join(lines, "\n")
}

func render(t *testing.T, rec Record) (*recordingCanvas, int) {
	t.Helper()
	c := &recordingCanvas{}
	pages, err := Render(c, DefaultStyle(), rec)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return c, pages
}

func TestRenderEndToEnd(t *testing.T) {
	style := DefaultStyle()
	c, pages := render(t, sampleRecord())
	if pages != 1 {
		t.Fatalf("Render() pages = %d, want 1", pages)
	}

	for _, want := range []string{
		"Work Log",
		"Friday, March 1, 2024",
		"Acme",
		"·",
		"09:00 – 17:30 (8h 30m)",
		"High energy",
		"Remote",
		"SUMMARY",
		"Shipped v1",
		"— Alex",
		"Work Log · 2024-03-01",
	} {
		if _, ok := c.textOp(want); !ok {
			t.Errorf("Render() did not draw %q", want)
		}
	}

	// Each metadata element starts where the measured previous one ends.
	orgW := 4 * style.MetaSize / 5
	dur, _ := c.textOp("09:00 – 17:30 (8h 30m)")
	if want := style.Margin + orgW + style.MetaSeparator + 4; math.Abs(dur.X-want) > 1e-9 {
		t.Errorf("duration x = %v, want %v", dur.X, want)
	}
	loc, _ := c.textOp("Remote")
	if want := style.PageWidth - style.Margin - 6*style.MetaSize/5; math.Abs(loc.X-want) > 1e-9 {
		t.Errorf("location x = %v, want %v", loc.X, want)
	}

	cards := c.cards(style)
	if len(cards) != 1 {
		t.Fatalf("cards = %d, want 1", len(cards))
	}
	want := drawOp{Kind: "rrect", X: style.Margin, Y: style.FirstContentTop(), W: style.ContentWidth(), H: style.CardHeight(1)}
	if diff := cmp.Diff(want, cards[0]); diff != "" {
		t.Errorf("card mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderEmptyOrganizationDropsSeparator(t *testing.T) {
	rec := sampleRecord()
	rec.Organization = "  "
	c, _ := render(t, rec)

	if n := c.countText("·"); n != 0 {
		t.Fatalf("separator drawn %d times, want 0", n)
	}
	dur, _ := c.textOp("09:00 – 17:30 (8h 30m)")
	if dur.X != DefaultStyle().Margin {
		t.Fatalf("duration x = %v, want margin", dur.X)
	}
}

func TestRenderSkipsEmptyBlocks(t *testing.T) {
	rec := sampleRecord()
	rec.Blocks = []ContentBlock{
		{Label: "Blank", Value: "   "},
		{Label: "Kept", Value: "hello"},
		{Label: "Nil", Value: nil},
		{Label: "Unchecked", Value: false},
		{Label: "Empty", Value: ""},
		{Label: "Checked", Value: true},
	}
	style := DefaultStyle()
	c, _ := render(t, rec)

	cards := c.cards(style)
	if len(cards) != 2 {
		t.Fatalf("cards = %d, want 2", len(cards))
	}
	wantSecond := style.FirstContentTop() + style.CardHeight(1) + style.CardGap
	if cards[1].Y != wantSecond {
		t.Fatalf("second card y = %v, want %v", cards[1].Y, wantSecond)
	}
	if _, ok := c.textOp("Yes"); !ok {
		t.Fatalf("checked block should render as Yes")
	}
	for _, label := range []string{"BLANK", "NIL", "UNCHECKED", "EMPTY"} {
		if _, ok := c.textOp(label); ok {
			t.Errorf("empty block %s produced a card", label)
		}
	}
}

func TestRenderPlaceholderWhenAllBlocksEmpty(t *testing.T) {
	rec := sampleRecord()
	rec.Blocks = []ContentBlock{{Label: "A", Value: ""}, {Label: "B", Value: nil}}
	style := DefaultStyle()
	c, pages := render(t, rec)

	if pages != 1 {
		t.Fatalf("pages = %d, want 1", pages)
	}
	if n := len(c.cards(style)); n != 0 {
		t.Fatalf("cards = %d, want 0", n)
	}
	op, ok := c.textOp(PlaceholderText)
	if !ok {
		t.Fatalf("placeholder not drawn")
	}
	if op.Y != style.FirstContentTop() {
		t.Fatalf("placeholder y = %v, want %v", op.Y, style.FirstContentTop())
	}
}

func TestCardHeightGrowsByOneLine(t *testing.T) {
	style := DefaultStyle()
	for n := 0; n < 10; n++ {
		if got := style.CardHeight(n+1) - style.CardHeight(n); math.Abs(got-style.CardLineHeight) > 1e-9 {
			t.Fatalf("CardHeight(%d)-CardHeight(%d) = %v, want %v", n+1, n, got, style.CardLineHeight)
		}
	}
	if got := style.CardHeight(1); got != 34.5 {
		t.Fatalf("CardHeight(1) = %v, want 34.5", got)
	}
}

func TestPageLayoutBoundary(t *testing.T) {
	style := DefaultStyle()
	l := NewPageLayout(style.FirstContentTop(), style.ContinuationTop(), style.ContentBottom())
	space := style.ContentBottom() - style.FirstContentTop()

	if l.WouldOverflow(space) {
		t.Fatalf("WouldOverflow(%v) = true, touching the boundary should fit", space)
	}
	if l.WouldOverflow(space - 0.01) {
		t.Fatalf("WouldOverflow(H-e) = true")
	}
	if !l.WouldOverflow(space + 0.01) {
		t.Fatalf("WouldOverflow(H+e) = false")
	}

	l.Advance(100)
	l.NewPage()
	if l.Y() != style.ContinuationTop() || l.Page() != 2 || !l.Fresh() {
		t.Fatalf("after NewPage y=%v page=%d fresh=%v", l.Y(), l.Page(), l.Fresh())
	}
	if l.Capacity() != style.ContentBottom()-style.ContinuationTop() {
		t.Fatalf("Capacity() = %v", l.Capacity())
	}
}

func TestRenderBreaksToNewPage(t *testing.T) {
	rec := sampleRecord()
	rec.Blocks = []ContentBlock{
		{Label: "Long", Value: numberedLines(30)},
		{Label: "Next", Value: numberedLines(2)},
	}
	style := DefaultStyle()
	c, pages := render(t, rec)

	if pages != 2 {
		t.Fatalf("pages = %d, want 2", pages)
	}
	cards := c.cards(style)
	if len(cards) != 2 {
		t.Fatalf("cards = %d, want 2", len(cards))
	}
	if cards[1].Y != style.ContinuationTop() {
		t.Fatalf("moved card y = %v, want %v", cards[1].Y, style.ContinuationTop())
	}
	if n := c.countText("Work Log · 2024-03-01"); n != pages {
		t.Fatalf("footer drawn %d times, want %d", n, pages)
	}
	backgrounds := 0
	for _, op := range c.ops {
		if op.Kind == "rect" && op.H == style.PageHeight {
			backgrounds++
		}
	}
	if backgrounds != pages {
		t.Fatalf("page backgrounds = %d, want %d", backgrounds, pages)
	}
}

func TestRenderSplitsOversizedCard(t *testing.T) {
	rec := sampleRecord()
	rec.Blocks = []ContentBlock{{Label: "Notes", Value: numberedLines(60)}}
	style := DefaultStyle()
	c, pages := render(t, rec)

	if pages != 2 {
		t.Fatalf("pages = %d, want 2", pages)
	}
	cards := c.cards(style)
	if len(cards) != 2 {
		t.Fatalf("cards = %d, want 2", len(cards))
	}
	for i, card := range cards {
		if card.Y+card.H > style.ContentBottom() {
			t.Errorf("card %d ends at %v, past %v", i, card.Y+card.H, style.ContentBottom())
		}
	}
	if _, ok := c.textOp("NOTES (CONT.)"); !ok {
		t.Fatalf("continuation label not drawn")
	}
	if cards[0].H != style.CardHeight(33) || cards[1].H != style.CardHeight(27) {
		t.Fatalf("split heights = %v, %v", cards[0].H, cards[1].H)
	}
	if _, ok := c.textOp("line 60"); !ok {
		t.Fatalf("last line missing")
	}
}

func TestWrapText(t *testing.T) {
	m := MeasureFunc(func(s string) float64 { return float64(utf8.RuneCountInString(s)) })
	tests := []struct {
		name  string
		text  string
		width float64
		want  []string
	}{
		{name: "blank", text: "  \n ", width: 10, want: nil},
		{name: "fits", text: "one two", width: 10, want: []string{"one two"}},
		{name: "greedy", text: "one two three four", width: 9, want: []string{"one two", "three", "four"}},
		{name: "newlines kept", text: "a\n\nb", width: 10, want: []string{"a", "", "b"}},
		{name: "long word", text: "ab abcdefghij c", width: 4, want: []string{"ab", "abcd", "efgh", "ij c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, WrapText(m, tt.text, tt.width)); diff != "" {
				t.Fatalf("WrapText() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Work Log", "work-log-2024-03-01.pdf"},
		{"  My  Daily: Log!! ", "my-daily-log-2024-03-01.pdf"},
		{"Été 2024", "t-2024-2024-03-01.pdf"},
		{"!!!", "logbook-2024-03-01.pdf"},
	}
	for _, tt := range tests {
		if got := Filename(tt.title, "2024-03-01"); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"display name", func(r *Record) { r.DisplayName = " " }},
		{"title", func(r *Record) { r.DocumentTitle = "" }},
		{"date", func(r *Record) { r.Date = "03/01/2024" }},
		{"energy", func(r *Record) { r.Energy = "purple" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := sampleRecord()
			tt.mutate(&rec)
			if err := rec.Validate(); !errors.Is(err, ErrInvalidRecord) {
				t.Fatalf("Validate() error = %v, want ErrInvalidRecord", err)
			}
			if _, err := Build(rec, DefaultStyle()); !errors.Is(err, ErrInvalidRecord) {
				t.Fatalf("Build() error = %v, want ErrInvalidRecord", err)
			}
		})
	}
}

func TestDurations(t *testing.T) {
	if got := ComputeHours("22:00", "06:00"); got != 8 {
		t.Errorf("overnight ComputeHours = %v, want 8", got)
	}
	if got := ComputeHours("09:00", "09:00"); got != 24 {
		t.Errorf("zero span ComputeHours = %v, want 24", got)
	}
	if got := ComputeHours("", "09:00"); got != 0 {
		t.Errorf("missing start ComputeHours = %v, want 0", got)
	}
	if got := FormatDuration(8.5); got != "8h 30m" {
		t.Errorf("FormatDuration(8.5) = %q", got)
	}
	if got := FormatDuration(0); got != "—" {
		t.Errorf("FormatDuration(0) = %q", got)
	}
	if got := (Duration{Hours: 7.5}).String(); got != "7.5h" {
		t.Errorf("hours String() = %q", got)
	}
	if got := (Duration{Hours: math.NaN()}).String(); got != "NaNh" {
		t.Errorf("NaN String() = %q", got)
	}
	if got := (Duration{Start: "09:00", End: "xx"}).String(); got != "09:00 – xx (—)" {
		t.Errorf("malformed range String() = %q", got)
	}
}

func TestResolveBlocks(t *testing.T) {
	fields := []FieldDef{
		{Label: "Task", Key: "task", Type: FieldText},
		{Label: "Billable", Key: "billable", Type: FieldCheckbox},
		{Label: "Tickets", Key: "tickets", Type: FieldNumber},
		{Label: "Missing", Key: "missing", Type: FieldText},
	}
	values := map[string]any{"task": "Review", "billable": false, "tickets": 3.0}
	legacy := LegacyFields{WorkedOn: "API", Tomorrow: "Tests"}

	got := ResolveBlocks(fields, values, legacy).Blocks()
	want := []ContentBlock{{Label: "Task", Value: "Review"}, {Label: "Tickets", Value: 3.0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("dynamic blocks mismatch (-want +got):\n%s", diff)
	}

	got = ResolveBlocks(fields, nil, legacy).Blocks()
	want = []ContentBlock{{Label: "What I Worked On", Value: "API"}, {Label: "Tomorrow's Plan", Value: "Tests"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("legacy blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildOutputs(t *testing.T) {
	rec := sampleRecord()
	rec.Blocks = append(rec.Blocks, ContentBlock{Label: "Notes", Value: numberedLines(70)})

	doc, err := Build(rec, DefaultStyle())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !bytes.HasPrefix(doc.Bytes(), []byte("%PDF-")) {
		t.Fatalf("Build() output is not a PDF")
	}
	if doc.Filename() != "work-log-2024-03-01.pdf" {
		t.Fatalf("Filename() = %q", doc.Filename())
	}
	if doc.Pages() < 2 {
		t.Fatalf("Pages() = %d, want at least 2", doc.Pages())
	}

	path, err := doc.SaveToFile(t.TempDir())
	if err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}
	saved, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if base64.StdEncoding.EncodeToString(saved) != doc.Base64() {
		t.Fatalf("Base64() does not match saved file")
	}

	again, err := Build(rec, DefaultStyle())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !bytes.Equal(doc.Bytes(), again.Bytes()) {
		t.Fatalf("Build() is not deterministic")
	}
}

func TestBuildIgnoresWallClock(t *testing.T) {
	rec := sampleRecord()

	first, err := Build(rec, DefaultStyle())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// Cross a second boundary so any wall-clock timestamp would change.
	start := time.Now().Unix()
	for time.Now().Unix() == start {
		time.Sleep(20 * time.Millisecond)
	}

	second, err := Build(rec, DefaultStyle())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Fatalf("Build() output changed across a clock tick")
	}
	for _, stamp := range []string{"/CreationDate (D:20240301000000)", "/ModDate (D:20240301000000)"} {
		if !bytes.Contains(first.Bytes(), []byte(stamp)) {
			t.Errorf("document is missing %s", stamp)
		}
	}
}

type fakeDataStore struct {
	getEntry   func(ctx context.Context, userID, entryID string) (EntryInfo, error)
	getLogbook func(ctx context.Context, userID, logbookID string) (LogbookInfo, error)
	getProfile func(ctx context.Context, userID string) (ProfileInfo, error)
}

func (f fakeDataStore) GetEntry(ctx context.Context, userID, entryID string) (EntryInfo, error) {
	return f.getEntry(ctx, userID, entryID)
}

func (f fakeDataStore) GetLogbook(ctx context.Context, userID, logbookID string) (LogbookInfo, error) {
	return f.getLogbook(ctx, userID, logbookID)
}

func (f fakeDataStore) GetProfile(ctx context.Context, userID string) (ProfileInfo, error) {
	return f.getProfile(ctx, userID)
}

type mapCache map[string][]byte

func (m mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, ok := m[key]
	return data, ok, nil
}

func (m mapCache) Set(_ context.Context, key string, data []byte) error {
	m[key] = data
	return nil
}

func TestServiceExport(t *testing.T) {
	store := fakeDataStore{
		getEntry: func(_ context.Context, userID, entryID string) (EntryInfo, error) {
			if userID != "usr_1" || entryID != "ent_1" {
				return EntryInfo{}, errors.New("not found")
			}
			return EntryInfo{
				ID: entryID, LogbookID: "lbk_1", Date: "2024-03-01",
				StartTime: "09:00", EndTime: "17:30", Energy: "green",
				CustomData: map[string]any{"summary": "Shipped v1"},
			}, nil
		},
		getLogbook: func(context.Context, string, string) (LogbookInfo, error) {
			return LogbookInfo{
				ID: "lbk_1", Name: "Work Log", DefaultLocation: "Remote",
				Fields: []FieldDef{{Label: "Summary", Key: "summary", Type: FieldTextarea}},
			}, nil
		},
		getProfile: func(context.Context, string) (ProfileInfo, error) {
			return ProfileInfo{DisplayName: "Alex", Organization: "Acme", LogbookName: "Ignored"}, nil
		},
	}
	cache := mapCache{}
	svc := NewService(store, cache)

	rec, err := svc.LoadRecord(context.Background(), "usr_1", "ent_1")
	if err != nil {
		t.Fatalf("LoadRecord() error = %v", err)
	}
	if diff := cmp.Diff(sampleRecord(), rec); diff != "" {
		t.Fatalf("LoadRecord() mismatch (-want +got):\n%s", diff)
	}

	first, err := svc.Export(context.Background(), Request{UserID: "usr_1", EntryID: "ent_1", Format: FormatPDF})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if first.Cached || first.MimeType != "application/pdf" || first.Filename != "work-log-2024-03-01.pdf" {
		t.Fatalf("Export() = cached %v mime %q file %q", first.Cached, first.MimeType, first.Filename)
	}

	second, err := svc.Export(context.Background(), Request{UserID: "usr_1", EntryID: "ent_1", Format: FormatBase64})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !second.Cached {
		t.Fatalf("second Export() should be served from cache")
	}
	if string(second.Data) != base64.StdEncoding.EncodeToString(first.Data) {
		t.Fatalf("base64 export does not match pdf export")
	}

	if _, err := svc.Export(context.Background(), Request{UserID: "usr_2", EntryID: "ent_1"}); err == nil {
		t.Fatalf("Export() for another user should fail")
	}
}
