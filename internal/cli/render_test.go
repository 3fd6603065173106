package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"booklogger/api/internal/export"
)

const sampleRecordJSON = `{
  "date": "2024-03-01",
  "startTime": "09:00",
  "endTime": "17:30",
  "energy": "green",
  "location": "Remote",
  "organization": "Acme",
  "displayName": "Alex",
  "title": "Work Log",
  "fields": [
    {"label": "Summary", "key": "summary", "type": "textarea"},
    {"label": "Tickets", "key": "tickets", "type": "number"},
    {"label": "On call", "key": "on_call", "type": "checkbox"}
  ],
  "customData": {"summary": "Shipped v1", "tickets": 3, "on_call": false}
}`

func writeRecord(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entry.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write record: %v", err)
	}
	return path
}

func TestReadRecordResolvesDynamicFields(t *testing.T) {
	rec, err := readRecord(strings.NewReader(sampleRecordJSON))
	if err != nil {
		t.Fatalf("readRecord: %v", err)
	}
	labels := make([]string, 0, len(rec.Blocks))
	for _, block := range rec.Blocks {
		labels = append(labels, block.Label)
	}
	if diff := cmp.Diff([]string{"Summary", "Tickets"}, labels); diff != "" {
		t.Fatalf("block labels mismatch (-want +got):\n%s", diff)
	}
	if text, _ := export.DisplayText(rec.Blocks[1].Value); text != "3" {
		t.Fatalf("tickets = %q, want 3", text)
	}
	if rec.Duration.String() != "09:00 – 17:30 (8h 30m)" {
		t.Fatalf("duration = %q", rec.Duration.String())
	}
}

func TestReadRecordFallsBackToLegacyColumns(t *testing.T) {
	rec, err := readRecord(strings.NewReader(`{"date":"2024-03-01","workedOn":"Reviews","tomorrow":"Deploy"}`))
	if err != nil {
		t.Fatalf("readRecord: %v", err)
	}
	if len(rec.Blocks) != 2 || rec.Blocks[0].Label != "What I Worked On" || rec.Blocks[1].Label != "Tomorrow's Plan" {
		t.Fatalf("unexpected blocks: %+v", rec.Blocks)
	}
}

func TestRenderCommandWritesPDF(t *testing.T) {
	input := writeRecord(t, sampleRecordJSON)
	outDir := t.TempDir()

	cmd := NewRootCommand(context.Background())
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"render", input, "--out", outDir})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := filepath.Join(outDir, "work-log-2024-03-01.pdf")
	if got := strings.TrimSpace(buf.String()); got != want {
		t.Fatalf("printed path = %q, want %q", got, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF")
	}
}

func TestRenderCommandBase64FromStdin(t *testing.T) {
	cmd := NewRootCommand(context.Background())
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader(sampleRecordJSON))
	cmd.SetArgs([]string{"render", "-", "--base64"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(buf.String()))
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("decoded output is not a PDF")
	}
}

func TestRenderCommandRejectsInvalidRecord(t *testing.T) {
	input := writeRecord(t, `{"date":"01/03/2024","displayName":"Alex","title":"Work Log"}`)

	cmd := NewRootCommand(context.Background())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"render", input, "--out", t.TempDir()})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for invalid date")
	}
	if !strings.Contains(err.Error(), "YYYY-MM-DD") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDurationCommand(t *testing.T) {
	cmd := NewRootCommand(context.Background())
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"duration", "22:00", "06:30"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "22:00 – 06:30 (8h 30m)" {
		t.Fatalf("duration output = %q", got)
	}

	cmd = NewRootCommand(context.Background())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"duration", "nine", "17:00"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for unparseable clock time")
	}
}
