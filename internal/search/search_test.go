package search

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	meili "github.com/meilisearch/meilisearch-go"
)

func TestServiceSearchWithoutBackends(t *testing.T) {
	svc := NewService(nil, nil)
	resp := svc.Search(Query{UserID: "usr_1", Text: "deploy"})
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Fatalf("Results = %#v, want empty non-nil slice", resp.Results)
	}
	if resp.Query != "deploy" || resp.Total != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	// Index calls are no-ops without Meilisearch.
	svc.IndexEntry(EntryRecord{ID: "ent_1"})
	svc.DeleteEntry("ent_1")
	svc.DeleteUser("usr_1")
}

func TestEntryFilterScopesToUser(t *testing.T) {
	got := entryFilter(Query{UserID: "usr_1"})
	if diff := cmp.Diff([]string{`userId = "usr_1"`}, got); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}

	got = entryFilter(Query{UserID: "usr_1", LogbookID: "lbk_2"})
	want := []string{`userId = "usr_1"`, `logbookId = "lbk_2"`}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestHitToResultPrefersFormattedBody(t *testing.T) {
	raw := func(v any) json.RawMessage {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return b
	}
	hit := meili.Hit{
		"id":        raw("ent_1"),
		"logbookId": raw("lbk_1"),
		"date":      raw("2024-03-01"),
		"energy":    raw("green"),
		"body":      raw("Deployed the new billing flow"),
		"_formatted": raw(map[string]string{
			"body": " <mark>Deployed</mark> the new billing flow ",
		}),
	}

	want := Result{
		ID:        "ent_1",
		LogbookID: "lbk_1",
		Date:      "2024-03-01",
		Energy:    "green",
		Snippet:   "<mark>Deployed</mark> the new billing flow",
	}
	if diff := cmp.Diff(want, hitToResult(hit)); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	delete(hit, "_formatted")
	if got := hitToResult(hit).Snippet; got != "Deployed the new billing flow" {
		t.Fatalf("Snippet = %q, want raw body", got)
	}
}

func TestServiceBackend(t *testing.T) {
	if got := NewService(nil, nil).Backend(); got != "none" {
		t.Fatalf("Backend() = %q, want none", got)
	}
	if got := NewService(nil, NewPgFTS(nil)).Backend(); got != "postgres" {
		t.Fatalf("Backend() = %q, want postgres", got)
	}
}
