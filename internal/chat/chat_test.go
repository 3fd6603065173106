package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"booklogger/api/internal/export"
)

func TestBuildSystemPromptOrdersNewestFirst(t *testing.T) {
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Date: "2024-02-28", Hours: 6, Energy: "red", Location: "Office",
			Blocks: []export.ContentBlock{{Label: "What I Worked On", Value: "Quarterly report"}}},
		{Date: "2024-03-01", Hours: 8.5, Energy: "green", Location: "Remote",
			Blocks: []export.ContentBlock{
				{Label: "Summary", Value: "Shipped v1"},
				{Label: "Pairing", Value: true},
				{Label: "Blank", Value: "  "},
			}},
	}

	prompt := BuildSystemPrompt(Profile{Name: "Alex", LogbookName: "Work Log", Organization: "Acme"}, entries, now)

	for _, want := range []string{
		"journal assistant for Alex.",
		`Their logbook is called "Work Log" and they work at "Acme".`,
		"Today's date: Monday, March 4, 2024",
		"Total entries: 2",
		"--- Entry 1: Friday, March 1, 2024 ---\nHours: 8.5h | Energy: High | Location: Remote\nSummary:\nShipped v1\nPairing:\nYes",
		"--- Entry 2: Wednesday, February 28, 2024 ---\nHours: 6h | Energy: Low | Location: Office",
		"What I Worked On:\nQuarterly report",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "Blank:") {
		t.Fatalf("blank blocks must be skipped")
	}
	if entries[0].Date != "2024-02-28" {
		t.Fatalf("input entries were reordered")
	}
}

func TestBuildSystemPromptWithoutEntries(t *testing.T) {
	prompt := BuildSystemPrompt(Profile{Name: "Alex"}, nil, time.Now())
	if !strings.Contains(prompt, "has not logged any entries yet") {
		t.Fatalf("unexpected prompt: %s", prompt)
	}
}

func TestValidateMessages(t *testing.T) {
	cases := []struct {
		name     string
		messages []Message
		ok       bool
	}{
		{name: "empty", messages: nil, ok: false},
		{name: "single user", messages: []Message{{Role: "user", Content: "hi"}}, ok: true},
		{name: "ends with assistant", messages: []Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}, ok: false},
		{name: "system role", messages: []Message{{Role: "system", Content: "x"}}, ok: false},
		{name: "blank content", messages: []Message{{Role: "user", Content: " "}}, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateMessages(tc.messages)
			if (err == nil) != tc.ok {
				t.Fatalf("ValidateMessages() error = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestClientReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" || r.Header.Get("x-api-key") != "sk-test" || r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("unexpected request: %s %v", r.URL.Path, r.Header)
		}
		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			System    []struct {
				Text string `json:"text"`
			} `json:"system"`
			Messages []struct {
				Role    string `json:"role"`
				Content []struct {
					Type string `json:"type"`
					Text string `json:"text"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" || req.MaxTokens != defaultMaxTokens || len(req.System) != 1 || req.System[0].Text != "be brief" {
			t.Errorf("unexpected payload: %+v", req)
		}
		if len(req.Messages) != 3 || req.Messages[1].Role != "assistant" || req.Messages[2].Content[0].Text != "And this week?" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"test-model","content":[{"type":"text","text":"You shipped v1 on Friday."}],"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":7}}`))
	}))
	defer srv.Close()

	client := NewClient("sk-test", "test-model").WithBaseURL(srv.URL)
	reply, err := client.Reply(context.Background(), "be brief", []Message{
		{Role: "user", Content: "What did I ship?"},
		{Role: "assistant", Content: "Last week, the billing flow."},
		{Role: "user", Content: "And this week?"},
	})
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if reply != "You shipped v1 on Friday." {
		t.Fatalf("Reply() = %q", reply)
	}
}

func TestClientReplyErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("x-api-key") {
		case "sk-empty":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"msg_2","type":"message","role":"assistant","content":[]}`))
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"rate limited"}}`))
		}
	}))
	defer srv.Close()

	msgs := []Message{{Role: "user", Content: "hi"}}

	_, err := NewClient("sk-limited", "m").WithBaseURL(srv.URL).Reply(context.Background(), "", msgs)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusTooManyRequests || apiErr.Message != "rate limited" {
		t.Fatalf("Reply() error = %v, want APIError 429", err)
	}

	if _, err := NewClient("sk-empty", "m").WithBaseURL(srv.URL).Reply(context.Background(), "", msgs); !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("Reply() error = %v, want ErrEmptyReply", err)
	}

	if _, err := NewClient("", "m").Reply(context.Background(), "", msgs); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Reply() error = %v, want ErrNotConfigured", err)
	}
}
