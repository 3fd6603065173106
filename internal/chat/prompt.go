package chat

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"booklogger/api/internal/export"
)

// Profile identifies whose journal the assistant is reading.
type Profile struct {
	Name         string
	LogbookName  string
	Organization string
}

// Entry is the slice of a journal entry included in the prompt.
type Entry struct {
	Date     string
	Hours    float64
	Energy   string
	Location string
	Blocks   []export.ContentBlock
}

var energyLabels = map[string]string{
	"green":  "High",
	"yellow": "Medium",
	"red":    "Low",
}

const longDate = "Monday, January 2, 2006"

// BuildSystemPrompt renders every entry, newest first, into the assistant's
// system prompt. Entries are not mutated.
func BuildSystemPrompt(p Profile, entries []Entry, now time.Time) string {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date > sorted[j].Date })

	logText := "The user has not logged any entries yet."
	if len(sorted) > 0 {
		parts := make([]string, 0, len(sorted))
		for i, e := range sorted {
			parts = append(parts, formatEntry(i+1, e))
		}
		logText = strings.Join(parts, "\n\n")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a personal work journal assistant for %s.\n", p.Name)
	fmt.Fprintf(&b, "Their logbook is called %q and they work at %q.\n\n", p.LogbookName, p.Organization)
	b.WriteString("Your role is to help them reflect on their work, identify patterns, and surface insights from their log entries. ")
	b.WriteString("Be warm, specific, and concise. Always reference actual entries when relevant, using dates and specifics rather than vague generalities. ")
	b.WriteString("If you notice trends in energy, recurring blockers, or growth in a skill, call those out proactively.\n\n")
	fmt.Fprintf(&b, "Today's date: %s\n", now.Format(longDate))
	fmt.Fprintf(&b, "Total entries: %d\n\n", len(sorted))
	b.WriteString("=== LOG ENTRIES (newest first) ===\n\n")
	b.WriteString(logText)
	b.WriteString("\n\n=== END OF LOG ENTRIES ===\n\n")
	b.WriteString("Answer based only on the entries above. If the user asks about something not covered in their logs, say so honestly. ")
	b.WriteString("Keep responses focused and conversational, with no long bullet-point lists unless they genuinely help.")
	return b.String()
}

func formatEntry(n int, e Entry) string {
	energy := energyLabels[e.Energy]
	if energy == "" {
		energy = e.Energy
	}

	lines := []string{
		fmt.Sprintf("--- Entry %d: %s ---", n, formatDate(e.Date)),
		fmt.Sprintf("Hours: %sh | Energy: %s | Location: %s", strconv.FormatFloat(e.Hours, 'f', -1, 64), energy, e.Location),
	}
	for _, block := range e.Blocks {
		text, ok := export.DisplayText(block.Value)
		if !ok {
			continue
		}
		lines = append(lines, block.Label+":\n"+text)
	}
	return strings.Join(lines, "\n")
}

func formatDate(date string) string {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return parsed.Format(longDate)
}
