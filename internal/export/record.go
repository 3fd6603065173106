package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Energy is the self-reported energy level of a journal day.
type Energy string

const (
	EnergyGreen  Energy = "green"
	EnergyYellow Energy = "yellow"
	EnergyRed    Energy = "red"
)

// Valid reports whether e is one of the three known levels.
func (e Energy) Valid() bool {
	switch e {
	case EnergyGreen, EnergyYellow, EnergyRed:
		return true
	default:
		return false
	}
}

const isoDate = "2006-01-02"

// Record is everything the layout engine draws for one entry.
type Record struct {
	Date          string
	Duration      Duration
	Energy        Energy
	Location      string
	Organization  string
	DisplayName   string
	DocumentTitle string
	Blocks        []ContentBlock
}

// ContentBlock is one labelled value rendered as a card.
// Value may be a string, bool, number or nil.
type ContentBlock struct {
	Label string
	Value any
}

// Validate rejects records whose header or footer would render blank.
func (r Record) Validate() error {
	if strings.TrimSpace(r.DisplayName) == "" {
		return fmt.Errorf("%w: display name is required", ErrInvalidRecord)
	}
	if strings.TrimSpace(r.DocumentTitle) == "" {
		return fmt.Errorf("%w: document title is required", ErrInvalidRecord)
	}
	if _, err := time.Parse(isoDate, r.Date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidRecord, r.Date)
	}
	if !r.Energy.Valid() {
		return fmt.Errorf("%w: unknown energy %q", ErrInvalidRecord, r.Energy)
	}
	return nil
}

// LongDate formats the record date as "Friday, March 1, 2024".
func (r Record) LongDate() string {
	parsed, err := time.Parse(isoDate, r.Date)
	if err != nil {
		return r.Date
	}
	return parsed.Format("Monday, January 2, 2006")
}

// DisplayText normalizes a block value for rendering. The second result is
// false when the value should not produce a card.
func DisplayText(value any) (string, bool) {
	var text string
	switch v := value.(type) {
	case nil:
		return "", false
	case bool:
		if !v {
			return "", false
		}
		return "Yes", true
	case string:
		text = v
	case json.Number:
		text = v.String()
	case float64:
		text = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		text = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		text = strconv.Itoa(v)
	case int64:
		text = strconv.FormatInt(v, 10)
	case fmt.Stringer:
		text = v.String()
	default:
		text = fmt.Sprint(v)
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

// FieldType is the input type of a user-defined logbook field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldTime     FieldType = "time"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
)

// FieldDef describes one dynamic field of a logbook.
type FieldDef struct {
	Label string
	Key   string
	Type  FieldType
}

// BlockSource produces the ordered content blocks of an entry.
type BlockSource interface {
	Blocks() []ContentBlock
}

// DynamicFields joins a logbook's field registry with an entry's values.
type DynamicFields struct {
	Fields []FieldDef
	Values map[string]any
}

func (d DynamicFields) Blocks() []ContentBlock {
	blocks := make([]ContentBlock, 0, len(d.Fields))
	for _, field := range d.Fields {
		value := d.Values[field.Key]
		if _, ok := DisplayText(value); !ok {
			continue
		}
		blocks = append(blocks, ContentBlock{Label: field.Label, Value: value})
	}
	return blocks
}

// LegacyFields is the fixed five-field schema used before custom fields.
type LegacyFields struct {
	WorkedOn string
	Learned  string
	Blockers string
	Ideas    string
	Tomorrow string
}

func (l LegacyFields) Blocks() []ContentBlock {
	all := []ContentBlock{
		{Label: "What I Worked On", Value: l.WorkedOn},
		{Label: "What I Learned", Value: l.Learned},
		{Label: "Blockers & Challenges", Value: l.Blockers},
		{Label: "Ideas & Notes", Value: l.Ideas},
		{Label: "Tomorrow's Plan", Value: l.Tomorrow},
	}
	blocks := make([]ContentBlock, 0, len(all))
	for _, block := range all {
		if _, ok := DisplayText(block.Value); ok {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// ResolveBlocks picks the dynamic schema when the logbook defines fields and
// the entry carries custom values, and the legacy schema otherwise.
func ResolveBlocks(fields []FieldDef, values map[string]any, legacy LegacyFields) BlockSource {
	if len(fields) > 0 && len(values) > 0 {
		return DynamicFields{Fields: fields, Values: values}
	}
	return legacy
}
