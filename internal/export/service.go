package export

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
)

// DataStore defines the interface for data access
type DataStore interface {
	GetEntry(ctx context.Context, userID, entryID string) (EntryInfo, error)
	GetLogbook(ctx context.Context, userID, logbookID string) (LogbookInfo, error)
	GetProfile(ctx context.Context, userID string) (ProfileInfo, error)
}

// Cache stores rendered PDFs by content key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
}

// EntryInfo holds the entry columns the renderer reads
type EntryInfo struct {
	ID         string
	LogbookID  string
	Date       string
	Hours      float64
	StartTime  string
	EndTime    string
	Energy     string
	Location   string
	CustomData map[string]any
	Legacy     LegacyFields
}

// LogbookInfo holds logbook metadata and its field registry
type LogbookInfo struct {
	ID              string
	Name            string
	Organization    string
	DefaultLocation string
	Fields          []FieldDef
}

// ProfileInfo holds the author details printed on every page
type ProfileInfo struct {
	DisplayName  string
	LogbookName  string
	Organization string
}

// Request selects the entry to export and the output encoding
type Request struct {
	UserID  string
	EntryID string
	Format  Format
}

// Service provides entry export functionality
type Service struct {
	store DataStore
	cache Cache
	style StyleSheet
}

// NewService creates a new export service. cache may be nil.
func NewService(store DataStore, cache Cache) *Service {
	return &Service{store: store, cache: cache, style: DefaultStyle()}
}

// Export renders an entry in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	rec, err := s.LoadRecord(ctx, req.UserID, req.EntryID)
	if err != nil {
		return nil, err
	}
	data, pages, cached, err := s.render(ctx, rec)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Data:     data,
		Filename: Filename(rec.DocumentTitle, rec.Date),
		MimeType: pdfMimeType,
		Pages:    pages,
		Cached:   cached,
	}
	switch req.Format {
	case FormatPDF, "":
	case FormatBase64:
		result.Data = []byte(base64.StdEncoding.EncodeToString(data))
		result.MimeType = "text/plain; charset=utf-8"
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
	return result, nil
}

// LoadRecord assembles the render input for one entry.
func (s *Service) LoadRecord(ctx context.Context, userID, entryID string) (Record, error) {
	entry, err := s.store.GetEntry(ctx, userID, entryID)
	if err != nil {
		return Record{}, fmt.Errorf("get entry: %w", err)
	}
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return Record{}, fmt.Errorf("get profile: %w", err)
	}
	var logbook LogbookInfo
	if entry.LogbookID != "" {
		logbook, err = s.store.GetLogbook(ctx, userID, entry.LogbookID)
		if err != nil {
			return Record{}, fmt.Errorf("get logbook: %w", err)
		}
	}
	return BuildRecord(entry, logbook, profile), nil
}

// BuildRecord merges entry, logbook and profile into a Record. Logbook values
// take precedence over the profile defaults.
func BuildRecord(entry EntryInfo, logbook LogbookInfo, profile ProfileInfo) Record {
	return Record{
		Date: entry.Date,
		Duration: Duration{
			Hours: entry.Hours,
			Start: entry.StartTime,
			End:   entry.EndTime,
		},
		Energy:        Energy(entry.Energy),
		Location:      firstNonBlank(entry.Location, logbook.DefaultLocation),
		Organization:  firstNonBlank(logbook.Organization, profile.Organization),
		DisplayName:   profile.DisplayName,
		DocumentTitle: firstNonBlank(logbook.Name, profile.LogbookName),
		Blocks:        ResolveBlocks(logbook.Fields, entry.CustomData, entry.Legacy).Blocks(),
	}
}

// Render builds the document for rec, consulting the cache first.
func (s *Service) Render(ctx context.Context, rec Record) (*Document, error) {
	data, pages, _, err := s.render(ctx, rec)
	if err != nil {
		return nil, err
	}
	return &Document{data: data, filename: Filename(rec.DocumentTitle, rec.Date), pages: pages}, nil
}

func (s *Service) render(ctx context.Context, rec Record) ([]byte, int, bool, error) {
	if err := rec.Validate(); err != nil {
		return nil, 0, false, err
	}
	key := CacheKey(rec)
	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Printf("export: cache get failed: %v", err)
		} else if ok {
			return data, 0, true, nil
		}
	}

	doc, err := Build(rec, s.style)
	if err != nil {
		return nil, 0, false, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, doc.Bytes()); err != nil {
			log.Printf("export: cache set failed: %v", err)
		}
	}
	return doc.Bytes(), doc.Pages(), false, nil
}

// CacheKey hashes every input that affects the rendered bytes.
func CacheKey(rec Record) string {
	h := sha256.New()
	fmt.Fprintf(h, "%q|%v|%q|%q|%q|%q|%q|%q|%q",
		rec.Date, rec.Duration.Hours, rec.Duration.Start, rec.Duration.End,
		rec.Energy, rec.Location, rec.Organization, rec.DisplayName, rec.DocumentTitle)
	for _, block := range rec.Blocks {
		fmt.Fprintf(h, "|%q=%#v", block.Label, block.Value)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
