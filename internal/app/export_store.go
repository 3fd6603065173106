package app

import (
	"context"

	"booklogger/api/internal/export"
	"booklogger/api/internal/store"
)

// exportStore adapts the relational store to the renderer's read model.
type exportStore struct {
	store DataStore
}

func (e exportStore) GetEntry(ctx context.Context, userID, entryID string) (export.EntryInfo, error) {
	entry, err := e.store.GetEntry(ctx, userID, entryID)
	if err != nil {
		return export.EntryInfo{}, err
	}
	return export.EntryInfo{
		ID:         entry.ID,
		LogbookID:  entry.LogbookID,
		Date:       entry.Date,
		Hours:      entry.Hours,
		StartTime:  entry.StartTime,
		EndTime:    entry.EndTime,
		Energy:     entry.Energy,
		Location:   entry.Location,
		CustomData: entry.CustomData,
		Legacy:     legacyFields(entry),
	}, nil
}

func (e exportStore) GetLogbook(ctx context.Context, userID, logbookID string) (export.LogbookInfo, error) {
	lb, err := e.store.GetLogbook(ctx, userID, logbookID)
	if err != nil {
		return export.LogbookInfo{}, err
	}
	return export.LogbookInfo{
		ID:              lb.ID,
		Name:            lb.Name,
		Organization:    lb.Organization,
		DefaultLocation: lb.DefaultLocation,
		Fields:          fieldDefs(lb.Fields),
	}, nil
}

func (e exportStore) GetProfile(ctx context.Context, userID string) (export.ProfileInfo, error) {
	p, err := e.store.GetProfile(ctx, userID)
	if err != nil {
		return export.ProfileInfo{}, err
	}
	return export.ProfileInfo{
		DisplayName:  p.Name,
		LogbookName:  p.LogbookName,
		Organization: p.Organization,
	}, nil
}

func legacyFields(e store.Entry) export.LegacyFields {
	return export.LegacyFields{
		WorkedOn: e.WorkedOn,
		Learned:  e.Learned,
		Blockers: e.Blockers,
		Ideas:    e.Ideas,
		Tomorrow: e.Tomorrow,
	}
}

func fieldDefs(fields []store.LogbookField) []export.FieldDef {
	defs := make([]export.FieldDef, 0, len(fields))
	for _, f := range fields {
		defs = append(defs, export.FieldDef{Label: f.Label, Key: f.Key, Type: export.FieldType(f.Type)})
	}
	return defs
}
