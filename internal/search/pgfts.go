package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// searchText is the same concatenation the generated fts column indexes.
const searchText = `coalesce(e.location, '') || ' ' || e.worked_on || ' ' || e.learned || ' ' ||
	e.blockers || ' ' || e.ideas || ' ' || e.tomorrow || ' ' || e.custom_data::text`

// Search matches entries with plainto_tsquery and ranks them with ts_rank,
// using ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" || q.UserID == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	where := "e.fts @@ " + tsQuery + " AND e.user_id = $2"
	args := []any{q.Text, q.UserID}
	if q.LogbookID != "" {
		where += " AND e.logbook_id = $3"
		args = append(args, q.LogbookID)
	}

	var total int
	if err := p.db.QueryRowContext(context.Background(),
		"SELECT count(*) FROM entries e WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT e.id, COALESCE(e.logbook_id, ''), to_char(e.entry_date, 'YYYY-MM-DD'), e.energy,
			ts_headline('english', %s, %s, 'MaxFragments=1,MaxWords=30') AS snippet
		FROM entries e
		WHERE %s
		ORDER BY ts_rank(e.fts, %s) DESC, e.entry_date DESC
		LIMIT %d OFFSET %d`, searchText, tsQuery, where, tsQuery, limit, offset)

	rows, err := p.db.QueryContext(context.Background(), dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.LogbookID, &r.Date, &r.Energy, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns all entries for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]EntryRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT e.id, e.user_id, COALESCE(e.logbook_id, ''), to_char(e.entry_date, 'YYYY-MM-DD'),
			e.energy, e.location, `+searchText+`
		FROM entries e
	`)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	defer rows.Close()

	records := make([]EntryRecord, 0)
	for rows.Next() {
		var r EntryRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.LogbookID, &r.Date, &r.Energy, &r.Location, &r.Body); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return records, nil
}
