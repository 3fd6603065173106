package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureProfile creates an empty profile row the first time a user is seen.
func (s *PostgresStore) EnsureProfile(ctx context.Context, userID, email string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, userID, email)
	if err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	var customer sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, logbook_name, organization, is_pro, stripe_customer_id, created_at, updated_at
		FROM profiles WHERE id=$1
	`, userID).Scan(&p.ID, &p.Name, &p.Email, &p.LogbookName, &p.Organization, &p.IsPro, &customer, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Profile{}, err
	}
	p.StripeCustomerID = customer.String
	return p, nil
}

func (s *PostgresStore) UpsertProfile(ctx context.Context, p Profile) (Profile, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, name, email, logbook_name, organization)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name,
			logbook_name=EXCLUDED.logbook_name,
			organization=EXCLUDED.organization,
			updated_at=NOW()
	`, p.ID, p.Name, p.Email, p.LogbookName, p.Organization)
	if err != nil {
		return Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return s.GetProfile(ctx, p.ID)
}

// SetPro marks a user as a paying customer.
func (s *PostgresStore) SetPro(ctx context.Context, userID, customerID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET is_pro=TRUE, stripe_customer_id=NULLIF($2, ''), updated_at=NOW()
		WHERE id=$1
	`, userID, customerID)
	if err != nil {
		return fmt.Errorf("set pro: %w", err)
	}
	return requireRow(res)
}

// ClearProByCustomer downgrades whichever user owns the billing customer.
func (s *PostgresStore) ClearProByCustomer(ctx context.Context, customerID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET is_pro=FALSE, updated_at=NOW()
		WHERE stripe_customer_id=$1
	`, customerID)
	if err != nil {
		return fmt.Errorf("clear pro: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) ListLogbooks(ctx context.Context, userID string) ([]Logbook, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, organization, default_location, created_at
		FROM logbooks WHERE user_id=$1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list logbooks: %w", err)
	}
	defer rows.Close()

	logbooks := make([]Logbook, 0)
	for rows.Next() {
		var lb Logbook
		if err := rows.Scan(&lb.ID, &lb.UserID, &lb.Name, &lb.Organization, &lb.DefaultLocation, &lb.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan logbook: %w", err)
		}
		logbooks = append(logbooks, lb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logbooks: %w", err)
	}
	return logbooks, nil
}

// GetLogbook loads a logbook together with its ordered field registry.
func (s *PostgresStore) GetLogbook(ctx context.Context, userID, logbookID string) (Logbook, error) {
	var lb Logbook
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, organization, default_location, created_at
		FROM logbooks WHERE id=$1 AND user_id=$2
	`, logbookID, userID).Scan(&lb.ID, &lb.UserID, &lb.Name, &lb.Organization, &lb.DefaultLocation, &lb.CreatedAt)
	if err != nil {
		return Logbook{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, field_key, label, field_type, options, position
		FROM logbook_fields WHERE logbook_id=$1
		ORDER BY position ASC
	`, logbookID)
	if err != nil {
		return Logbook{}, fmt.Errorf("list logbook fields: %w", err)
	}
	defer rows.Close()

	lb.Fields = make([]LogbookField, 0)
	for rows.Next() {
		var f LogbookField
		var options []byte
		if err := rows.Scan(&f.ID, &f.Key, &f.Label, &f.Type, &options, &f.Position); err != nil {
			return Logbook{}, fmt.Errorf("scan logbook field: %w", err)
		}
		if err := json.Unmarshal(options, &f.Options); err != nil {
			return Logbook{}, fmt.Errorf("decode field options: %w", err)
		}
		lb.Fields = append(lb.Fields, f)
	}
	if err := rows.Err(); err != nil {
		return Logbook{}, fmt.Errorf("iterate logbook fields: %w", err)
	}
	return lb, nil
}

func (s *PostgresStore) CreateLogbook(ctx context.Context, lb Logbook) (Logbook, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Logbook{}, fmt.Errorf("begin logbook tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO logbooks (id, user_id, name, organization, default_location)
		VALUES ($1, $2, $3, $4, $5)
	`, lb.ID, lb.UserID, lb.Name, lb.Organization, lb.DefaultLocation); err != nil {
		return Logbook{}, fmt.Errorf("insert logbook: %w", err)
	}

	for i, f := range lb.Fields {
		options, err := json.Marshal(nonNilStrings(f.Options))
		if err != nil {
			return Logbook{}, fmt.Errorf("encode field options: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO logbook_fields (id, logbook_id, field_key, label, field_type, options, position)
			VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
		`, f.ID, lb.ID, f.Key, f.Label, f.Type, string(options), i); err != nil {
			return Logbook{}, fmt.Errorf("insert logbook field %s: %w", f.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Logbook{}, fmt.Errorf("commit logbook: %w", err)
	}
	return s.GetLogbook(ctx, lb.UserID, lb.ID)
}

const entryColumns = `
	id, user_id, COALESCE(logbook_id, ''), to_char(entry_date, 'YYYY-MM-DD'), hours,
	start_time, end_time, energy, location,
	worked_on, learned, blockers, ideas, tomorrow, custom_data,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	var custom []byte
	if err := row.Scan(
		&e.ID, &e.UserID, &e.LogbookID, &e.Date, &e.Hours,
		&e.StartTime, &e.EndTime, &e.Energy, &e.Location,
		&e.WorkedOn, &e.Learned, &e.Blockers, &e.Ideas, &e.Tomorrow, &custom,
		&e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return Entry{}, err
	}
	if len(custom) > 0 {
		if err := json.Unmarshal(custom, &e.CustomData); err != nil {
			return Entry{}, fmt.Errorf("decode custom data: %w", err)
		}
	}
	return e, nil
}

// ListEntries returns a user's entries newest first. An empty logbookID lists
// every logbook.
func (s *PostgresStore) ListEntries(ctx context.Context, userID, logbookID string, limit int) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE user_id=$1`
	args := []any{userID}
	if logbookID != "" {
		query += ` AND logbook_id=$2`
		args = append(args, logbookID)
	}
	query += ` ORDER BY entry_date DESC, created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) GetEntry(ctx context.Context, userID, entryID string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id=$1 AND user_id=$2`, entryID, userID)
	return scanEntry(row)
}

func (s *PostgresStore) CreateEntry(ctx context.Context, e Entry) (Entry, error) {
	custom, err := json.Marshal(nonNilMap(e.CustomData))
	if err != nil {
		return Entry{}, fmt.Errorf("encode custom data: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO entries (
			id, user_id, logbook_id, entry_date, hours, start_time, end_time, energy, location,
			worked_on, learned, blockers, ideas, tomorrow, custom_data
		) VALUES ($1, $2, NULLIF($3, ''), $4::date, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15::jsonb)
		RETURNING `+entryColumns,
		e.ID, e.UserID, e.LogbookID, e.Date, e.Hours, e.StartTime, e.EndTime, e.Energy, e.Location,
		e.WorkedOn, e.Learned, e.Blockers, e.Ideas, e.Tomorrow, string(custom),
	)
	created, err := scanEntry(row)
	if err != nil {
		return Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	return created, nil
}

// UpdateEntry replaces the editable columns of an entry the user owns.
func (s *PostgresStore) UpdateEntry(ctx context.Context, e Entry) (Entry, error) {
	custom, err := json.Marshal(nonNilMap(e.CustomData))
	if err != nil {
		return Entry{}, fmt.Errorf("encode custom data: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE entries SET
			entry_date=$3::date, hours=$4, start_time=$5, end_time=$6, energy=$7, location=$8,
			worked_on=$9, learned=$10, blockers=$11, ideas=$12, tomorrow=$13, custom_data=$14::jsonb,
			updated_at=NOW()
		WHERE id=$1 AND user_id=$2
		RETURNING `+entryColumns,
		e.ID, e.UserID, e.Date, e.Hours, e.StartTime, e.EndTime, e.Energy, e.Location,
		e.WorkedOn, e.Learned, e.Blockers, e.Ideas, e.Tomorrow, string(custom),
	)
	updated, err := scanEntry(row)
	if err != nil {
		return Entry{}, fmt.Errorf("update entry: %w", err)
	}
	return updated, nil
}

func (s *PostgresStore) DeleteEntry(ctx context.Context, userID, entryID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id=$1 AND user_id=$2`, entryID, userID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) GetSyncTarget(ctx context.Context, userID string) (SyncTarget, error) {
	var t SyncTarget
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, provider, endpoint, bucket, access_key, sealed_secret, use_ssl, region, connected_at
		FROM sync_targets WHERE user_id=$1
	`, userID).Scan(&t.UserID, &t.Provider, &t.Endpoint, &t.Bucket, &t.AccessKey, &t.SealedSecret, &t.UseSSL, &t.Region, &t.ConnectedAt)
	if err != nil {
		return SyncTarget{}, err
	}
	return t, nil
}

func (s *PostgresStore) SaveSyncTarget(ctx context.Context, t SyncTarget) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_targets (user_id, provider, endpoint, bucket, access_key, sealed_secret, use_ssl, region)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			provider=EXCLUDED.provider,
			endpoint=EXCLUDED.endpoint,
			bucket=EXCLUDED.bucket,
			access_key=EXCLUDED.access_key,
			sealed_secret=EXCLUDED.sealed_secret,
			use_ssl=EXCLUDED.use_ssl,
			region=EXCLUDED.region,
			connected_at=NOW()
	`, t.UserID, t.Provider, t.Endpoint, t.Bucket, t.AccessKey, t.SealedSecret, t.UseSSL, t.Region)
	if err != nil {
		return fmt.Errorf("save sync target: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteSyncTarget(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sync_targets WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("delete sync target: %w", err)
	}
	return nil
}

// DeleteAccount removes the profile; logbooks, entries and sync targets
// cascade with it.
func (s *PostgresStore) DeleteAccount(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id=$1`, userID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
