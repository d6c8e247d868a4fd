package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"clipcraft/internal/config"
	"clipcraft/internal/media"
)

// ErrSessionNotFound is returned when no session has the requested name.
var ErrSessionNotFound = errors.New("session not found")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	timeLayout              = time.RFC3339Nano
)

// Store persists sessions in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Summary is a one-line view of a stored session.
type Summary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PrimaryName  string    `json:"primary,omitempty"`
	Edits        int       `json:"edits"`
	EffectiveRef string    `json:"effective_ref,omitempty"`
	Pending      bool      `json:"pending"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Open initializes or connects to the session database under the state directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.SessionDBPath())
}

// OpenPath opens the session database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save replaces the stored copy of the session with snap in one transaction.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(snap.ID) == "" || strings.TrimSpace(snap.Name) == "" {
		return errors.New("save session: id and name are required")
	}
	primary, err := encodeOptional(snap.Primary, snap.Primary.IsZero())
	if err != nil {
		return fmt.Errorf("save session: encode primary: %w", err)
	}
	auxiliary, err := encodeOptional(snap.Auxiliary, snap.Auxiliary == nil)
	if err != nil {
		return fmt.Errorf("save session: encode auxiliary: %w", err)
	}
	pending, err := encodeOptional(snap.Pending, snap.Pending == nil)
	if err != nil {
		return fmt.Errorf("save session: encode pending job: %w", err)
	}
	records := make([]string, len(snap.Records))
	for i, r := range snap.Records {
		encoded, err := json.Marshal(r.Params)
		if err != nil {
			return fmt.Errorf("save session: encode record %d: %w", i, err)
		}
		records[i] = string(encoded)
	}

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin save tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		_, err = tx.ExecContext(ctx, `INSERT INTO sessions
			(id, name, primary_asset, original_ref, effective_ref, auxiliary_asset, auxiliary_digest, pending_job, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				primary_asset = excluded.primary_asset,
				original_ref = excluded.original_ref,
				effective_ref = excluded.effective_ref,
				auxiliary_asset = excluded.auxiliary_asset,
				auxiliary_digest = excluded.auxiliary_digest,
				pending_job = excluded.pending_job,
				updated_at = excluded.updated_at`,
			snap.ID, snap.Name, primary, snap.OriginalRef, nullString(snap.EffectiveRef),
			auxiliary, snap.AuxiliaryDigest, pending,
			formatTime(snap.CreatedAt), formatTime(snap.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("upsert session: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM edit_records WHERE session_id = ?", snap.ID); err != nil {
			return fmt.Errorf("clear records: %w", err)
		}
		for i, r := range snap.Records {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO edit_records (session_id, seq, kind, params, artifact_ref, job_id, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				snap.ID, i, string(r.Kind), records[i], r.ArtifactRef, r.JobID, formatTime(r.CreatedAt),
			); err != nil {
				return fmt.Errorf("insert record %d: %w", i, err)
			}
		}
		return tx.Commit()
	})
}

// Load reads the named session.
func (s *Store) Load(ctx context.Context, name string) (Snapshot, error) {
	ctx = ensureContext(ctx)
	var (
		snap                        Snapshot
		primary, auxiliary, pending sql.NullString
		effective                   sql.NullString
		createdAt, updatedAt        string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, primary_asset, original_ref, effective_ref, auxiliary_asset, auxiliary_digest, pending_job, created_at, updated_at
		FROM sessions WHERE name = ?`, name,
	).Scan(&snap.ID, &snap.Name, &primary, &snap.OriginalRef, &effective, &auxiliary, &snap.AuxiliaryDigest, &pending, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrSessionNotFound, name)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load session %s: %w", name, err)
	}
	snap.EffectiveRef = effective.String
	snap.CreatedAt = parseTime(createdAt)
	snap.UpdatedAt = parseTime(updatedAt)
	if primary.Valid {
		if err := json.Unmarshal([]byte(primary.String), &snap.Primary); err != nil {
			return Snapshot{}, fmt.Errorf("decode primary asset: %w", err)
		}
	}
	if auxiliary.Valid {
		var h media.AssetHandle
		if err := json.Unmarshal([]byte(auxiliary.String), &h); err != nil {
			return Snapshot{}, fmt.Errorf("decode auxiliary asset: %w", err)
		}
		snap.Auxiliary = &h
	}
	if pending.Valid {
		var p media.PendingJob
		if err := json.Unmarshal([]byte(pending.String), &p); err != nil {
			return Snapshot{}, fmt.Errorf("decode pending job: %w", err)
		}
		snap.Pending = &p
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT kind, params, artifact_ref, job_id, created_at FROM edit_records WHERE session_id = ? ORDER BY seq",
		snap.ID,
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load records: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			r            Record
			kind, params string
			recordedAt   string
		)
		if err := rows.Scan(&kind, &params, &r.ArtifactRef, &r.JobID, &recordedAt); err != nil {
			return Snapshot{}, fmt.Errorf("scan record: %w", err)
		}
		r.Kind = media.Kind(kind)
		r.CreatedAt = parseTime(recordedAt)
		if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
			return Snapshot{}, fmt.Errorf("decode record params: %w", err)
		}
		snap.Records = append(snap.Records, r)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate records: %w", err)
	}
	return snap, nil
}

// List returns every stored session, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT s.id, s.name, s.primary_asset, s.effective_ref, s.pending_job, s.updated_at,
			(SELECT COUNT(1) FROM edit_records r WHERE r.session_id = s.id)
		FROM sessions s ORDER BY s.updated_at DESC, s.name`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum                         Summary
			primary, effective, pending sql.NullString
			updatedAt                   string
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &primary, &effective, &pending, &updatedAt, &sum.Edits); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if primary.Valid {
			var h media.AssetHandle
			if err := json.Unmarshal([]byte(primary.String), &h); err == nil {
				sum.PrimaryName = h.FileName
			}
		}
		sum.EffectiveRef = effective.String
		sum.Pending = pending.Valid
		sum.UpdatedAt = parseTime(updatedAt)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the named session and its records.
func (s *Store) Delete(ctx context.Context, name string) error {
	ctx = ensureContext(ctx)
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, "DELETE FROM sessions WHERE name = ?", name)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("delete session %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, name)
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func encodeOptional(value any, absent bool) (sql.NullString, error) {
	if absent {
		return sql.NullString{}, nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(encoded), Valid: true}, nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
