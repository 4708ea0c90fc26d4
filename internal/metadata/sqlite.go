package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	derrors "github.com/sharedash/sharedash/internal/errors"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the metadata database at
// path and ensures the schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, derrors.StoreError("create metadata directory", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, derrors.StoreError("open metadata database", err)
	}

	// WAL allows readers (stats, access tracking) during a rescan's
	// apply transaction; busy_timeout covers short writer overlap.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, derrors.StoreError("configure metadata database", err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying connection for callers sharing it.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS file_records (
		id            TEXT PRIMARY KEY,
		relative_path TEXT NOT NULL UNIQUE,
		file_type     TEXT NOT NULL,
		size_bytes    INTEGER NOT NULL CHECK (size_bytes >= 0),
		modified_at   INTEGER NOT NULL,
		uploaded_by   TEXT NOT NULL DEFAULT 'external',
		modified_by   TEXT NOT NULL DEFAULT 'external',
		access_count  INTEGER NOT NULL DEFAULT 0 CHECK (access_count >= 0),
		team          TEXT NOT NULL DEFAULT '',
		created_at    INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_file_records_access
		ON file_records(access_count DESC, modified_at DESC);
	CREATE INDEX IF NOT EXISTS idx_file_records_type
		ON file_records(file_type);
	`
	if _, err := db.Exec(schema); err != nil {
		return derrors.StoreError("create metadata schema", err)
	}
	return nil
}

const recordColumns = `id, relative_path, file_type, size_bytes, modified_at,
	uploaded_by, modified_by, access_count, team, created_at`

func scanRecord(row interface{ Scan(...any) error }) (*FileRecord, error) {
	var rec FileRecord
	var modifiedAt, createdAt int64
	var uploadedBy, modifiedBy string
	if err := row.Scan(
		&rec.ID, &rec.RelativePath, &rec.FileType, &rec.SizeBytes, &modifiedAt,
		&uploadedBy, &modifiedBy, &rec.AccessCount, &rec.Team, &createdAt,
	); err != nil {
		return nil, err
	}
	rec.ModifiedAt = time.Unix(0, modifiedAt)
	rec.CreatedAt = time.Unix(0, createdAt)
	rec.UploadedBy = ParseActor(uploadedBy)
	rec.ModifiedBy = ParseActor(modifiedBy)
	return &rec, nil
}

// List returns all records ordered by path.
func (s *SQLiteStore) List(ctx context.Context) ([]*FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM file_records ORDER BY relative_path`)
	if err != nil {
		return nil, derrors.StoreError("list records", err)
	}
	defer rows.Close()

	var records []*FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, derrors.StoreError("scan record", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, derrors.StoreError("list records", err)
	}
	return records, nil
}

// Get returns the record with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*FileRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM file_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, derrors.NotFoundError("record " + id)
	}
	if err != nil {
		return nil, derrors.StoreError("get record", err)
	}
	return rec, nil
}

// GetByPath returns the record for a relative path.
func (s *SQLiteStore) GetByPath(ctx context.Context, relativePath string) (*FileRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM file_records WHERE relative_path = ?`, relativePath)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, derrors.NotFoundError(relativePath)
	}
	if err != nil {
		return nil, derrors.StoreError("get record by path", err)
	}
	return rec, nil
}

// Create inserts a new record.
func (s *SQLiteStore) Create(ctx context.Context, rec *FileRecord) error {
	_, err := s.db.ExecContext(ctx, insertSQL, insertArgs(rec)...)
	if err != nil {
		return derrors.StoreError(fmt.Sprintf("create record %s", rec.RelativePath), err)
	}
	return nil
}

// Update refreshes the mutable fields of a record.
func (s *SQLiteStore) Update(ctx context.Context, relativePath string, fields FieldUpdate) error {
	res, err := s.db.ExecContext(ctx, updateSQL, updateArgs(relativePath, fields)...)
	if err != nil {
		return derrors.StoreError(fmt.Sprintf("update record %s", relativePath), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return derrors.NotFoundError(relativePath)
	}
	return nil
}

// Delete hard-removes a record.
func (s *SQLiteStore) Delete(ctx context.Context, relativePath string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM file_records WHERE relative_path = ?`, relativePath)
	if err != nil {
		return derrors.StoreError(fmt.Sprintf("delete record %s", relativePath), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return derrors.NotFoundError(relativePath)
	}
	return nil
}

const insertSQL = `
	INSERT INTO file_records
		(id, relative_path, file_type, size_bytes, modified_at,
		 uploaded_by, modified_by, access_count, team, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func insertArgs(rec *FileRecord) []any {
	return []any{
		rec.ID, rec.RelativePath, rec.FileType, rec.SizeBytes, rec.ModifiedAt.UnixNano(),
		rec.UploadedBy.String(), rec.ModifiedBy.String(), rec.AccessCount, rec.Team,
		rec.CreatedAt.UnixNano(),
	}
}

const updateSQL = `
	UPDATE file_records
	SET file_type = ?, size_bytes = ?, modified_at = ?, modified_by = ?
	WHERE relative_path = ?`

func updateArgs(relativePath string, fields FieldUpdate) []any {
	return []any{
		fields.FileType, fields.SizeBytes, fields.ModifiedAt.UnixNano(),
		fields.ModifiedBy.String(), relativePath,
	}
}

// Apply commits a reconciliation batch in one transaction. Any failure
// rolls the whole batch back and surfaces as a store error so the
// caller knows metadata is exactly as it was before the attempt.
func (s *SQLiteStore) Apply(ctx context.Context, batch *Batch) error {
	if batch == nil || batch.Empty() {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return derrors.StoreError("begin apply transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if len(batch.Creates) > 0 {
		stmt, err := tx.PrepareContext(ctx, insertSQL)
		if err != nil {
			return derrors.StoreError("prepare create", err)
		}
		defer stmt.Close()
		for _, rec := range batch.Creates {
			if _, err := stmt.ExecContext(ctx, insertArgs(rec)...); err != nil {
				return derrors.StoreError(fmt.Sprintf("apply create %s", rec.RelativePath), err)
			}
		}
	}

	if len(batch.Updates) > 0 {
		stmt, err := tx.PrepareContext(ctx, updateSQL)
		if err != nil {
			return derrors.StoreError("prepare update", err)
		}
		defer stmt.Close()
		for _, u := range batch.Updates {
			if _, err := stmt.ExecContext(ctx, updateArgs(u.RelativePath, u.Fields)...); err != nil {
				return derrors.StoreError(fmt.Sprintf("apply update %s", u.RelativePath), err)
			}
		}
	}

	if len(batch.Deletes) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`DELETE FROM file_records WHERE relative_path = ?`)
		if err != nil {
			return derrors.StoreError("prepare delete", err)
		}
		defer stmt.Close()
		for _, path := range batch.Deletes {
			if _, err := stmt.ExecContext(ctx, path); err != nil {
				return derrors.StoreError(fmt.Sprintf("apply delete %s", path), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return derrors.StoreError("commit apply transaction", err)
	}
	return nil
}

// IncrementAccess bumps a record's access count and returns the new
// value.
func (s *SQLiteStore) IncrementAccess(ctx context.Context, id string) (int64, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE file_records
		SET access_count = access_count + 1
		WHERE id = ?
		RETURNING access_count`, id)

	var count int64
	err := row.Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, derrors.NotFoundError("record " + id)
	}
	if err != nil {
		return 0, derrors.StoreError("increment access count", err)
	}
	return count, nil
}
