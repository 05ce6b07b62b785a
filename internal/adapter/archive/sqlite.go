package archive

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"switchboard/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	request     TEXT NOT NULL,
	output      TEXT,
	error       TEXT,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	finished_at TEXT
);
`

// SQLiteArchive persists evicted runs to a local SQLite database. It is a
// write-only sink; retained runs live in memory and are never read back
// from here by the store.
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLiteArchive opens (and if needed creates) the archive database.
func NewSQLiteArchive(path string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, domain.WrapOp("archive.open", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, domain.WrapOp("archive.migrate", err)
	}
	return &SQLiteArchive{db: db}, nil
}

// Archive implements usecase.Archiver. Re-archiving the same run id
// replaces the previous row.
func (a *SQLiteArchive) Archive(run domain.Run) error {
	output, err := json.Marshal(run.Output)
	if err != nil {
		return domain.WrapOp("archive.encode", err)
	}

	var finishedAt any
	if run.FinishedAt != nil {
		finishedAt = run.FinishedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err = a.db.Exec(`
		INSERT INTO runs (id, status, request, output, error, created_at, updated_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			output = excluded.output,
			error = excluded.error,
			updated_at = excluded.updated_at,
			finished_at = excluded.finished_at`,
		run.ID,
		string(run.Status),
		run.Request,
		string(output),
		run.Error,
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
		run.UpdatedAt.UTC().Format(time.RFC3339Nano),
		finishedAt,
	)
	return domain.WrapOp("archive.insert", err)
}

// Count returns how many runs the archive holds.
func (a *SQLiteArchive) Count() (int, error) {
	var n int
	if err := a.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, domain.WrapOp("archive.count", err)
	}
	return n, nil
}

// Get reads one archived run back, for inspection tooling.
func (a *SQLiteArchive) Get(id string) (domain.Run, error) {
	var (
		run        domain.Run
		output     sql.NullString
		errMsg     sql.NullString
		createdAt  string
		updatedAt  string
		finishedAt sql.NullString
		status     string
	)
	err := a.db.QueryRow(`
		SELECT id, status, request, output, error, created_at, updated_at, finished_at
		FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &status, &run.Request, &output, &errMsg, &createdAt, &updatedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return domain.Run{}, domain.NewDomainError("archive.get", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Run{}, domain.WrapOp("archive.get", err)
	}

	run.Status = domain.RunStatus(status)
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	if output.Valid && output.String != "" {
		if err := json.Unmarshal([]byte(output.String), &run.Output); err != nil {
			return domain.Run{}, domain.WrapOp("archive.decode", err)
		}
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return domain.Run{}, domain.WrapOp("archive.parse", err)
	}
	if run.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return domain.Run{}, domain.WrapOp("archive.parse", err)
	}
	if finishedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, finishedAt.String)
		if err != nil {
			return domain.Run{}, domain.WrapOp("archive.parse", err)
		}
		run.FinishedAt = &t
	}
	return run, nil
}

// Close closes the database.
func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}
