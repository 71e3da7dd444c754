package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// CommandEntry is one dispatched gesture command.
type CommandEntry struct {
	ID         string
	Type       string
	Detail     string
	Confidence float64
	CreatedAt  time.Time
}

// CommandLogRepository records and queries dispatched commands.
type CommandLogRepository struct {
	db *sql.DB
}

// Commands returns the command log repository for this store.
func (s *Store) Commands() *CommandLogRepository {
	return &CommandLogRepository{db: s.db}
}

// Append records a dispatched command. The ID is generated when empty.
func (r *CommandLogRepository) Append(e *CommandEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO command_log (id, type, detail, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Type, e.Detail, e.Confidence, e.CreatedAt,
	)
	return err
}

// Recent returns the most recent commands, newest first.
func (r *CommandLogRepository) Recent(limit int) ([]*CommandEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, type, detail, confidence, created_at
		 FROM command_log ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*CommandEntry
	for rows.Next() {
		e := &CommandEntry{}
		if err := rows.Scan(&e.ID, &e.Type, &e.Detail, &e.Confidence, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes log entries older than the cutoff.
func (r *CommandLogRepository) Prune(olderThan time.Time) error {
	_, err := r.db.Exec(`DELETE FROM command_log WHERE created_at < ?`, olderThan)
	return err
}
