package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// CalibrationEntry is one completed calibration. Data holds the full JSON
// record so an older calibration can be restored verbatim.
type CalibrationEntry struct {
	ID           string
	ScreenWidth  int
	ScreenHeight int
	HandSize     float64
	Data         string
	CreatedAt    time.Time
}

// CalibrationRepository stores calibration history.
type CalibrationRepository struct {
	db *sql.DB
}

// Calibrations returns the calibration repository for this store.
func (s *Store) Calibrations() *CalibrationRepository {
	return &CalibrationRepository{db: s.db}
}

// Create records a completed calibration. The ID is generated when empty.
func (r *CalibrationRepository) Create(c *CalibrationEntry) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO calibrations (id, screen_width, screen_height, hand_size, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.ScreenWidth, c.ScreenHeight, c.HandSize, c.Data, c.CreatedAt,
	)
	return err
}

// Latest returns the most recent calibration.
func (r *CalibrationRepository) Latest() (*CalibrationEntry, error) {
	c := &CalibrationEntry{}
	err := r.db.QueryRow(
		`SELECT id, screen_width, screen_height, hand_size, data, created_at
		 FROM calibrations ORDER BY created_at DESC LIMIT 1`,
	).Scan(&c.ID, &c.ScreenWidth, &c.ScreenHeight, &c.HandSize, &c.Data, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// List returns calibrations, newest first.
func (r *CalibrationRepository) List(limit int) ([]*CalibrationEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(
		`SELECT id, screen_width, screen_height, hand_size, data, created_at
		 FROM calibrations ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*CalibrationEntry
	for rows.Next() {
		c := &CalibrationEntry{}
		if err := rows.Scan(&c.ID, &c.ScreenWidth, &c.ScreenHeight, &c.HandSize, &c.Data, &c.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, c)
	}
	return entries, rows.Err()
}
