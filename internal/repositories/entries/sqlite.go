package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gooutside/internal/common"
	"github.com/dmitrijs2005/gooutside/internal/dbx"
	"github.com/dmitrijs2005/gooutside/internal/models"
)

const selectColumns = `SELECT id, creation_date, image_path, street, street_number, city, country, longitude, latitude
	FROM diary_entries`

const orderNewestFirst = ` ORDER BY creation_date DESC, id DESC`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Insert adds e, ignoring a primary-key conflict.
func (r *SQLiteRepository) Insert(ctx context.Context, e *models.DiaryEntry) (bool, error) {
	query := `INSERT INTO diary_entries
			(id, creation_date, image_path, street, street_number, city, country, longitude, latitude)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
			RETURNING id`

	var id any
	if e.ID != 0 {
		id = e.ID
	}

	var newID int64
	err := r.db.QueryRowContext(ctx, query,
		id, models.EpochDay(e.CreationDate), e.ImagePath,
		e.Street, e.StreetNumber, e.City, e.Country, e.Longitude, e.Latitude,
	).Scan(&newID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert diary entry: %w", err)
	}

	e.ID = newID
	return true, nil
}

// Update replaces all columns of the row with e.ID.
func (r *SQLiteRepository) Update(ctx context.Context, e models.DiaryEntry) (bool, error) {
	query := `UPDATE diary_entries SET creation_date = ?, image_path = ?, street = ?, street_number = ?,
			city = ?, country = ?, longitude = ?, latitude = ?
			WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		models.EpochDay(e.CreationDate), e.ImagePath,
		e.Street, e.StreetNumber, e.City, e.Country, e.Longitude, e.Latitude,
		e.ID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update diary entry: %w", err)
	}
	return affected(res)
}

// Delete removes the row with e.ID.
func (r *SQLiteRepository) Delete(ctx context.Context, e models.DiaryEntry) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM diary_entries WHERE id = ?`, e.ID)
	if err != nil {
		return false, fmt.Errorf("failed to delete diary entry: %w", err)
	}
	return affected(res)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.DiaryEntry, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("diary entry %d: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.DiaryEntry, error) {
	return r.list(ctx, selectColumns+orderNewestFirst)
}

func (r *SQLiteRepository) GetRecent(ctx context.Context, limit int) ([]models.DiaryEntry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return r.list(ctx, selectColumns+orderNewestFirst+` LIMIT ?`, limit)
}

// GetByDateRange is inclusive on both ends; a reversed range yields nothing.
func (r *SQLiteRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]models.DiaryEntry, error) {
	return r.list(ctx, selectColumns+` WHERE creation_date BETWEEN ? AND ?`+orderNewestFirst,
		models.EpochDay(start), models.EpochDay(end))
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.DiaryEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select diary entries: %w", err)
	}
	defer rows.Close()

	result := make([]models.DiaryEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan diary entry: %w", err)
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.DiaryEntry, error) {
	var (
		e                             models.DiaryEntry
		day                           int64
		street, number, city, country sql.NullString
		lon, lat                      sql.NullFloat64
	)
	if err := s.Scan(&e.ID, &day, &e.ImagePath, &street, &number, &city, &country, &lon, &lat); err != nil {
		return nil, err
	}

	e.CreationDate = models.FromEpochDay(day)
	e.Street = nullString(street)
	e.StreetNumber = nullString(number)
	e.City = nullString(city)
	e.Country = nullString(country)
	e.Longitude = nullFloat(lon)
	e.Latitude = nullFloat(lat)
	return &e, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}
