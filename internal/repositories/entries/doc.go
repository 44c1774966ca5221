// Package entries provides the SQLite persistence layer for diary entries.
//
// # Overview
//
// Repository describes the read/write contract used by the reactive diary
// store (internal/diary). SQLiteRepository implements it over a dbx.DBTX, so
// the same code runs on a *sql.DB or inside a transaction (*sql.Tx).
//
// # Semantics
//
//   - Insert assigns an id when the entry has none. Inserting an id that
//     already exists is silently ignored and reported as inserted=false.
//   - Update replaces the whole record; Delete removes it. Both are no-ops
//     when the id does not exist.
//   - List queries order by creation date, newest first; entries of the
//     same day are ordered by id, newest insert first.
//   - Dates are stored as epoch days (models.EpochDay).
//
// # Typical Usage
//
//	repo := entries.NewSQLiteRepository(db)
//	inserted, _ := repo.Insert(ctx, &entry)
//	recent, _ := repo.GetRecent(ctx, 5)
//	week, _ := repo.GetByDateRange(ctx, monday, sunday)
package entries
