package sheetstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists sheets in a local SQLite database using the same
// grid layout as the spreadsheet backends: one cells table keyed by
// (sheet, row, col). Intended for self-hosted and development deployments.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sheets (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS cells (
	sheet_id INTEGER NOT NULL REFERENCES sheets(id),
	row      INTEGER NOT NULL,
	col      INTEGER NOT NULL,
	value    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (sheet_id, row, col)
);
`

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) sheetID(ctx context.Context, sheet string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM sheets WHERE title = ?`, sheet).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *SQLiteStore) GetSheetMetadata(ctx context.Context) ([]SheetInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title FROM sheets ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []SheetInfo
	for rows.Next() {
		var info SheetInfo
		if err := rows.Scan(&info.SheetID, &info.Title); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *SQLiteStore) GetHeaderRow(ctx context.Context, sheet string) ([]string, error) {
	return s.getRow(ctx, sheet, 1)
}

func (s *SQLiteStore) GetTypeRow(ctx context.Context, sheet string) ([]string, error) {
	return s.getRow(ctx, sheet, 2)
}

func (s *SQLiteStore) getRow(ctx context.Context, sheet string, rowIndex int) ([]string, error) {
	id, err := s.sheetID(ctx, sheet)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT col, value FROM cells WHERE sheet_id = ? AND row = ? ORDER BY col`, id, rowIndex)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCells(rows)
}

func (s *SQLiteStore) GetAllRows(ctx context.Context, sheet string) ([][]string, error) {
	id, err := s.sheetID(ctx, sheet)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT row, col, value FROM cells WHERE sheet_id = ? AND row >= 3 ORDER BY row, col`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out     [][]string
		current []string
		lastRow = -1
	)
	for rows.Next() {
		var rowIdx, colIdx int
		var value string
		if err := rows.Scan(&rowIdx, &colIdx, &value); err != nil {
			return nil, err
		}
		if rowIdx != lastRow {
			if lastRow != -1 {
				out = append(out, current)
			}
			// Rows are contiguous from 3; fill gaps with empty rows so
			// positions stay aligned with spreadsheet row numbers.
			for lastRow != -1 && rowIdx > lastRow+1 {
				out = append(out, []string{})
				lastRow++
			}
			current = []string{}
			lastRow = rowIdx
		}
		for len(current) < colIdx {
			current = append(current, "")
		}
		current = append(current, value)
	}
	if lastRow != -1 {
		out = append(out, current)
	}
	if out == nil {
		out = [][]string{}
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AppendRow(ctx context.Context, sheet string, values []string) error {
	id, err := s.sheetID(ctx, sheet)
	if err != nil {
		return err
	}

	var maxRow sql.NullInt64
	if err := s.db.QueryRowContext(ctx,
		`SELECT MAX(row) FROM cells WHERE sheet_id = ?`, id).Scan(&maxRow); err != nil {
		return err
	}
	next := int64(3)
	if maxRow.Valid && maxRow.Int64 >= 2 {
		next = maxRow.Int64 + 1
	}
	return s.writeRow(ctx, id, int(next), values)
}

func (s *SQLiteStore) OverwriteRow(ctx context.Context, sheet string, rowIndex int, values []string) error {
	id, err := s.sheetID(ctx, sheet)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cells WHERE sheet_id = ? AND row = ?`, id, rowIndex); err != nil {
		return err
	}
	for col, value := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cells (sheet_id, row, col, value) VALUES (?, ?, ?, ?)`,
			id, rowIndex, col, value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) UpdateCell(ctx context.Context, sheet string, rowIndex, colIndex int, value string) error {
	id, err := s.sheetID(ctx, sheet)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cells (sheet_id, row, col, value) VALUES (?, ?, ?, ?)
		 ON CONFLICT (sheet_id, row, col) DO UPDATE SET value = excluded.value`,
		id, rowIndex, colIndex, value)
	return err
}

func (s *SQLiteStore) AddSheet(ctx context.Context, title string, headers, types []string) (SheetInfo, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO sheets (title) VALUES (?)`, title)
	if err != nil {
		return SheetInfo{}, fmt.Errorf("create sheet %s: %w", title, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return SheetInfo{}, err
	}
	if err := s.writeRow(ctx, id, 1, headers); err != nil {
		return SheetInfo{}, err
	}
	if err := s.writeRow(ctx, id, 2, types); err != nil {
		return SheetInfo{}, err
	}
	return SheetInfo{SheetID: id, Title: title}, nil
}

func (s *SQLiteStore) RenameSheet(ctx context.Context, sheetID int64, title string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sheets SET title = ? WHERE id = ?`, title, sheetID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrSheetNotFound, sheetID)
	}
	return nil
}

func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) writeRow(ctx context.Context, sheetID int64, rowIndex int, values []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for col, value := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cells (sheet_id, row, col, value) VALUES (?, ?, ?, ?)
			 ON CONFLICT (sheet_id, row, col) DO UPDATE SET value = excluded.value`,
			sheetID, rowIndex, col, value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanCells(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var col int
		var value string
		if err := rows.Scan(&col, &value); err != nil {
			return nil, err
		}
		for len(out) < col {
			out = append(out, "")
		}
		out = append(out, value)
	}
	if out == nil {
		out = []string{}
	}
	return out, rows.Err()
}
