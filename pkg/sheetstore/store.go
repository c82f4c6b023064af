package sheetstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrSheetNotFound is returned when a referenced sheet tab does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// SheetInfo describes one sheet tab in the backing spreadsheet.
type SheetInfo struct {
	SheetID int64  `json:"sheetId"`
	Title   string `json:"title"`
}

// Store is the row-store contract. Row indexes are 1-based absolute
// spreadsheet row numbers; data rows start at row 3.
type Store interface {
	// GetSheetMetadata lists all sheet tabs.
	GetSheetMetadata(ctx context.Context) ([]SheetInfo, error)

	// GetHeaderRow returns row 1 (column names) of a sheet.
	GetHeaderRow(ctx context.Context, sheet string) ([]string, error)

	// GetTypeRow returns row 2 (raw schema declarations) of a sheet.
	GetTypeRow(ctx context.Context, sheet string) ([]string, error)

	// GetAllRows returns rows 3+ in sheet order.
	GetAllRows(ctx context.Context, sheet string) ([][]string, error)

	// AppendRow appends values after the last data row.
	AppendRow(ctx context.Context, sheet string, values []string) error

	// OverwriteRow replaces the row at rowIndex in place. Used for both
	// updates and clear-deletes; the row position is never removed.
	OverwriteRow(ctx context.Context, sheet string, rowIndex int, values []string) error

	// UpdateCell writes a single cell. rowIndex is 1-based, colIndex 0-based.
	UpdateCell(ctx context.Context, sheet string, rowIndex, colIndex int, value string) error

	// AddSheet creates a new tab with the given header and type rows.
	AddSheet(ctx context.Context, title string, headers, types []string) (SheetInfo, error)

	// RenameSheet retitles the tab identified by sheetID.
	RenameSheet(ctx context.Context, sheetID int64, title string) error

	// HealthCheck verifies the backing store is reachable.
	HealthCheck(ctx context.Context) error
}

// Supported storage backend types.
const (
	TypeGoogle = "google"
	TypeSQLite = "sqlite"
	TypeMemory = "memory"
)

// Config selects and configures a storage backend.
type Config struct {
	Type string `yaml:"type"` // "google", "sqlite", "memory"

	// Google Sheets config
	GoogleSpreadsheetID   string `yaml:"google_spreadsheet_id"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`

	// SQLite config
	SQLitePath string `yaml:"sqlite_path"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Type:       TypeSQLite,
		SQLitePath: "celldb.sqlite",
	}
}

// NewStore creates the backend selected by cfg.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case TypeGoogle:
		return NewGoogleStore(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleCredentialsFile)
	case TypeSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case TypeMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("invalid storage type: %s (must be google, sqlite, or memory)", cfg.Type)
	}
}
