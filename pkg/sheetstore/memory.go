package sheetstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store for tests and development. It applies
// the same row layout convention as the real backends.
type MemoryStore struct {
	mu     sync.RWMutex
	sheets map[string]*memSheet
	nextID int64
}

type memSheet struct {
	id   int64
	rows [][]string // rows[0]=header, rows[1]=types, rows[2:]=data
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sheets: make(map[string]*memSheet), nextID: 1}
}

func (m *MemoryStore) GetSheetMetadata(ctx context.Context) ([]SheetInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]SheetInfo, 0, len(m.sheets))
	for title, sh := range m.sheets {
		infos = append(infos, SheetInfo{SheetID: sh.id, Title: title})
	}
	return infos, nil
}

func (m *MemoryStore) GetHeaderRow(ctx context.Context, sheet string) ([]string, error) {
	return m.getRow(sheet, 0)
}

func (m *MemoryStore) GetTypeRow(ctx context.Context, sheet string) ([]string, error) {
	return m.getRow(sheet, 1)
}

func (m *MemoryStore) getRow(sheet string, idx int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sh, ok := m.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	if idx >= len(sh.rows) {
		return []string{}, nil
	}
	return copyRow(sh.rows[idx]), nil
}

func (m *MemoryStore) GetAllRows(ctx context.Context, sheet string) ([][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sh, ok := m.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	rows := make([][]string, 0, len(sh.rows))
	for _, row := range sh.rows[min(2, len(sh.rows)):] {
		rows = append(rows, copyRow(row))
	}
	return rows, nil
}

func (m *MemoryStore) AppendRow(ctx context.Context, sheet string, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sh, ok := m.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	sh.rows = append(sh.rows, copyRow(values))
	return nil
}

func (m *MemoryStore) OverwriteRow(ctx context.Context, sheet string, rowIndex int, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sh, ok := m.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	if rowIndex < 1 || rowIndex > len(sh.rows) {
		return fmt.Errorf("row %d out of range for sheet %s", rowIndex, sheet)
	}
	sh.rows[rowIndex-1] = copyRow(values)
	return nil
}

func (m *MemoryStore) UpdateCell(ctx context.Context, sheet string, rowIndex, colIndex int, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sh, ok := m.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	for len(sh.rows) < rowIndex {
		sh.rows = append(sh.rows, []string{})
	}
	row := sh.rows[rowIndex-1]
	for len(row) <= colIndex {
		row = append(row, "")
	}
	row[colIndex] = value
	sh.rows[rowIndex-1] = row
	return nil
}

func (m *MemoryStore) AddSheet(ctx context.Context, title string, headers, types []string) (SheetInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sheets[title]; exists {
		return SheetInfo{}, fmt.Errorf("sheet %s already exists", title)
	}
	info := SheetInfo{SheetID: m.nextID, Title: title}
	m.nextID++
	m.sheets[title] = &memSheet{
		id:   info.SheetID,
		rows: [][]string{copyRow(headers), copyRow(types)},
	}
	return info, nil
}

func (m *MemoryStore) RenameSheet(ctx context.Context, sheetID int64, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for old, sh := range m.sheets {
		if sh.id != sheetID {
			continue
		}
		if old == title {
			return nil
		}
		if _, exists := m.sheets[title]; exists {
			return fmt.Errorf("sheet %s already exists", title)
		}
		delete(m.sheets, old)
		m.sheets[title] = sh
		return nil
	}
	return fmt.Errorf("%w: id %d", ErrSheetNotFound, sheetID)
}

func (m *MemoryStore) HealthCheck(ctx context.Context) error {
	return nil
}

func copyRow(row []string) []string {
	out := make([]string, len(row))
	copy(out, row)
	return out
}
