package sheetstore

import (
	"context"
	"time"

	"github.com/celldb/celldb/pkg/observability"
)

// InstrumentedStore wraps a Store and records per-operation counters and
// latencies under the backend label.
type InstrumentedStore struct {
	next    Store
	backend string
	metrics *observability.Metrics
}

// NewInstrumentedStore wraps next with metrics recording.
func NewInstrumentedStore(next Store, backend string, metrics *observability.Metrics) *InstrumentedStore {
	return &InstrumentedStore{next: next, backend: backend, metrics: metrics}
}

func (s *InstrumentedStore) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		s.metrics.StoreErrorsTotal.WithLabelValues(op, s.backend).Inc()
	}
	s.metrics.StoreOperationsTotal.WithLabelValues(op, s.backend, status).Inc()
	s.metrics.StoreOperationDuration.WithLabelValues(op, s.backend).Observe(time.Since(start).Seconds())
}

func (s *InstrumentedStore) GetSheetMetadata(ctx context.Context) ([]SheetInfo, error) {
	start := time.Now()
	metas, err := s.next.GetSheetMetadata(ctx)
	s.observe("get_sheet_metadata", start, err)
	return metas, err
}

func (s *InstrumentedStore) GetHeaderRow(ctx context.Context, sheet string) ([]string, error) {
	start := time.Now()
	row, err := s.next.GetHeaderRow(ctx, sheet)
	s.observe("get_header_row", start, err)
	return row, err
}

func (s *InstrumentedStore) GetTypeRow(ctx context.Context, sheet string) ([]string, error) {
	start := time.Now()
	row, err := s.next.GetTypeRow(ctx, sheet)
	s.observe("get_type_row", start, err)
	return row, err
}

func (s *InstrumentedStore) GetAllRows(ctx context.Context, sheet string) ([][]string, error) {
	start := time.Now()
	rows, err := s.next.GetAllRows(ctx, sheet)
	s.observe("get_all_rows", start, err)
	return rows, err
}

func (s *InstrumentedStore) AppendRow(ctx context.Context, sheet string, values []string) error {
	start := time.Now()
	err := s.next.AppendRow(ctx, sheet, values)
	s.observe("append_row", start, err)
	return err
}

func (s *InstrumentedStore) OverwriteRow(ctx context.Context, sheet string, rowIndex int, values []string) error {
	start := time.Now()
	err := s.next.OverwriteRow(ctx, sheet, rowIndex, values)
	s.observe("overwrite_row", start, err)
	return err
}

func (s *InstrumentedStore) UpdateCell(ctx context.Context, sheet string, rowIndex, colIndex int, value string) error {
	start := time.Now()
	err := s.next.UpdateCell(ctx, sheet, rowIndex, colIndex, value)
	s.observe("update_cell", start, err)
	return err
}

func (s *InstrumentedStore) AddSheet(ctx context.Context, title string, headers, types []string) (SheetInfo, error) {
	start := time.Now()
	info, err := s.next.AddSheet(ctx, title, headers, types)
	s.observe("add_sheet", start, err)
	return info, err
}

func (s *InstrumentedStore) RenameSheet(ctx context.Context, sheetID int64, title string) error {
	start := time.Now()
	err := s.next.RenameSheet(ctx, sheetID, title)
	s.observe("rename_sheet", start, err)
	return err
}

func (s *InstrumentedStore) HealthCheck(ctx context.Context) error {
	start := time.Now()
	err := s.next.HealthCheck(ctx)
	s.observe("health_check", start, err)
	return err
}
