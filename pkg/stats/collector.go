package stats

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/celldb/celldb/pkg/observability"
	"github.com/celldb/celldb/pkg/roles"
	"github.com/celldb/celldb/pkg/sheets"
	"github.com/celldb/celldb/pkg/sheetstore"
	"github.com/celldb/celldb/pkg/users"
)

// Collector walks the backing spreadsheet and publishes inventory gauges.
type Collector struct {
	store   sheetstore.Store
	metrics *observability.Metrics
	logger  *observability.Logger
	cron    *cron.Cron
}

// NewCollector creates a collector.
func NewCollector(store sheetstore.Store, metrics *observability.Metrics, logger *observability.Logger) *Collector {
	return &Collector{
		store:   store,
		metrics: metrics,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start runs one refresh immediately and then schedules periodic
// refreshes using a cron spec such as "@every 1m".
func (c *Collector) Start(ctx context.Context, schedule string) error {
	if _, err := c.cron.AddFunc(schedule, func() {
		defer observability.RecoverPanic(c.logger, "stats refresh")
		if err := c.Refresh(context.Background()); err != nil {
			c.logger.WithError(err).Warn("stats refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid stats schedule %q: %w", schedule, err)
	}

	if err := c.Refresh(ctx); err != nil {
		c.logger.WithError(err).Warn("initial stats refresh failed")
	}
	c.cron.Start()
	return nil
}

// Stop halts the refresh schedule.
func (c *Collector) Stop() {
	c.cron.Stop()
}

// Refresh recomputes every gauge from the store.
func (c *Collector) Refresh(ctx context.Context) error {
	metas, err := c.store.GetSheetMetadata(ctx)
	if err != nil {
		return fmt.Errorf("list sheet tabs: %w", err)
	}

	managed := 0
	for _, meta := range metas {
		live, tombstones, err := c.countRows(ctx, meta.Title)
		if err != nil {
			c.logger.WithError(err).WithField("sheet", meta.Title).Warn("count rows failed")
			continue
		}

		switch meta.Title {
		case users.SheetTitle:
			c.metrics.UsersTotal.Set(float64(live))
		case roles.SheetTitle:
			c.metrics.RolesTotal.Set(float64(live))
		case sheets.ConfigSheet:
		default:
			managed++
			c.metrics.RowsTotal.WithLabelValues(meta.Title).Set(float64(live))
			c.metrics.TombstonesTotal.WithLabelValues(meta.Title).Set(float64(tombstones))
		}
	}
	c.metrics.SheetsTotal.Set(float64(managed))
	return nil
}

// countRows splits a sheet's data rows into live rows and tombstones by
// the id cell.
func (c *Collector) countRows(ctx context.Context, sheet string) (live, tombstones int, err error) {
	headers, err := c.store.GetHeaderRow(ctx, sheet)
	if err != nil {
		return 0, 0, err
	}
	idIdx := -1
	for i, header := range headers {
		if header == sheetstore.ColID {
			idIdx = i
			break
		}
	}
	if idIdx < 0 {
		return 0, 0, nil
	}

	rows, err := c.store.GetAllRows(ctx, sheet)
	if err != nil {
		return 0, 0, err
	}
	for _, row := range rows {
		if idIdx < len(row) && row[idIdx] != "" {
			live++
		} else {
			tombstones++
		}
	}
	return live, tombstones, nil
}
