package sheets

import (
	"context"

	"github.com/celldb/celldb/pkg/acl"
	"github.com/celldb/celldb/pkg/errs"
	"github.com/celldb/celldb/pkg/schema"
	"github.com/celldb/celldb/pkg/sheetstore"
)

// ColumnInfo describes one declared column of a sheet.
type ColumnInfo struct {
	Name   string        `json:"name"`
	Raw    string        `json:"declaration"`
	Schema schema.Column `json:"schema"`
	System bool          `json:"system"`
}

// ListColumns returns the declared columns of a sheet in header order.
func (s *Service) ListColumns(ctx context.Context, id *acl.Identity, name string) ([]ColumnInfo, error) {
	cfg, err := s.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if d := acl.CanRead(id, cfg.ACL); !d.Allowed {
		return nil, readDenied(d)
	}

	headers, err := s.store.GetHeaderRow(ctx, name)
	if err != nil {
		return nil, errs.Upstream(err, "read header row of %q", name)
	}
	types, err := s.store.GetTypeRow(ctx, name)
	if err != nil {
		return nil, errs.Upstream(err, "read type row of %q", name)
	}

	columns := make([]ColumnInfo, 0, len(headers))
	for i, header := range headers {
		if header == "" {
			continue // cleared column position
		}
		raw := ""
		if i < len(types) {
			raw = types[i]
		}
		columns = append(columns, ColumnInfo{
			Name:   header,
			Raw:    raw,
			Schema: schema.ParseColumn(raw),
			System: sheetstore.IsSystemColumn(header),
		})
	}
	return columns, nil
}

// AddColumn appends a new column with the given raw declaration.
func (s *Service) AddColumn(ctx context.Context, id *acl.Identity, name, column, declaration string) error {
	_, headers, err := s.columnChangeContext(ctx, id, name)
	if err != nil {
		return err
	}

	if column == "" {
		return errs.Validation("column name is required")
	}
	if sheetstore.IsSystemColumn(column) {
		return errs.Validation("column %q is a protected system column", column)
	}
	for _, header := range headers {
		if header == column {
			return errs.Conflict("column %q already exists", column)
		}
	}

	idx := len(headers)
	if err := s.store.UpdateCell(ctx, name, 1, idx, column); err != nil {
		return errs.Upstream(err, "write header cell")
	}
	if err := s.store.UpdateCell(ctx, name, 2, idx, declaration); err != nil {
		return errs.Upstream(err, "write type cell")
	}
	return nil
}

// UpdateColumn changes a column's declaration and optionally renames it.
func (s *Service) UpdateColumn(ctx context.Context, id *acl.Identity, name, column, newName, declaration string) error {
	_, headers, err := s.columnChangeContext(ctx, id, name)
	if err != nil {
		return err
	}

	if sheetstore.IsSystemColumn(column) {
		return errs.Validation("column %q is a protected system column", column)
	}
	idx := indexOf(headers, column)
	if idx < 0 {
		return errs.NotFound("column %q not found", column)
	}

	if newName != "" && newName != column {
		if sheetstore.IsSystemColumn(newName) {
			return errs.Validation("column %q is a protected system column", newName)
		}
		if indexOf(headers, newName) >= 0 {
			return errs.Conflict("column %q already exists", newName)
		}
		if err := s.store.UpdateCell(ctx, name, 1, idx, newName); err != nil {
			return errs.Upstream(err, "write header cell")
		}
	}
	if declaration != "" {
		if err := s.store.UpdateCell(ctx, name, 2, idx, declaration); err != nil {
			return errs.Upstream(err, "write type cell")
		}
	}
	return nil
}

// DeleteColumn clears a column's header and type cells in place; the column
// position is never removed, mirroring the clear-not-delete row semantics.
func (s *Service) DeleteColumn(ctx context.Context, id *acl.Identity, name, column string) error {
	_, headers, err := s.columnChangeContext(ctx, id, name)
	if err != nil {
		return err
	}

	if sheetstore.IsSystemColumn(column) {
		return errs.Validation("column %q is a protected system column", column)
	}
	idx := indexOf(headers, column)
	if idx < 0 {
		return errs.NotFound("column %q not found", column)
	}

	if err := s.store.UpdateCell(ctx, name, 1, idx, ""); err != nil {
		return errs.Upstream(err, "clear header cell")
	}
	if err := s.store.UpdateCell(ctx, name, 2, idx, ""); err != nil {
		return errs.Upstream(err, "clear type cell")
	}
	return nil
}

// columnChangeContext loads the sheet config, checks the column policy and
// returns the current header row.
func (s *Service) columnChangeContext(ctx context.Context, id *acl.Identity, name string) (*Config, []string, error) {
	cfg, err := s.Lookup(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if d := acl.CanModifyColumns(id, cfg.Columns); !d.Allowed {
		if d.Reason == acl.ReasonAuthRequired {
			return nil, nil, errs.Authentication("column change denied: %s", d.Reason)
		}
		return nil, nil, errs.Permission("column changes are not permitted")
	}

	headers, err := s.store.GetHeaderRow(ctx, name)
	if err != nil {
		return nil, nil, errs.Upstream(err, "read header row of %q", name)
	}
	return cfg, headers, nil
}

func indexOf(headers []string, name string) int {
	for i, header := range headers {
		if header == name {
			return i
		}
	}
	return -1
}
