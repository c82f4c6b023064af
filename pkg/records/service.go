package records

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/celldb/celldb/pkg/acl"
	"github.com/celldb/celldb/pkg/errs"
	"github.com/celldb/celldb/pkg/query"
	"github.com/celldb/celldb/pkg/schema"
	"github.com/celldb/celldb/pkg/sheets"
	"github.com/celldb/celldb/pkg/sheetstore"
)

// Service orchestrates permission checks, schema validation and the query
// pipeline for row data.
type Service struct {
	store  sheetstore.Store
	sheets *sheets.Service
}

// NewService creates a record service.
func NewService(store sheetstore.Store, sheetSvc *sheets.Service) *Service {
	return &Service{store: store, sheets: sheetSvc}
}

// row is one live (non-tombstone) data row.
type row struct {
	record   map[string]interface{}
	rowIndex int
}

// List returns the rows of a sheet after running the listing pipeline.
// Read access is decided on the sheet's ACL.
func (s *Service) List(ctx context.Context, id *acl.Identity, sheet string, opts query.Options) (query.Result, error) {
	cfg, err := s.lookupSheet(ctx, sheet)
	if err != nil {
		return query.Result{}, err
	}
	if d := acl.CanRead(id, cfg.ACL); !d.Allowed {
		return query.Result{}, readDenied(d)
	}

	_, rows, err := s.loadRows(ctx, sheet)
	if err != nil {
		return query.Result{}, err
	}

	live := make([]map[string]interface{}, 0, len(rows))
	for _, r := range rows {
		live = append(live, r.record)
	}
	return query.Apply(live, opts), nil
}

// Get returns a single row by id. Read access is decided on the sheet's
// ACL, same as listing.
func (s *Service) Get(ctx context.Context, id *acl.Identity, sheet, rowID string) (map[string]interface{}, error) {
	cfg, err := s.lookupSheet(ctx, sheet)
	if err != nil {
		return nil, err
	}
	if d := acl.CanRead(id, cfg.ACL); !d.Allowed {
		return nil, readDenied(d)
	}

	_, r, err := s.findRow(ctx, sheet, rowID)
	if err != nil {
		return nil, err
	}
	return r.record, nil
}

// Create appends a new row. The payload must not carry the server-generated
// fields, every key must be a declared column, and every value must pass its
// column schema. The created row is echoed back only when the caller also
// holds read access to the sheet; a write-without-read capability is honored
// by hiding the created content, not by refusing the write.
func (s *Service) Create(ctx context.Context, id *acl.Identity, sheet string, payload map[string]interface{}) (map[string]interface{}, error) {
	cfg, err := s.lookupSheet(ctx, sheet)
	if err != nil {
		return nil, err
	}
	if d := acl.CanWriteSheetData(id, cfg.ACL); !d.Allowed {
		return nil, writeDenied(d)
	}

	// Generated fields are rejected outright on create, unlike update.
	for _, generated := range []string{sheetstore.ColID, sheetstore.ColCreatedAt, sheetstore.ColUpdatedAt} {
		if _, ok := payload[generated]; ok {
			return nil, errs.Validation("field %q is server-generated and cannot be set", generated)
		}
	}

	snap, rows, err := s.loadRows(ctx, sheet)
	if err != nil {
		return nil, err
	}

	record := make(map[string]interface{}, len(payload)+3)
	for key, value := range payload {
		record[key] = value
	}
	applyDefaults(snap, record)
	if err := s.validatePayload(snap, record, rows, ""); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	record[sheetstore.ColID] = uuid.NewString()
	record[sheetstore.ColCreatedAt] = now
	record[sheetstore.ColUpdatedAt] = now

	if id != nil {
		if record[sheetstore.ColUserRead] == nil || record[sheetstore.ColUserRead] == "" {
			record[sheetstore.ColUserRead] = []string{id.UserID}
		}
		if record[sheetstore.ColUserWrite] == nil || record[sheetstore.ColUserWrite] == "" {
			record[sheetstore.ColUserWrite] = []string{id.UserID}
		}
	}

	if err := s.store.AppendRow(ctx, sheet, snap.Encode(record)); err != nil {
		return nil, errs.Upstream(err, "append row to %q", sheet)
	}

	if !acl.CanRead(id, cfg.ACL).Allowed {
		return map[string]interface{}{}, nil
	}
	return record, nil
}

// Update merges a patch over an existing row. The server-generated fields
// are silently stripped from the patch rather than rejected; updated_at is
// refreshed. Write access is decided on the row's own ACL, not the sheet's.
func (s *Service) Update(ctx context.Context, id *acl.Identity, sheet, rowID string, patch map[string]interface{}) (map[string]interface{}, error) {
	if _, err := s.lookupSheet(ctx, sheet); err != nil {
		return nil, err
	}

	snap, target, err := s.findRow(ctx, sheet, rowID)
	if err != nil {
		return nil, err
	}
	if d := acl.CanWrite(id, sheetstore.DecodeACL(target.record)); !d.Allowed {
		return nil, writeDenied(d)
	}

	delete(patch, sheetstore.ColID)
	delete(patch, sheetstore.ColCreatedAt)
	delete(patch, sheetstore.ColUpdatedAt)

	_, rows, err := s.loadRows(ctx, sheet)
	if err != nil {
		return nil, err
	}
	if err := s.validatePayload(snap, patch, rows, rowID); err != nil {
		return nil, err
	}

	for key, value := range patch {
		target.record[key] = value
	}
	target.record[sheetstore.ColUpdatedAt] = time.Now().UTC().Format(time.RFC3339)

	if err := s.store.OverwriteRow(ctx, sheet, target.rowIndex, snap.Encode(target.record)); err != nil {
		return nil, errs.Upstream(err, "overwrite row in %q", sheet)
	}
	return target.record, nil
}

// Delete clears every cell of the row in place. The position survives, so a
// second delete of the same id reports not found while leaving the sheet's
// row count unchanged.
func (s *Service) Delete(ctx context.Context, id *acl.Identity, sheet, rowID string) error {
	if _, err := s.lookupSheet(ctx, sheet); err != nil {
		return err
	}

	snap, target, err := s.findRow(ctx, sheet, rowID)
	if err != nil {
		return err
	}
	if d := acl.CanWrite(id, sheetstore.DecodeACL(target.record)); !d.Allowed {
		return writeDenied(d)
	}

	if err := s.store.OverwriteRow(ctx, sheet, target.rowIndex, snap.EmptyRow()); err != nil {
		return errs.Upstream(err, "clear row in %q", sheet)
	}
	return nil
}

// validatePayload checks column existence, per-field schema validity
// (failing fast on the first invalid field) and unique constraints.
// excludeID skips the row being updated in unique scans.
func (s *Service) validatePayload(snap *sheetstore.Snapshot, payload map[string]interface{}, rows []row, excludeID string) error {
	for _, name := range snap.Headers {
		if name == "" || !snap.Column(name).Required {
			continue
		}
		if sheetstore.IsSystemColumn(name) {
			continue
		}
		if excludeID != "" {
			continue // updates only validate supplied fields
		}
		if value, ok := payload[name]; !ok || value == nil || value == "" {
			return errs.Validation("field %q: value is required", name)
		}
	}

	for key, value := range payload {
		if !snap.HasColumn(key) {
			return errs.Validation("unknown column %q", key)
		}
		if err := schema.Validate(value, snap.Column(key)); err != nil {
			return errs.Validation("field %q: %v", key, err)
		}
	}

	for key, value := range payload {
		col := snap.Column(key)
		if !col.Unique {
			continue
		}
		encoded := sheetstore.EncodeCell(value)
		if encoded == "" {
			continue
		}
		for _, r := range rows {
			if excludeID != "" && r.record[sheetstore.ColID] == excludeID {
				continue
			}
			if sheetstore.EncodeCell(r.record[key]) == encoded {
				return errs.Conflict("value for unique column %q already exists", key)
			}
		}
	}
	return nil
}

// applyDefaults fills declared defaults for columns absent from the record.
func applyDefaults(snap *sheetstore.Snapshot, record map[string]interface{}) {
	for name, col := range snap.Columns {
		if col.Default == nil || sheetstore.IsSystemColumn(name) {
			continue
		}
		if value, ok := record[name]; !ok || value == nil || value == "" {
			record[name] = col.Default
		}
	}
}

func (s *Service) lookupSheet(ctx context.Context, sheet string) (*sheets.Config, error) {
	if sheets.IsReservedTitle(sheet) {
		return nil, errs.NotFound("sheet %q not found", sheet)
	}
	return s.sheets.Lookup(ctx, sheet)
}

// loadRows returns the live rows of a sheet with their absolute row
// numbers. Tombstones are skipped but keep occupying their positions.
func (s *Service) loadRows(ctx context.Context, sheet string) (*sheetstore.Snapshot, []row, error) {
	snap, err := sheetstore.LoadSnapshot(ctx, s.store, sheet)
	if err != nil {
		return nil, nil, errs.Upstream(err, "load sheet %q", sheet)
	}
	raw, err := s.store.GetAllRows(ctx, sheet)
	if err != nil {
		return nil, nil, errs.Upstream(err, "read sheet %q", sheet)
	}

	rows := make([]row, 0, len(raw))
	for i, values := range raw {
		record := snap.Decode(values)
		if rowID, _ := record[sheetstore.ColID].(string); rowID == "" {
			continue // tombstone
		}
		rows = append(rows, row{record: record, rowIndex: i + 3})
	}
	return snap, rows, nil
}

func (s *Service) findRow(ctx context.Context, sheet, rowID string) (*sheetstore.Snapshot, *row, error) {
	snap, rows, err := s.loadRows(ctx, sheet)
	if err != nil {
		return nil, nil, err
	}
	for i := range rows {
		if rows[i].record[sheetstore.ColID] == rowID {
			return snap, &rows[i], nil
		}
	}
	return nil, nil, errs.NotFound("row %q not found", rowID)
}

func readDenied(d acl.Decision) error {
	if d.Reason == acl.ReasonAuthRequired {
		return errs.Authentication("read denied: %s", d.Reason)
	}
	return errs.Permission("read access denied")
}

func writeDenied(d acl.Decision) error {
	if d.Reason == acl.ReasonAuthRequired {
		return errs.Authentication("write denied: %s", d.Reason)
	}
	return errs.Permission("write access denied")
}
