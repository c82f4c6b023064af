package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/celldb/celldb/pkg/acl"
	"github.com/celldb/celldb/pkg/errs"
	"github.com/celldb/celldb/pkg/sheetstore"
)

// ConfigSheet is the reserved tab holding one configuration row per managed
// sheet.
const ConfigSheet = "sheets"

// Reserved tab titles that can never be used for data sheets.
var reservedTitles = map[string]bool{
	ConfigSheet: true,
	"roles":     true,
	"users":     true,
}

// IsReservedTitle reports whether title names a system tab.
func IsReservedTitle(title string) bool {
	return reservedTitles[title]
}

// Columns of the configuration sheet beyond the shared system columns.
const (
	colName         = "name"
	colSheetID      = "sheet_id"
	colAllowColumns = "allow_column_changes"
	colColumnUsers  = "column_change_users"
	colColumnRoles  = "column_change_roles"
)

var configHeaders = []string{
	sheetstore.ColID, colName, colSheetID,
	sheetstore.ColCreatedAt, sheetstore.ColUpdatedAt,
	sheetstore.ColPublicRead, sheetstore.ColPublicWrite,
	sheetstore.ColRoleRead, sheetstore.ColRoleWrite,
	sheetstore.ColUserRead, sheetstore.ColUserWrite,
	colAllowColumns, colColumnUsers, colColumnRoles,
}

var configTypes = []string{
	"string", `{"type":"string","required":true,"unique":true}`, "number",
	"datetime", "datetime",
	"boolean", "boolean",
	"array", "array",
	"array", "array",
	"boolean", "array", "array",
}

// Config is the resolved configuration of one managed sheet.
type Config struct {
	Record   map[string]interface{}
	RowIndex int
	Name     string
	SheetID  int64
	ACL      acl.ACL
	Columns  acl.ColumnPolicy
}

// Service manages sheet configuration and column layout.
type Service struct {
	store sheetstore.Store
}

// NewService creates a sheet service over the given row store.
func NewService(store sheetstore.Store) *Service {
	return &Service{store: store}
}

// EnsureConfigSheet creates the reserved configuration tab if it does not
// exist yet.
func (s *Service) EnsureConfigSheet(ctx context.Context) error {
	metas, err := s.store.GetSheetMetadata(ctx)
	if err != nil {
		return errs.Upstream(err, "list sheet tabs")
	}
	for _, meta := range metas {
		if meta.Title == ConfigSheet {
			return nil
		}
	}
	if _, err := s.store.AddSheet(ctx, ConfigSheet, configHeaders, configTypes); err != nil {
		return errs.Upstream(err, "create configuration sheet")
	}
	return nil
}

// List returns the configuration records of all sheets readable by the
// caller.
func (s *Service) List(ctx context.Context, id *acl.Identity) ([]map[string]interface{}, error) {
	configs, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	visible := make([]map[string]interface{}, 0, len(configs))
	for _, cfg := range configs {
		if acl.CanRead(id, cfg.ACL).Allowed {
			visible = append(visible, cfg.Record)
		}
	}
	return visible, nil
}

// Get returns one sheet's configuration record.
func (s *Service) Get(ctx context.Context, id *acl.Identity, name string) (map[string]interface{}, error) {
	cfg, err := s.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if d := acl.CanRead(id, cfg.ACL); !d.Allowed {
		return nil, readDenied(d)
	}
	return cfg.Record, nil
}

// Create registers a new sheet: it creates the data tab with the reserved
// system columns and appends a configuration row. The creator is seeded into
// user_read and user_write unless the payload sets them explicitly.
func (s *Service) Create(ctx context.Context, id *acl.Identity, name string, a acl.ACL, policy acl.ColumnPolicy) (map[string]interface{}, error) {
	if id == nil {
		return nil, errs.Authentication("authentication required to create a sheet")
	}
	if name == "" {
		return nil, errs.Validation("sheet name is required")
	}
	if IsReservedTitle(name) {
		return nil, errs.Validation("sheet name %q is reserved", name)
	}

	metas, err := s.store.GetSheetMetadata(ctx)
	if err != nil {
		return nil, errs.Upstream(err, "list sheet tabs")
	}
	for _, meta := range metas {
		if meta.Title == name {
			return nil, errs.Conflict("sheet %q already exists", name)
		}
	}

	info, err := s.store.AddSheet(ctx, name, sheetstore.SystemColumns, sheetstore.SystemColumnTypes)
	if err != nil {
		return nil, errs.Upstream(err, "create sheet tab %q", name)
	}

	if a.UserRead == nil {
		a.UserRead = []string{id.UserID}
	}
	if a.UserWrite == nil {
		a.UserWrite = []string{id.UserID}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	record := map[string]interface{}{
		sheetstore.ColID:        uuid.NewString(),
		colName:                 name,
		colSheetID:              float64(info.SheetID),
		sheetstore.ColCreatedAt: now,
		sheetstore.ColUpdatedAt: now,
		colAllowColumns:         policy.Enabled,
		colColumnUsers:          encodeList(policy.AllowedUsers),
		colColumnRoles:          encodeList(policy.AllowedRoles),
	}
	sheetstore.EncodeACL(a, record)

	snap, err := sheetstore.LoadSnapshot(ctx, s.store, ConfigSheet)
	if err != nil {
		return nil, errs.Upstream(err, "load configuration sheet")
	}
	if err := s.store.AppendRow(ctx, ConfigSheet, snap.Encode(record)); err != nil {
		return nil, errs.Upstream(err, "append sheet configuration")
	}
	return record, nil
}

// Update mutates a sheet's configuration. A rename re-checks title
// uniqueness and retitles the data tab; the numeric sheet id is immutable.
func (s *Service) Update(ctx context.Context, id *acl.Identity, name string, patch map[string]interface{}) (map[string]interface{}, error) {
	cfg, err := s.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if d := acl.CanWrite(id, cfg.ACL); !d.Allowed {
		return nil, writeDenied(d)
	}

	snap, err := sheetstore.LoadSnapshot(ctx, s.store, ConfigSheet)
	if err != nil {
		return nil, errs.Upstream(err, "load configuration sheet")
	}

	for key := range patch {
		switch key {
		case sheetstore.ColID, sheetstore.ColCreatedAt, sheetstore.ColUpdatedAt, colSheetID:
			delete(patch, key)
		default:
			if !snap.HasColumn(key) {
				return nil, errs.Validation("unknown field %q", key)
			}
		}
	}

	if raw, ok := patch[colName]; ok {
		newName, _ := raw.(string)
		if newName == "" {
			return nil, errs.Validation("sheet name is required")
		}
		if newName != cfg.Name {
			if IsReservedTitle(newName) {
				return nil, errs.Validation("sheet name %q is reserved", newName)
			}
			metas, err := s.store.GetSheetMetadata(ctx)
			if err != nil {
				return nil, errs.Upstream(err, "list sheet tabs")
			}
			for _, meta := range metas {
				if meta.Title == newName {
					return nil, errs.Conflict("sheet %q already exists", newName)
				}
			}
			if err := s.store.RenameSheet(ctx, cfg.SheetID, newName); err != nil {
				return nil, errs.Upstream(err, "rename sheet tab")
			}
		}
	}

	for key, value := range patch {
		cfg.Record[key] = value
	}
	cfg.Record[sheetstore.ColUpdatedAt] = time.Now().UTC().Format(time.RFC3339)

	if err := s.store.OverwriteRow(ctx, ConfigSheet, cfg.RowIndex, snap.Encode(cfg.Record)); err != nil {
		return nil, errs.Upstream(err, "write sheet configuration")
	}
	return cfg.Record, nil
}

// Delete clears a sheet's configuration row in place. The data tab is left
// as-is; without a configuration row the sheet is no longer served.
func (s *Service) Delete(ctx context.Context, id *acl.Identity, name string) error {
	cfg, err := s.Lookup(ctx, name)
	if err != nil {
		return err
	}
	if d := acl.CanWrite(id, cfg.ACL); !d.Allowed {
		return writeDenied(d)
	}

	snap, err := sheetstore.LoadSnapshot(ctx, s.store, ConfigSheet)
	if err != nil {
		return errs.Upstream(err, "load configuration sheet")
	}
	if err := s.store.OverwriteRow(ctx, ConfigSheet, cfg.RowIndex, snap.EmptyRow()); err != nil {
		return errs.Upstream(err, "clear sheet configuration")
	}
	return nil
}

// Lookup resolves a managed sheet by name. Tombstoned configuration rows are
// reported as not found.
func (s *Service) Lookup(ctx context.Context, name string) (*Config, error) {
	configs, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, cfg := range configs {
		if cfg.Name == name {
			return cfg, nil
		}
	}
	return nil, errs.NotFound("sheet %q not found", name)
}

func (s *Service) loadAll(ctx context.Context) ([]*Config, error) {
	snap, err := sheetstore.LoadSnapshot(ctx, s.store, ConfigSheet)
	if err != nil {
		return nil, errs.Upstream(err, "load configuration sheet")
	}
	rows, err := s.store.GetAllRows(ctx, ConfigSheet)
	if err != nil {
		return nil, errs.Upstream(err, "read configuration sheet")
	}

	configs := make([]*Config, 0, len(rows))
	for i, row := range rows {
		record := snap.Decode(row)
		rowID, _ := record[sheetstore.ColID].(string)
		if rowID == "" {
			continue // tombstone
		}
		name, _ := record[colName].(string)
		configs = append(configs, &Config{
			Record:   record,
			RowIndex: i + 3,
			Name:     name,
			SheetID:  int64(numberField(record[colSheetID])),
			ACL:      sheetstore.DecodeACL(record),
			Columns:  decodeColumnPolicy(record),
		})
	}
	return configs, nil
}

func decodeColumnPolicy(record map[string]interface{}) acl.ColumnPolicy {
	enabled, _ := record[colAllowColumns].(bool)
	return acl.ColumnPolicy{
		Enabled:      enabled,
		AllowedUsers: stringList(record[colColumnUsers]),
		AllowedRoles: stringList(record[colColumnRoles]),
	}
}

func stringList(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

func encodeList(list []string) interface{} {
	if list == nil {
		return ""
	}
	return list
}

func numberField(value interface{}) float64 {
	n, _ := value.(float64)
	return n
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
