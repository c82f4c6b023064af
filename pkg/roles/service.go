package roles

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/celldb/celldb/pkg/acl"
	"github.com/celldb/celldb/pkg/errs"
	"github.com/celldb/celldb/pkg/sheetstore"
)

// SheetTitle is the reserved tab holding role entities.
const SheetTitle = "roles"

const colName = "name"

var roleHeaders = []string{
	sheetstore.ColID, colName,
	sheetstore.ColCreatedAt, sheetstore.ColUpdatedAt,
	sheetstore.ColPublicRead, sheetstore.ColPublicWrite,
	sheetstore.ColRoleRead, sheetstore.ColRoleWrite,
	sheetstore.ColUserRead, sheetstore.ColUserWrite,
}

var roleTypes = []string{
	"string", `{"type":"string","required":true,"unique":true}`,
	"datetime", "datetime",
	"boolean", "boolean",
	"array", "array",
	"array", "array",
}

// entry is one decoded role row.
type entry struct {
	record   map[string]interface{}
	rowIndex int
	name     string
	acl      acl.ACL
}

// Service manages role entities.
type Service struct {
	store sheetstore.Store
}

// NewService creates a role service over the given row store.
func NewService(store sheetstore.Store) *Service {
	return &Service{store: store}
}

// EnsureSheet creates the reserved roles tab if it does not exist yet.
func (s *Service) EnsureSheet(ctx context.Context) error {
	metas, err := s.store.GetSheetMetadata(ctx)
	if err != nil {
		return errs.Upstream(err, "list sheet tabs")
	}
	for _, meta := range metas {
		if meta.Title == SheetTitle {
			return nil
		}
	}
	if _, err := s.store.AddSheet(ctx, SheetTitle, roleHeaders, roleTypes); err != nil {
		return errs.Upstream(err, "create roles sheet")
	}
	return nil
}

// List returns all roles visible to the caller, including roles reachable
// transitively through role_read grants.
func (s *Service) List(ctx context.Context, id *acl.Identity) ([]map[string]interface{}, error) {
	entries, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	graph := make([]acl.RoleACL, 0, len(entries))
	for _, e := range entries {
		graph = append(graph, acl.RoleACL{Name: e.name, ACL: e.acl})
	}
	visible := acl.ExpandReadableRoles(id, graph)

	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		if visible[e.name] {
			out = append(out, e.record)
		}
	}
	return out, nil
}

// Get returns a single role by id, applying the direct read decision.
func (s *Service) Get(ctx context.Context, id *acl.Identity, roleID string) (map[string]interface{}, error) {
	e, err := s.find(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if d := acl.CanRead(id, e.acl); !d.Allowed {
		return nil, denied(d, "read")
	}
	return e.record, nil
}

// Create adds a role. The creator is seeded into user_read and user_write
// unless the supplied ACL sets them explicitly.
func (s *Service) Create(ctx context.Context, id *acl.Identity, name string, a acl.ACL) (map[string]interface{}, error) {
	if id == nil {
		return nil, errs.Authentication("authentication required to create a role")
	}
	if name == "" {
		return nil, errs.Validation("role name is required")
	}

	entries, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.name == name {
			return nil, errs.Conflict("role %q already exists", name)
		}
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
		sheetstore.ColCreatedAt: now,
		sheetstore.ColUpdatedAt: now,
	}
	sheetstore.EncodeACL(a, record)

	snap, err := sheetstore.LoadSnapshot(ctx, s.store, SheetTitle)
	if err != nil {
		return nil, errs.Upstream(err, "load roles sheet")
	}
	if err := s.store.AppendRow(ctx, SheetTitle, snap.Encode(record)); err != nil {
		return nil, errs.Upstream(err, "append role row")
	}
	return record, nil
}

// Update patches a role. A rename re-checks name uniqueness.
func (s *Service) Update(ctx context.Context, id *acl.Identity, roleID string, patch map[string]interface{}) (map[string]interface{}, error) {
	e, err := s.find(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if d := acl.CanWrite(id, e.acl); !d.Allowed {
		return nil, denied(d, "write")
	}

	snap, err := sheetstore.LoadSnapshot(ctx, s.store, SheetTitle)
	if err != nil {
		return nil, errs.Upstream(err, "load roles sheet")
	}

	for key := range patch {
		switch key {
		case sheetstore.ColID, sheetstore.ColCreatedAt, sheetstore.ColUpdatedAt:
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
			return nil, errs.Validation("role name is required")
		}
		if newName != e.name {
			entries, err := s.loadAll(ctx)
			if err != nil {
				return nil, err
			}
			for _, other := range entries {
				if other.name == newName {
					return nil, errs.Conflict("role %q already exists", newName)
				}
			}
		}
	}

	for key, value := range patch {
		e.record[key] = value
	}
	e.record[sheetstore.ColUpdatedAt] = time.Now().UTC().Format(time.RFC3339)

	if err := s.store.OverwriteRow(ctx, SheetTitle, e.rowIndex, snap.Encode(e.record)); err != nil {
		return nil, errs.Upstream(err, "write role row")
	}
	return e.record, nil
}

// Delete clears the role's row in place; the row position is preserved.
func (s *Service) Delete(ctx context.Context, id *acl.Identity, roleID string) error {
	e, err := s.find(ctx, roleID)
	if err != nil {
		return err
	}
	if d := acl.CanWrite(id, e.acl); !d.Allowed {
		return denied(d, "write")
	}

	snap, err := sheetstore.LoadSnapshot(ctx, s.store, SheetTitle)
	if err != nil {
		return errs.Upstream(err, "load roles sheet")
	}
	if err := s.store.OverwriteRow(ctx, SheetTitle, e.rowIndex, snap.EmptyRow()); err != nil {
		return errs.Upstream(err, "clear role row")
	}
	return nil
}

func (s *Service) find(ctx context.Context, roleID string) (*entry, error) {
	entries, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.record[sheetstore.ColID] == roleID {
			return e, nil
		}
	}
	return nil, errs.NotFound("role %q not found", roleID)
}

func (s *Service) loadAll(ctx context.Context) ([]*entry, error) {
	snap, err := sheetstore.LoadSnapshot(ctx, s.store, SheetTitle)
	if err != nil {
		return nil, errs.Upstream(err, "load roles sheet")
	}
	rows, err := s.store.GetAllRows(ctx, SheetTitle)
	if err != nil {
		return nil, errs.Upstream(err, "read roles sheet")
	}

	entries := make([]*entry, 0, len(rows))
	for i, row := range rows {
		record := snap.Decode(row)
		rowID, _ := record[sheetstore.ColID].(string)
		if rowID == "" {
			continue // tombstone
		}
		name, _ := record[colName].(string)
		entries = append(entries, &entry{
			record:   record,
			rowIndex: i + 3,
			name:     name,
			acl:      sheetstore.DecodeACL(record),
		})
	}
	return entries, nil
}

func denied(d acl.Decision, axis string) error {
	if d.Reason == acl.ReasonAuthRequired {
		return errs.Authentication("%s denied: %s", axis, d.Reason)
	}
	return errs.Permission("%s access denied", axis)
}
