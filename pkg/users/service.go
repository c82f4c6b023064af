package users

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/celldb/celldb/pkg/acl"
	"github.com/celldb/celldb/pkg/errs"
	"github.com/celldb/celldb/pkg/sheetstore"
)

// SheetTitle is the reserved tab holding the user directory.
const SheetTitle = "users"

const (
	colName  = "name"
	colEmail = "email"
	colRoles = "roles"
)

var userHeaders = []string{
	sheetstore.ColID, colName, colEmail, colRoles,
	sheetstore.ColCreatedAt, sheetstore.ColUpdatedAt,
	sheetstore.ColPublicRead, sheetstore.ColPublicWrite,
	sheetstore.ColRoleRead, sheetstore.ColRoleWrite,
	sheetstore.ColUserRead, sheetstore.ColUserWrite,
}

var userTypes = []string{
	"string", `{"type":"string","required":true}`, "string", "array",
	"datetime", "datetime",
	"boolean", "boolean",
	"array", "array",
	"array", "array",
}

type entry struct {
	record   map[string]interface{}
	rowIndex int
	acl      acl.ACL
}

// Service manages user entities.
type Service struct {
	store sheetstore.Store
}

// NewService creates a user service over the given row store.
func NewService(store sheetstore.Store) *Service {
	return &Service{store: store}
}

// EnsureSheet creates the reserved users tab if it does not exist yet.
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
	if _, err := s.store.AddSheet(ctx, SheetTitle, userHeaders, userTypes); err != nil {
		return errs.Upstream(err, "create users sheet")
	}
	return nil
}

// List returns all user records readable by the caller.
func (s *Service) List(ctx context.Context, id *acl.Identity) ([]map[string]interface{}, error) {
	entries, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		if acl.CanRead(id, e.acl).Allowed {
			out = append(out, e.record)
		}
	}
	return out, nil
}

// Get returns one user record by id.
func (s *Service) Get(ctx context.Context, id *acl.Identity, userID string) (map[string]interface{}, error) {
	e, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if d := acl.CanRead(id, e.acl); !d.Allowed {
		return nil, denied(d, "read")
	}
	return e.record, nil
}

// Create registers a user. The new user owns their row: unless the supplied
// ACL says otherwise, user_read and user_write default to the new id.
func (s *Service) Create(ctx context.Context, name, email string, roleNames []string, a acl.ACL) (map[string]interface{}, error) {
	if name == "" {
		return nil, errs.Validation("user name is required")
	}

	userID := uuid.NewString()
	if a.UserRead == nil {
		a.UserRead = []string{userID}
	}
	if a.UserWrite == nil {
		a.UserWrite = []string{userID}
	}
	if roleNames == nil {
		roleNames = []string{}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	record := map[string]interface{}{
		sheetstore.ColID:        userID,
		colName:                 name,
		colEmail:                email,
		colRoles:                roleNames,
		sheetstore.ColCreatedAt: now,
		sheetstore.ColUpdatedAt: now,
	}
	sheetstore.EncodeACL(a, record)

	snap, err := sheetstore.LoadSnapshot(ctx, s.store, SheetTitle)
	if err != nil {
		return nil, errs.Upstream(err, "load users sheet")
	}
	if err := s.store.AppendRow(ctx, SheetTitle, snap.Encode(record)); err != nil {
		return nil, errs.Upstream(err, "append user row")
	}
	return record, nil
}

// Update patches a user record.
func (s *Service) Update(ctx context.Context, id *acl.Identity, userID string, patch map[string]interface{}) (map[string]interface{}, error) {
	e, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if d := acl.CanWrite(id, e.acl); !d.Allowed {
		return nil, denied(d, "write")
	}

	snap, err := sheetstore.LoadSnapshot(ctx, s.store, SheetTitle)
	if err != nil {
		return nil, errs.Upstream(err, "load users sheet")
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

	for key, value := range patch {
		e.record[key] = value
	}
	e.record[sheetstore.ColUpdatedAt] = time.Now().UTC().Format(time.RFC3339)

	if err := s.store.OverwriteRow(ctx, SheetTitle, e.rowIndex, snap.Encode(e.record)); err != nil {
		return nil, errs.Upstream(err, "write user row")
	}
	return e.record, nil
}

// Delete clears the user's row in place.
func (s *Service) Delete(ctx context.Context, id *acl.Identity, userID string) error {
	e, err := s.find(ctx, userID)
	if err != nil {
		return err
	}
	if d := acl.CanWrite(id, e.acl); !d.Allowed {
		return denied(d, "write")
	}

	snap, err := sheetstore.LoadSnapshot(ctx, s.store, SheetTitle)
	if err != nil {
		return errs.Upstream(err, "load users sheet")
	}
	if err := s.store.OverwriteRow(ctx, SheetTitle, e.rowIndex, snap.EmptyRow()); err != nil {
		return errs.Upstream(err, "clear user row")
	}
	return nil
}

// RolesForUser resolves the role set attached to a user id. Unknown users
// resolve to an empty role set rather than an error, so a stale session
// cannot take authentication down with it.
func (s *Service) RolesForUser(ctx context.Context, userID string) ([]string, error) {
	e, err := s.find(ctx, userID)
	if errs.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	switch v := e.record[colRoles].(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out, nil
	}
	return nil, nil
}

// Exists reports whether a live user row carries the given id.
func (s *Service) Exists(ctx context.Context, userID string) (bool, error) {
	_, err := s.find(ctx, userID)
	if errs.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) find(ctx context.Context, userID string) (*entry, error) {
	entries, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.record[sheetstore.ColID] == userID {
			return e, nil
		}
	}
	return nil, errs.NotFound("user %q not found", userID)
}

func (s *Service) loadAll(ctx context.Context) ([]*entry, error) {
	snap, err := sheetstore.LoadSnapshot(ctx, s.store, SheetTitle)
	if err != nil {
		return nil, errs.Upstream(err, "load users sheet")
	}
	rows, err := s.store.GetAllRows(ctx, SheetTitle)
	if err != nil {
		return nil, errs.Upstream(err, "read users sheet")
	}

	entries := make([]*entry, 0, len(rows))
	for i, row := range rows {
		record := snap.Decode(row)
		rowID, _ := record[sheetstore.ColID].(string)
		if rowID == "" {
			continue // tombstone
		}
		entries = append(entries, &entry{
			record:   record,
			rowIndex: i + 3,
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
