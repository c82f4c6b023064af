package sheets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celldb/celldb/pkg/acl"
	"github.com/celldb/celldb/pkg/errs"
	"github.com/celldb/celldb/pkg/sheetstore"
)

func boolPtr(b bool) *bool { return &b }

func newService(t *testing.T) (context.Context, *Service, sheetstore.Store) {
	t.Helper()
	ctx := context.Background()
	store := sheetstore.NewMemoryStore()
	svc := NewService(store)
	require.NoError(t, svc.EnsureConfigSheet(ctx))
	require.NoError(t, svc.EnsureConfigSheet(ctx), "ensure is idempotent")
	return ctx, svc, store
}

func TestCreateSheet(t *testing.T) {
	ctx, svc, store := newService(t)
	alice := &acl.Identity{UserID: "alice"}

	record, err := svc.Create(ctx, alice, "widgets", acl.ACL{}, acl.ColumnPolicy{})
	require.NoError(t, err)
	assert.NotEmpty(t, record[sheetstore.ColID])
	assert.Equal(t, []string{"alice"}, record[sheetstore.ColUserRead], "creator seeded as owner")
	assert.Equal(t, []string{"alice"}, record[sheetstore.ColUserWrite])

	// The data tab exists and carries the system columns.
	headers, err := store.GetHeaderRow(ctx, "widgets")
	require.NoError(t, err)
	assert.Equal(t, sheetstore.SystemColumns, headers)

	cfg, err := svc.Lookup(ctx, "widgets")
	require.NoError(t, err)
	assert.Equal(t, "widgets", cfg.Name)
}

func TestCreateSheetRejections(t *testing.T) {
	ctx, svc, _ := newService(t)
	alice := &acl.Identity{UserID: "alice"}

	_, err := svc.Create(ctx, nil, "widgets", acl.ACL{}, acl.ColumnPolicy{})
	assert.True(t, errs.IsAuthentication(err))

	_, err = svc.Create(ctx, alice, "", acl.ACL{}, acl.ColumnPolicy{})
	assert.True(t, errs.IsValidation(err))

	for _, reserved := range []string{"sheets", "roles", "users"} {
		_, err = svc.Create(ctx, alice, reserved, acl.ACL{}, acl.ColumnPolicy{})
		assert.True(t, errs.IsValidation(err), reserved)
	}

	_, err = svc.Create(ctx, alice, "widgets", acl.ACL{}, acl.ColumnPolicy{})
	require.NoError(t, err)
	_, err = svc.Create(ctx, alice, "widgets", acl.ACL{}, acl.ColumnPolicy{})
	assert.True(t, errs.IsConflict(err))
}

func TestListVisibility(t *testing.T) {
	ctx, svc, _ := newService(t)
	alice := &acl.Identity{UserID: "alice"}
	bob := &acl.Identity{UserID: "bob"}

	_, err := svc.Create(ctx, alice, "open", acl.ACL{PublicRead: boolPtr(true)}, acl.ColumnPolicy{})
	require.NoError(t, err)
	_, err = svc.Create(ctx, alice, "private", acl.ACL{}, acl.ColumnPolicy{})
	require.NoError(t, err)

	names := func(records []map[string]interface{}) []string {
		out := make([]string, 0, len(records))
		for _, r := range records {
			name, _ := r[colName].(string)
			out = append(out, name)
		}
		return out
	}

	visible, err := svc.List(ctx, alice)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"open", "private"}, names(visible))

	visible, err = svc.List(ctx, bob)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"open"}, names(visible))

	visible, err = svc.List(ctx, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"open"}, names(visible))
}

func TestUpdateSheet(t *testing.T) {
	ctx, svc, store := newService(t)
	alice := &acl.Identity{UserID: "alice"}

	created, err := svc.Create(ctx, alice, "widgets", acl.ACL{}, acl.ColumnPolicy{})
	require.NoError(t, err)

	_, err = svc.Update(ctx, alice, "widgets", map[string]interface{}{"bogus": true})
	assert.True(t, errs.IsValidation(err))

	// sheet_id is immutable and silently dropped from the patch.
	updated, err := svc.Update(ctx, alice, "widgets", map[string]interface{}{
		"sheet_id": float64(999),
		"name":     "gadgets",
	})
	require.NoError(t, err)
	assert.Equal(t, created[colSheetID], updated[colSheetID])

	// The data tab was retitled along with the configuration row.
	metas, err := store.GetSheetMetadata(ctx)
	require.NoError(t, err)
	titles := make([]string, 0, len(metas))
	for _, meta := range metas {
		titles = append(titles, meta.Title)
	}
	assert.Contains(t, titles, "gadgets")
	assert.NotContains(t, titles, "widgets")

	_, err = svc.Lookup(ctx, "widgets")
	assert.True(t, errs.IsNotFound(err))
	_, err = svc.Lookup(ctx, "gadgets")
	require.NoError(t, err)
}

func TestUpdateSheetPermissions(t *testing.T) {
	ctx, svc, _ := newService(t)
	alice := &acl.Identity{UserID: "alice"}
	bob := &acl.Identity{UserID: "bob"}

	_, err := svc.Create(ctx, alice, "widgets", acl.ACL{}, acl.ColumnPolicy{})
	require.NoError(t, err)

	_, err = svc.Update(ctx, bob, "widgets", map[string]interface{}{"name": "x"})
	assert.True(t, errs.IsPermission(err))
	_, err = svc.Update(ctx, nil, "widgets", map[string]interface{}{"name": "x"})
	assert.True(t, errs.IsAuthentication(err))
}

func TestDeleteSheet(t *testing.T) {
	ctx, svc, store := newService(t)
	alice := &acl.Identity{UserID: "alice"}

	_, err := svc.Create(ctx, alice, "widgets", acl.ACL{}, acl.ColumnPolicy{})
	require.NoError(t, err)

	before, err := store.GetAllRows(ctx, ConfigSheet)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, alice, "widgets"))

	after, err := store.GetAllRows(ctx, ConfigSheet)
	require.NoError(t, err)
	assert.Len(t, after, len(before), "configuration row is cleared, not removed")

	_, err = svc.Lookup(ctx, "widgets")
	assert.True(t, errs.IsNotFound(err))

	err = svc.Delete(ctx, alice, "widgets")
	assert.True(t, errs.IsNotFound(err))
}

func newColumnFixture(t *testing.T) (context.Context, *Service, sheetstore.Store) {
	t.Helper()
	ctx, svc, store := newService(t)
	alice := &acl.Identity{UserID: "alice"}
	_, err := svc.Create(ctx, alice, "widgets", acl.ACL{}, acl.ColumnPolicy{
		Enabled:      true,
		AllowedUsers: []string{"alice"},
	})
	require.NoError(t, err)
	return ctx, svc, store
}

func TestAddColumn(t *testing.T) {
	ctx, svc, _ := newColumnFixture(t)
	alice := &acl.Identity{UserID: "alice"}

	require.NoError(t, svc.AddColumn(ctx, alice, "widgets", "color", "string"))

	err := svc.AddColumn(ctx, alice, "widgets", "color", "string")
	assert.True(t, errs.IsConflict(err))
	err = svc.AddColumn(ctx, alice, "widgets", "id", "string")
	assert.True(t, errs.IsValidation(err), "system columns are protected")
	err = svc.AddColumn(ctx, alice, "widgets", "", "string")
	assert.True(t, errs.IsValidation(err))

	columns, err := svc.ListColumns(ctx, alice, "widgets")
	require.NoError(t, err)
	last := columns[len(columns)-1]
	assert.Equal(t, "color", last.Name)
	assert.False(t, last.System)
}

func TestUpdateColumn(t *testing.T) {
	ctx, svc, store := newColumnFixture(t)
	alice := &acl.Identity{UserID: "alice"}

	require.NoError(t, svc.AddColumn(ctx, alice, "widgets", "color", "string"))
	require.NoError(t, svc.UpdateColumn(ctx, alice, "widgets", "color", "hue", `{"type":"string","required":true}`))

	headers, err := store.GetHeaderRow(ctx, "widgets")
	require.NoError(t, err)
	assert.Contains(t, headers, "hue")
	assert.NotContains(t, headers, "color")

	err = svc.UpdateColumn(ctx, alice, "widgets", "missing", "", "number")
	assert.True(t, errs.IsNotFound(err))
	err = svc.UpdateColumn(ctx, alice, "widgets", "created_at", "", "string")
	assert.True(t, errs.IsValidation(err))
}

func TestDeleteColumnClearsInPlace(t *testing.T) {
	ctx, svc, store := newColumnFixture(t)
	alice := &acl.Identity{UserID: "alice"}

	require.NoError(t, svc.AddColumn(ctx, alice, "widgets", "color", "string"))
	require.NoError(t, svc.AddColumn(ctx, alice, "widgets", "size", "number"))

	before, err := store.GetHeaderRow(ctx, "widgets")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteColumn(ctx, alice, "widgets", "color"))

	after, err := store.GetHeaderRow(ctx, "widgets")
	require.NoError(t, err)
	assert.Len(t, after, len(before), "column position survives deletion")
	assert.NotContains(t, after, "color")
	assert.Contains(t, after, "size")

	columns, err := svc.ListColumns(ctx, alice, "widgets")
	require.NoError(t, err)
	for _, col := range columns {
		assert.NotEqual(t, "color", col.Name)
	}
}

func TestColumnPolicy(t *testing.T) {
	ctx, svc, _ := newColumnFixture(t)
	alice := &acl.Identity{UserID: "alice"}
	bob := &acl.Identity{UserID: "bob"}

	err := svc.AddColumn(ctx, bob, "widgets", "color", "string")
	assert.True(t, errs.IsPermission(err))
	err = svc.AddColumn(ctx, nil, "widgets", "color", "string")
	assert.True(t, errs.IsAuthentication(err))

	// A sheet without the policy flag denies everyone, its owner included.
	_, err = svc.Create(ctx, alice, "locked", acl.ACL{}, acl.ColumnPolicy{})
	require.NoError(t, err)
	err = svc.AddColumn(ctx, alice, "locked", "color", "string")
	assert.True(t, errs.IsPermission(err))
}
