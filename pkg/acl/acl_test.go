package acl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestCanRead(t *testing.T) {
	alice := &Identity{UserID: "alice", Roles: []string{"editor"}}

	tests := []struct {
		name    string
		id      *Identity
		acl     ACL
		allowed bool
		reason  string
	}{
		{
			name:    "public read allows anonymous",
			id:      nil,
			acl:     ACL{PublicRead: boolPtr(true)},
			allowed: true,
		},
		{
			name:   "anonymous denied without public read",
			id:     nil,
			acl:    ACL{UserRead: []string{"alice"}},
			reason: ReasonAuthRequired,
		},
		{
			name:    "user list grants read",
			id:      alice,
			acl:     ACL{UserRead: []string{"bob", "alice"}},
			allowed: true,
		},
		{
			name:    "role intersection grants read",
			id:      alice,
			acl:     ACL{RoleRead: []string{"editor"}},
			allowed: true,
		},
		{
			name:   "no grant denies",
			id:     alice,
			acl:    ACL{UserRead: []string{"bob"}, RoleRead: []string{"admin"}},
			reason: ReasonDenied,
		},
		{
			name:   "explicit public false falls through to lists",
			id:     alice,
			acl:    ACL{PublicRead: boolPtr(false)},
			reason: ReasonDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CanRead(tt.id, tt.acl)
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.Equal(t, tt.reason, d.Reason)
			}
		})
	}
}

// Read and write are computed from disjoint fields: a write grant must never
// leak into a read decision, and vice versa.
func TestReadWriteIndependence(t *testing.T) {
	alice := &Identity{UserID: "alice"}

	writeOnly := ACL{PublicWrite: boolPtr(true)}
	assert.True(t, CanWrite(alice, writeOnly).Allowed)
	assert.False(t, CanRead(alice, writeOnly).Allowed)
	assert.False(t, CanRead(nil, writeOnly).Allowed)

	readOnly := ACL{PublicRead: boolPtr(true)}
	assert.True(t, CanRead(nil, readOnly).Allowed)
	assert.False(t, CanWrite(alice, readOnly).Allowed)

	userWrite := ACL{UserWrite: []string{"alice"}}
	assert.True(t, CanWrite(alice, userWrite).Allowed)
	assert.False(t, CanRead(alice, userWrite).Allowed)
}

// Tri-state behavior table for sheet-level data writes: unset means "fresh
// sheet" (allow), present-but-empty means "locked" (deny), explicit
// public_write=false with empty lists means "any authenticated caller".
func TestCanWriteSheetData(t *testing.T) {
	alice := &Identity{UserID: "alice", Roles: []string{"editor"}}

	tests := []struct {
		name    string
		id      *Identity
		acl     ACL
		allowed bool
		reason  string
	}{
		{
			name:    "all three unset allows anonymous",
			id:      nil,
			acl:     ACL{},
			allowed: true,
		},
		{
			name:    "all three unset allows authenticated",
			id:      alice,
			acl:     ACL{},
			allowed: true,
		},
		{
			name:   "explicitly empty lists deny",
			id:     alice,
			acl:    ACL{RoleWrite: []string{}, UserWrite: []string{}},
			reason: ReasonDenied,
		},
		{
			name:   "explicitly empty user list alone denies",
			id:     alice,
			acl:    ACL{UserWrite: []string{}},
			reason: ReasonDenied,
		},
		{
			name:    "public write true allows anonymous",
			id:      nil,
			acl:     ACL{PublicWrite: boolPtr(true)},
			allowed: true,
		},
		{
			name:   "public write false requires authentication",
			id:     nil,
			acl:    ACL{PublicWrite: boolPtr(false)},
			reason: ReasonAuthRequired,
		},
		{
			name:    "public write false with empty lists allows any authenticated caller",
			id:      alice,
			acl:     ACL{PublicWrite: boolPtr(false), RoleWrite: []string{}, UserWrite: []string{}},
			allowed: true,
		},
		{
			name:    "public write false with populated list checks membership",
			id:      alice,
			acl:     ACL{PublicWrite: boolPtr(false), UserWrite: []string{"alice"}},
			allowed: true,
		},
		{
			name:   "public write false with foreign list denies",
			id:     alice,
			acl:    ACL{PublicWrite: boolPtr(false), UserWrite: []string{"bob"}},
			reason: ReasonDenied,
		},
		{
			name:    "configured role list grants via role",
			id:      alice,
			acl:     ACL{RoleWrite: []string{"editor"}},
			allowed: true,
		},
		{
			name:   "configured lists require authentication",
			id:     nil,
			acl:    ACL{UserWrite: []string{"alice"}},
			reason: ReasonAuthRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CanWriteSheetData(tt.id, tt.acl)
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.Equal(t, tt.reason, d.Reason)
			}
		})
	}
}

func TestExpandReadableRoles_TransitiveChain(t *testing.T) {
	// A reads-via B, B reads-via C; direct access only to C.
	roles := []RoleACL{
		{Name: "a", ACL: ACL{RoleRead: []string{"b"}}},
		{Name: "b", ACL: ACL{RoleRead: []string{"c"}}},
		{Name: "c", ACL: ACL{UserRead: []string{"alice"}}},
		{Name: "d", ACL: ACL{RoleRead: []string{"unrelated"}}},
	}

	got := ExpandReadableRoles(&Identity{UserID: "alice"}, roles)
	assert.True(t, got["a"])
	assert.True(t, got["b"])
	assert.True(t, got["c"])
	assert.False(t, got["d"])
}

func TestExpandReadableRoles_TerminatesOnCycle(t *testing.T) {
	roles := []RoleACL{
		{Name: "x", ACL: ACL{RoleRead: []string{"y"}}},
		{Name: "y", ACL: ACL{RoleRead: []string{"x"}}},
	}

	got := ExpandReadableRoles(&Identity{UserID: "nobody"}, roles)
	assert.Empty(t, got)

	// Seed the cycle and both members become reachable.
	roles = append(roles, RoleACL{Name: "seed", ACL: ACL{PublicRead: boolPtr(true)}})
	roles[0].ACL.RoleRead = append(roles[0].ACL.RoleRead, "seed")
	got = ExpandReadableRoles(nil, roles)
	assert.True(t, got["seed"])
	assert.True(t, got["x"])
	assert.True(t, got["y"])
}

func TestCanModifyColumns(t *testing.T) {
	alice := &Identity{UserID: "alice", Roles: []string{"schema-admin"}}

	tests := []struct {
		name    string
		id      *Identity
		policy  ColumnPolicy
		allowed bool
	}{
		{"flag off denies everyone", alice, ColumnPolicy{}, false},
		{"flag on without lists denies", alice, ColumnPolicy{Enabled: true}, false},
		{"anonymous denied", nil, ColumnPolicy{Enabled: true, AllowedUsers: []string{"alice"}}, false},
		{"user allow-list grants", alice, ColumnPolicy{Enabled: true, AllowedUsers: []string{"alice"}}, true},
		{"role allow-list grants", alice, ColumnPolicy{Enabled: true, AllowedRoles: []string{"schema-admin"}}, true},
		{"foreign lists deny", alice, ColumnPolicy{Enabled: true, AllowedUsers: []string{"bob"}, AllowedRoles: []string{"ops"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanModifyColumns(tt.id, tt.policy).Allowed)
		})
	}
}
