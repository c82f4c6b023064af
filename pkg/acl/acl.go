package acl

// Identity is an authenticated caller. A nil *Identity is an anonymous
// caller.
type Identity struct {
	UserID string
	Roles  []string
}

// HasRole reports whether the identity holds the named role.
func (id *Identity) HasRole(role string) bool {
	if id == nil {
		return false
	}
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ACL is the six-field access tuple attached to roles, sheets and rows.
//
// Pointer and slice fields distinguish unset (nil) from explicitly
// configured values.
type ACL struct {
	PublicRead  *bool
	PublicWrite *bool
	RoleRead    []string
	RoleWrite   []string
	UserRead    []string
	UserWrite   []string
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

const (
	// ReasonAuthRequired marks denials caused by a missing identity.
	ReasonAuthRequired = "authentication required"
	// ReasonDenied marks denials for a valid identity without access.
	ReasonDenied = "access denied"
)

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }
func boolValue(b *bool) bool      { return b != nil && *b }

// CanRead decides read access to an entity with ACL a.
func CanRead(id *Identity, a ACL) Decision {
	return evaluate(id, a.PublicRead, a.RoleRead, a.UserRead)
}

// CanWrite decides write access to an entity with ACL a. The decision is
// computed from the write fields only, never derived from CanRead.
func CanWrite(id *Identity, a ACL) Decision {
	return evaluate(id, a.PublicWrite, a.RoleWrite, a.UserWrite)
}

// evaluate applies the shared precedence: public grant, then authentication,
// then user list, then role intersection.
func evaluate(id *Identity, public *bool, roles, users []string) Decision {
	if boolValue(public) {
		return allow()
	}
	if id == nil {
		return deny(ReasonAuthRequired)
	}
	for _, u := range users {
		if u == id.UserID {
			return allow()
		}
	}
	for _, r := range roles {
		if id.HasRole(r) {
			return allow()
		}
	}
	return deny(ReasonDenied)
}

// CanWriteSheetData decides whether a caller may create rows on a sheet.
//
// Unlike CanWrite it is tri-state aware, to support un-configured sheets:
//
//   - all three write fields unset: allow, even anonymous ("fresh sheet,
//     no rules yet")
//   - public_write unset but a role/user write list explicitly configured:
//     standard evaluation, so explicitly empty lists lock the sheet
//   - public_write explicitly false with both lists empty or unset:
//     any authenticated caller may write
func CanWriteSheetData(id *Identity, a ACL) Decision {
	if a.PublicWrite == nil && a.RoleWrite == nil && a.UserWrite == nil {
		return allow()
	}

	if a.PublicWrite != nil {
		if *a.PublicWrite {
			return allow()
		}
		if id == nil {
			return deny(ReasonAuthRequired)
		}
		if len(a.RoleWrite) == 0 && len(a.UserWrite) == 0 {
			return allow()
		}
	}

	return evaluate(id, a.PublicWrite, a.RoleWrite, a.UserWrite)
}
