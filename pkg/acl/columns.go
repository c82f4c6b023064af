package acl

// ColumnPolicy gates structural changes to a sheet (adding, retyping or
// removing columns). Column changes are stricter than data writes: the
// capability flag alone grants nothing, an explicit allow-list is required.
type ColumnPolicy struct {
	Enabled      bool
	AllowedUsers []string
	AllowedRoles []string
}

// CanModifyColumns decides whether the caller may change the column layout
// of a sheet. There is no implicit wildcard: with the flag on but neither
// list configured, everyone is denied.
func CanModifyColumns(id *Identity, p ColumnPolicy) Decision {
	if !p.Enabled {
		return deny(ReasonDenied)
	}
	if id == nil {
		return deny(ReasonAuthRequired)
	}
	for _, u := range p.AllowedUsers {
		if u == id.UserID {
			return allow()
		}
	}
	for _, r := range p.AllowedRoles {
		if id.HasRole(r) {
			return allow()
		}
	}
	return deny(ReasonDenied)
}
