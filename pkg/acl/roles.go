package acl

// RoleACL pairs a role name with its ACL fields. The role_read list doubles
// as a grant graph: access to a role is itself grantable as if it were a
// role.
type RoleACL struct {
	Name string
	ACL  ACL
}

// ExpandReadableRoles returns the set of role names the caller may read,
// including roles reachable transitively through role_read grants.
//
// The expansion is an iterative fixed point over an explicit set, not a
// recursion: the accessible set only grows and is bounded by the role count,
// so the loop terminates in at most len(roles) passes even for adversarially
// deep grant graphs.
func ExpandReadableRoles(id *Identity, roles []RoleACL) map[string]bool {
	accessible := make(map[string]bool)
	for _, r := range roles {
		if CanRead(id, r.ACL).Allowed {
			accessible[r.Name] = true
		}
	}

	for {
		added := false
		for _, r := range roles {
			if accessible[r.Name] {
				continue
			}
			for _, grant := range r.ACL.RoleRead {
				if accessible[grant] {
					accessible[r.Name] = true
					added = true
					break
				}
			}
		}
		if !added {
			return accessible
		}
	}
}
