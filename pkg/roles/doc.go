// Package roles manages role entities on the reserved "roles" sheet.
//
// A role's role_read list doubles as a grant graph: holding a role that may
// read role X transitively grants visibility of X. Listing therefore runs a
// fixed-point expansion over the full role set instead of a plain per-row
// read check.
package roles
