// Package sheets manages sheet metadata: the per-sheet ACL configuration,
// sheet lifecycle, and column layout changes.
//
// Sheet configuration lives in a reserved "sheets" tab, one row per managed
// sheet, using the same clear-not-delete lifecycle as data rows. The data
// tab itself always carries the reserved system columns; structural changes
// are gated by the sheet's column policy, which is stricter than data
// writes (no implicit wildcard).
package sheets
