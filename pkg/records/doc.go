// Package records implements the data-integrity policy for row data:
// generated system fields, immutable-field enforcement, per-field schema
// validation, unique-constraint scans, and clear-not-delete mutation
// semantics.
//
// Deletion never removes a storage position. The backing store addresses
// rows by position, so a physical delete would shift every following row and
// invalidate row numbers held by concurrent operations; clearing in place
// turns delete into an idempotent overwrite instead. Cleared rows (empty id)
// are tombstones and are treated as absent everywhere.
//
// Concurrent updates to the same row are last-write-wins. There is no
// version token compared on update; callers needing stronger guarantees
// must serialize externally.
package records
