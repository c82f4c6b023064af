// Package acl computes read and write authorization decisions for roles,
// sheets and data rows.
//
// All functions are pure: callers resolve the six ACL fields (public_read,
// public_write, role_read, role_write, user_read, user_write) from storage
// and pass them in. Read and write are evaluated independently; a write
// grant never implies a read grant.
//
// The ACL type is tri-state aware. A nil slice means the list was never
// configured, an empty non-nil slice means it was explicitly set to nobody.
// The distinction is security-relevant for sheet data writes (see
// CanWriteSheetData) and must be preserved through the storage codec.
package acl
