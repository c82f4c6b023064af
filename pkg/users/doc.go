// Package users manages the user directory on the reserved "users" sheet.
//
// A user row's id is the identity userId used everywhere in ACL evaluation,
// and its roles column is the source of the caller's role set. New users
// own their row: user_read and user_write default to the new user's own id.
package users
