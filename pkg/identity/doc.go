// Package identity turns bearer tokens into ACL identities.
//
// An Authenticator maps a token to a user id. The in-memory implementation
// issues opaque tokens backed by TTL sessions and stores only token hashes.
// A Resolver composes an Authenticator with a role source (the user
// directory) to produce the full acl.Identity evaluated by the permission
// layer.
package identity
