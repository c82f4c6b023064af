// Package middleware provides the HTTP middleware chain: identity
// resolution from bearer tokens or session cookies, request logging, and
// per-caller rate limiting (in-process or Redis-backed).
//
// Authentication is always optional at this layer. A request without a
// token proceeds anonymously; the ACL evaluation downstream decides what
// an anonymous caller may do. Only a present-but-invalid token is rejected
// here.
package middleware
