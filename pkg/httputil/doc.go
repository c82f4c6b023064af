// Package httputil provides HTTP helpers for the JSON API: response
// writers, the error envelope, and request parsing.
//
// Error responses use a single envelope shape:
//
//	{"error": "message"}
//
// WriteError maps the service error kinds onto HTTP status codes, so
// handlers return domain errors without choosing statuses themselves.
package httputil
