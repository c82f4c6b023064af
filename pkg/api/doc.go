// Package api exposes the HTTP surface: role, sheet, user and data record
// CRUD plus session issuance, routed with gorilla/mux. Handlers delegate
// all permission decisions to the services; the only HTTP-level concern
// here is translating bodies, path variables and query parameters.
package api
