package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/celldb/celldb/pkg/httputil"
	"github.com/celldb/celldb/pkg/observability"
	"github.com/celldb/celldb/pkg/records"
	"github.com/celldb/celldb/pkg/roles"
	"github.com/celldb/celldb/pkg/sheets"
	"github.com/celldb/celldb/pkg/users"
)

// SessionIssuer mints a session token for a user id.
type SessionIssuer interface {
	Issue(userID string) (string, error)
}

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Logger   *observability.Logger
	Roles    *roles.Service
	Sheets   *sheets.Service
	Users    *users.Service
	Records  *records.Service
	Sessions SessionIssuer
}

// Server is the REST API server.
type Server struct {
	router *mux.Router
	deps   Deps
}

// NewServer creates the server and wires its routes.
func NewServer(deps Deps) *Server {
	s := &Server{
		router: mux.NewRouter(),
		deps:   deps,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes.
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(httputil.RequireJSONContentType)

	// Session routes
	api.HandleFunc("/sessions", s.createSession).Methods("POST")

	// Role routes
	api.HandleFunc("/roles", s.listRoles).Methods("GET")
	api.HandleFunc("/roles", s.createRole).Methods("POST")
	api.HandleFunc("/roles/{id}", s.getRole).Methods("GET")
	api.HandleFunc("/roles/{id}", s.updateRole).Methods("PUT")
	api.HandleFunc("/roles/{id}", s.deleteRole).Methods("DELETE")

	// Sheet routes
	api.HandleFunc("/sheets", s.listSheets).Methods("GET")
	api.HandleFunc("/sheets", s.createSheet).Methods("POST")
	api.HandleFunc("/sheets/{name}", s.getSheet).Methods("GET")
	api.HandleFunc("/sheets/{name}", s.updateSheet).Methods("PUT")
	api.HandleFunc("/sheets/{name}", s.deleteSheet).Methods("DELETE")

	// Column routes
	api.HandleFunc("/sheets/{name}/columns", s.listColumns).Methods("GET")
	api.HandleFunc("/sheets/{name}/columns", s.addColumn).Methods("POST")
	api.HandleFunc("/sheets/{name}/columns/{column}", s.updateColumn).Methods("PUT")
	api.HandleFunc("/sheets/{name}/columns/{column}", s.deleteColumn).Methods("DELETE")

	// User routes
	api.HandleFunc("/users", s.listUsers).Methods("GET")
	api.HandleFunc("/users", s.createUser).Methods("POST")
	api.HandleFunc("/users/{id}", s.getUser).Methods("GET")
	api.HandleFunc("/users/{id}", s.updateUser).Methods("PUT")
	api.HandleFunc("/users/{id}", s.deleteUser).Methods("DELETE")

	// Data routes
	api.HandleFunc("/data/{sheet}", s.listRecords).Methods("GET")
	api.HandleFunc("/data/{sheet}", s.createRecord).Methods("POST")
	api.HandleFunc("/data/{sheet}/{id}", s.getRecord).Methods("GET")
	api.HandleFunc("/data/{sheet}/{id}", s.updateRecord).Methods("PUT")
	api.HandleFunc("/data/{sheet}/{id}", s.deleteRecord).Methods("DELETE")
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the underlying router so the entrypoint can wrap it in
// middleware.
func (s *Server) Router() *mux.Router {
	return s.router
}
