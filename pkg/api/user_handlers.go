package api

import (
	"net/http"

	"github.com/celldb/celldb/pkg/httputil"
	"github.com/celldb/celldb/pkg/sheetstore"
)

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Users.List(r.Context(), identity(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, out)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.PathVar(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	record, err := s.deps.Users.Get(r.Context(), identity(r), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, record)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := httputil.ParseJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := s.deps.Users.Create(r.Context(),
		stringField(body, "name"), stringField(body, "email"),
		stringListField(body["roles"]), sheetstore.DecodeACL(body))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, record)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.PathVar(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var patch map[string]interface{}
	if err := httputil.ParseJSON(r, &patch); err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := s.deps.Users.Update(r.Context(), identity(r), userID, patch)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, record)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.PathVar(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := s.deps.Users.Delete(r.Context(), identity(r), userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
