package api

import (
	"net/http"

	"github.com/celldb/celldb/pkg/httputil"
	"github.com/celldb/celldb/pkg/sheetstore"
)

func (s *Server) listRoles(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Roles.List(r.Context(), identity(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, out)
}

func (s *Server) getRole(w http.ResponseWriter, r *http.Request) {
	roleID, err := httputil.PathVar(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	record, err := s.deps.Roles.Get(r.Context(), identity(r), roleID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, record)
}

func (s *Server) createRole(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := httputil.ParseJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := s.deps.Roles.Create(r.Context(), identity(r), stringField(body, "name"), sheetstore.DecodeACL(body))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, record)
}

func (s *Server) updateRole(w http.ResponseWriter, r *http.Request) {
	roleID, err := httputil.PathVar(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var patch map[string]interface{}
	if err := httputil.ParseJSON(r, &patch); err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := s.deps.Roles.Update(r.Context(), identity(r), roleID, patch)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, record)
}

func (s *Server) deleteRole(w http.ResponseWriter, r *http.Request) {
	roleID, err := httputil.PathVar(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := s.deps.Roles.Delete(r.Context(), identity(r), roleID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
