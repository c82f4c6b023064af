package api

import (
	"net/http"

	"github.com/celldb/celldb/pkg/acl"
	"github.com/celldb/celldb/pkg/httputil"
	"github.com/celldb/celldb/pkg/sheetstore"
)

func (s *Server) listSheets(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Sheets.List(r.Context(), identity(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, out)
}

func (s *Server) getSheet(w http.ResponseWriter, r *http.Request) {
	name, err := httputil.PathVar(r, "name")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	record, err := s.deps.Sheets.Get(r.Context(), identity(r), name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, record)
}

func (s *Server) createSheet(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := httputil.ParseJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}

	policy := acl.ColumnPolicy{
		AllowedUsers: stringListField(body["column_change_users"]),
		AllowedRoles: stringListField(body["column_change_roles"]),
	}
	policy.Enabled, _ = body["allow_column_changes"].(bool)

	record, err := s.deps.Sheets.Create(r.Context(), identity(r), stringField(body, "name"), sheetstore.DecodeACL(body), policy)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, record)
}

func (s *Server) updateSheet(w http.ResponseWriter, r *http.Request) {
	name, err := httputil.PathVar(r, "name")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var patch map[string]interface{}
	if err := httputil.ParseJSON(r, &patch); err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := s.deps.Sheets.Update(r.Context(), identity(r), name, patch)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, record)
}

func (s *Server) deleteSheet(w http.ResponseWriter, r *http.Request) {
	name, err := httputil.PathVar(r, "name")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := s.deps.Sheets.Delete(r.Context(), identity(r), name); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) listColumns(w http.ResponseWriter, r *http.Request) {
	name, err := httputil.PathVar(r, "name")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	columns, err := s.deps.Sheets.ListColumns(r.Context(), identity(r), name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, columns)
}

func (s *Server) addColumn(w http.ResponseWriter, r *http.Request) {
	name, err := httputil.PathVar(r, "name")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var body map[string]interface{}
	if err := httputil.ParseJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}

	err = s.deps.Sheets.AddColumn(r.Context(), identity(r), name,
		stringField(body, "name"), declarationString(body["declaration"]))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, map[string]string{"sheet": name, "column": stringField(body, "name")})
}

func (s *Server) updateColumn(w http.ResponseWriter, r *http.Request) {
	name, err := httputil.PathVar(r, "name")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	column, err := httputil.PathVar(r, "column")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var body map[string]interface{}
	if err := httputil.ParseJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}

	err = s.deps.Sheets.UpdateColumn(r.Context(), identity(r), name, column,
		stringField(body, "name"), declarationString(body["declaration"]))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) deleteColumn(w http.ResponseWriter, r *http.Request) {
	name, err := httputil.PathVar(r, "name")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	column, err := httputil.PathVar(r, "column")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := s.deps.Sheets.DeleteColumn(r.Context(), identity(r), name, column); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
