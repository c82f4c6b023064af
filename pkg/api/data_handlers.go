package api

import (
	"net/http"

	"github.com/celldb/celldb/pkg/httputil"
	"github.com/celldb/celldb/pkg/query"
)

// listResponse is the count envelope returned when count=true is requested.
type listResponse struct {
	Rows  []map[string]interface{} `json:"rows"`
	Total int                      `json:"total"`
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	sheet, err := httputil.PathVar(r, "sheet")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	opts, err := query.ParseOptions(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := s.deps.Records.List(r.Context(), identity(r), sheet, opts)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if opts.Count {
		httputil.WriteSuccess(w, listResponse{Rows: result.Rows, Total: result.Total})
		return
	}
	httputil.WriteSuccess(w, result.Rows)
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	sheet, err := httputil.PathVar(r, "sheet")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rowID, err := httputil.PathVar(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := s.deps.Records.Get(r.Context(), identity(r), sheet, rowID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, record)
}

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	sheet, err := httputil.PathVar(r, "sheet")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var payload map[string]interface{}
	if err := httputil.ParseJSON(r, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := s.deps.Records.Create(r.Context(), identity(r), sheet, payload)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, record)
}

func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request) {
	sheet, err := httputil.PathVar(r, "sheet")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rowID, err := httputil.PathVar(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var patch map[string]interface{}
	if err := httputil.ParseJSON(r, &patch); err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := s.deps.Records.Update(r.Context(), identity(r), sheet, rowID, patch)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, record)
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	sheet, err := httputil.PathVar(r, "sheet")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rowID, err := httputil.PathVar(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := s.deps.Records.Delete(r.Context(), identity(r), sheet, rowID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
