package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/celldb/celldb/pkg/errs"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteErrorMessage writes the error envelope with an explicit status.
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// WriteError writes the error envelope with the status derived from the
// error's kind. Unclassified errors surface as 500 with a generic message
// so internal detail never leaks.
func WriteError(w http.ResponseWriter, err error) {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		WriteErrorMessage(w, http.StatusBadRequest, err.Error())
	case errs.KindAuthentication:
		WriteErrorMessage(w, http.StatusUnauthorized, err.Error())
	case errs.KindPermission:
		WriteErrorMessage(w, http.StatusForbidden, err.Error())
	case errs.KindNotFound:
		WriteErrorMessage(w, http.StatusNotFound, err.Error())
	case errs.KindConflict:
		WriteErrorMessage(w, http.StatusConflict, err.Error())
	case errs.KindUpstream:
		WriteErrorMessage(w, http.StatusBadGateway, err.Error())
	default:
		WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

// WriteSuccess writes a 200 response with JSON data.
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteCreated writes a 201 response with JSON data.
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent writes a 204 response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
