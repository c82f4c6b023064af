package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/celldb/celldb/pkg/errs"
)

// maxBodyBytes caps request bodies. Image cells are the largest legitimate
// payload and stay well under this.
const maxBodyBytes = 10 << 20

// ParseJSON decodes the request body into dest.
func ParseJSON(r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return errs.Validation("invalid JSON body: %v", err)
	}
	return nil
}

// PathVar returns the named path parameter.
func PathVar(r *http.Request, key string) (string, error) {
	value := mux.Vars(r)[key]
	if value == "" {
		return "", errs.Validation("missing path parameter %q", key)
	}
	return value, nil
}
