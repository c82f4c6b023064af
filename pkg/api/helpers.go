package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/celldb/celldb/pkg/acl"
	"github.com/celldb/celldb/pkg/middleware"
)

// identity returns the resolved caller, nil for anonymous requests.
func identity(r *http.Request) *acl.Identity {
	return middleware.IdentityFrom(r.Context())
}

// stringField reads a string body field, tolerating absence.
func stringField(body map[string]interface{}, key string) string {
	s, _ := body[key].(string)
	return s
}

// stringListField converts a decoded JSON array into a string slice. nil
// input stays nil so ACL tri-states survive.
func stringListField(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

// declarationString normalizes a column declaration from the body: a bare
// string passes through, a JSON object is re-serialized.
func declarationString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}
