package query

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/celldb/celldb/pkg/errs"
)

// OrderKey is a single ordering key parsed from "field" or "field:desc".
type OrderKey struct {
	Field string
	Desc  bool
}

// Options are the parsed listing parameters.
type Options struct {
	// Query is the free-text search string ("query" parameter).
	Query string
	// Where is the parsed filter condition ("where" parameter).
	Where map[string]interface{}
	// Order are the ordering keys ("order" parameter).
	Order []OrderKey
	// Limit is the page size. nil means pagination is not applied at all,
	// which is distinct from an explicit limit of zero.
	Limit *int
	// Page is the 1-indexed page number.
	Page int
	// Count requests the total matching count in the response.
	Count bool
}

// ParseOptions parses the listing query parameters. Malformed where JSON is
// a validation error, not a server error.
func ParseOptions(values url.Values) (Options, error) {
	opts := Options{
		Query: values.Get("query"),
		Page:  1,
	}

	if raw := values.Get("where"); raw != "" {
		var where map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &where); err != nil {
			return Options{}, errs.Validation("invalid where filter: not a JSON object")
		}
		opts.Where = where
	}

	if raw := values.Get("order"); raw != "" {
		opts.Order = parseOrder(raw)
	}

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return Options{}, errs.Validation("invalid limit %q", raw)
		}
		opts.Limit = &limit
	}

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return Options{}, errs.Validation("invalid page %q", raw)
		}
		opts.Page = page
	}

	if raw := values.Get("count"); raw != "" {
		opts.Count = strings.EqualFold(raw, "true") || raw == "1"
	}

	return opts, nil
}

// parseOrder splits a comma list of "field" / "field:desc" specs. Direction
// defaults to ascending.
func parseOrder(raw string) []OrderKey {
	var keys []OrderKey
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key := OrderKey{Field: part}
		if field, dir, ok := strings.Cut(part, ":"); ok {
			key.Field = strings.TrimSpace(field)
			key.Desc = strings.EqualFold(strings.TrimSpace(dir), "desc")
		}
		keys = append(keys, key)
	}
	return keys
}
