package query

import "sort"

// Result is the outcome of running the listing pipeline.
type Result struct {
	Rows []map[string]interface{}
	// Total is the matching count before pagination.
	Total int
}

// Apply runs the fixed pipeline: text search, where filter, count snapshot,
// ordering, pagination.
func Apply(rows []map[string]interface{}, opts Options) Result {
	filtered := rows
	if opts.Query != "" {
		filtered = filterRows(filtered, func(row map[string]interface{}) bool {
			return MatchesTextSearch(row, opts.Query)
		})
	}
	if len(opts.Where) > 0 {
		filtered = filterRows(filtered, func(row map[string]interface{}) bool {
			return MatchesWhere(row, opts.Where)
		})
	}

	total := len(filtered)

	if len(opts.Order) > 0 {
		filtered = applyOrdering(filtered, opts.Order)
	}
	filtered = applyPagination(filtered, opts.Limit, opts.Page)

	return Result{Rows: filtered, Total: total}
}

func filterRows(rows []map[string]interface{}, keep func(map[string]interface{}) bool) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		if keep(row) {
			out = append(out, row)
		}
	}
	return out
}

// applyOrdering sorts by each key left to right, falling through to the next
// key on equality. The sort is stable so untouched rows keep sheet order.
func applyOrdering(rows []map[string]interface{}, keys []OrderKey) []map[string]interface{} {
	sorted := make([]map[string]interface{}, len(rows))
	copy(sorted, rows)

	sort.SliceStable(sorted, func(i, j int) bool {
		for _, key := range keys {
			c, _ := compareValues(sorted[i][key.Field], sorted[j][key.Field])
			if c == 0 {
				continue
			}
			if key.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return sorted
}

// applyPagination slices out the 1-indexed page. A nil limit disables
// pagination entirely.
func applyPagination(rows []map[string]interface{}, limit *int, page int) []map[string]interface{} {
	if limit == nil {
		return rows
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * *limit
	if start >= len(rows) {
		return []map[string]interface{}{}
	}
	end := start + *limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}
