// Package query evaluates listing queries over in-memory row collections.
//
// The engine never pushes predicates down to storage: the row store returns
// the full sheet and the pipeline filters, counts, orders and paginates the
// materialized rows. The pipeline order is fixed: free-text search, where
// filter, count snapshot, ordering, pagination. The reported count reflects
// the filtered set before pagination.
//
// The filter DSL mirrors the wire format: a JSON object mapping field names
// to literals (equality) or operator objects using $lt/$lte/$gt/$gte/$ne/
// $in/$nin/$exists/$regex/$text. All field predicates in a condition are
// ANDed; an unknown operator fails its field closed.
package query
