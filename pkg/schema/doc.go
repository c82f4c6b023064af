// Package schema parses per-column type declarations and validates values
// against them.
//
// Every sheet carries its column schema in row 2: each cell is either a bare
// type keyword ("number") or a JSON object with constraints
// ({"type":"string","required":true,"pattern":"^a"}). ParseColumn resolves
// both forms into a single canonical Column at parse time; nothing else in
// the codebase branches on the declaration format.
//
// ParseColumn never fails. Malformed or unknown declarations degrade to a
// plain string column so that a bad cell cannot take a sheet offline.
package schema
