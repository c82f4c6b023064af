// Package sheetstore abstracts the spreadsheet-shaped backing store.
//
// Every sheet follows the same layout convention: row 1 holds the column
// names, row 2 holds the raw column type declarations, rows 3 and up hold
// data. All cell values round-trip as strings; the codec in this package is
// responsible for coercion in both directions (stringify on write, parse per
// schema on read).
//
// Three backends implement the Store interface: Google Sheets (the
// production target), SQLite (local/self-hosted deployments), and an
// in-memory store for tests. The backend is selected through Config, the
// same way the rest of the service wires storage.
package sheetstore
