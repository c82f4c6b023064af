package sheetstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/celldb/celldb/pkg/acl"
	"github.com/celldb/celldb/pkg/schema"
)

// Reserved column names present on every data sheet. They are managed by the
// server and can never be created, retyped or removed through the column
// endpoints.
const (
	ColID          = "id"
	ColCreatedAt   = "created_at"
	ColUpdatedAt   = "updated_at"
	ColPublicRead  = "public_read"
	ColPublicWrite = "public_write"
	ColRoleRead    = "role_read"
	ColRoleWrite   = "role_write"
	ColUserRead    = "user_read"
	ColUserWrite   = "user_write"
)

// SystemColumns lists the reserved columns in their canonical sheet order.
var SystemColumns = []string{
	ColID, ColCreatedAt, ColUpdatedAt,
	ColPublicRead, ColPublicWrite,
	ColRoleRead, ColRoleWrite,
	ColUserRead, ColUserWrite,
}

// SystemColumnTypes are the row-2 declarations matching SystemColumns.
var SystemColumnTypes = []string{
	"string", "datetime", "datetime",
	"boolean", "boolean",
	"array", "array",
	"array", "array",
}

var systemColumnSet = func() map[string]bool {
	set := make(map[string]bool, len(SystemColumns))
	for _, c := range SystemColumns {
		set[c] = true
	}
	return set
}()

// IsSystemColumn reports whether name is a reserved column.
func IsSystemColumn(name string) bool {
	return systemColumnSet[name]
}

// aclListColumns and aclBoolColumns get dedicated decode handling so the
// unset/empty tri-state survives the string round-trip.
var aclListColumns = map[string]bool{
	ColRoleRead: true, ColRoleWrite: true, ColUserRead: true, ColUserWrite: true,
}

var aclBoolColumns = map[string]bool{
	ColPublicRead: true, ColPublicWrite: true,
}

// Snapshot is a per-request view of one sheet's header and parsed column
// schemas. It is loaded once per request and passed down the call chain;
// there is no process-wide header cache, so concurrent structural changes
// can never leak a stale schema into an unrelated request.
type Snapshot struct {
	Sheet   string
	Headers []string
	Columns map[string]schema.Column
}

// LoadSnapshot reads the header and type rows of a sheet and parses the
// column schemas.
func LoadSnapshot(ctx context.Context, store Store, sheet string) (*Snapshot, error) {
	headers, err := store.GetHeaderRow(ctx, sheet)
	if err != nil {
		return nil, fmt.Errorf("load header row: %w", err)
	}
	types, err := store.GetTypeRow(ctx, sheet)
	if err != nil {
		return nil, fmt.Errorf("load type row: %w", err)
	}

	columns := make(map[string]schema.Column, len(headers))
	for i, name := range headers {
		if name == "" {
			continue
		}
		decl := ""
		if i < len(types) {
			decl = types[i]
		}
		columns[name] = schema.ParseColumn(decl)
	}

	return &Snapshot{Sheet: sheet, Headers: headers, Columns: columns}, nil
}

// Column returns the parsed schema for a column, defaulting to string for
// unknown names.
func (s *Snapshot) Column(name string) schema.Column {
	if col, ok := s.Columns[name]; ok {
		return col
	}
	return schema.StringColumn()
}

// HasColumn reports whether the sheet declares the named column.
func (s *Snapshot) HasColumn(name string) bool {
	_, ok := s.Columns[name]
	return ok
}

// Decode converts one ordered row of raw cells into a field map, coercing
// each cell per its column schema. Parse failures keep the raw string
// instead of erroring, so one malformed row cannot poison a listing.
func (s *Snapshot) Decode(values []string) map[string]interface{} {
	record := make(map[string]interface{}, len(s.Headers))
	for i, name := range s.Headers {
		if name == "" {
			continue
		}
		raw := ""
		if i < len(values) {
			raw = values[i]
		}
		record[name] = s.decodeCell(name, raw)
	}
	return record
}

func (s *Snapshot) decodeCell(name, raw string) interface{} {
	if aclListColumns[name] {
		if raw == "" {
			return ""
		}
		if list, ok := parseStringList(raw); ok {
			return list
		}
		return raw
	}
	if aclBoolColumns[name] {
		switch strings.ToLower(raw) {
		case "true":
			return true
		case "false":
			return false
		default:
			return ""
		}
	}
	if raw == "" {
		return ""
	}

	switch s.Column(name).Type {
	case schema.TypeNumber:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
	case schema.TypeBoolean:
		switch strings.ToLower(raw) {
		case "true":
			return true
		case "false":
			return false
		}
	case schema.TypeArray, schema.TypeObject:
		var parsed interface{}
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			return parsed
		}
	}
	return raw
}

// Encode converts a field map into an ordered row of raw cells following the
// header order. Missing fields encode as empty cells.
func (s *Snapshot) Encode(record map[string]interface{}) []string {
	row := make([]string, len(s.Headers))
	for i, name := range s.Headers {
		if name == "" {
			continue
		}
		row[i] = EncodeCell(record[name])
	}
	return row
}

// EmptyRow returns a full-width row of empty cells, used by clear-deletes.
func (s *Snapshot) EmptyRow() []string {
	return make([]string, len(s.Headers))
}

// EncodeCell stringifies a single value for storage.
func EncodeCell(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case []string:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(raw)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(raw)
	}
}

// DecodeACL extracts the six ACL fields from a decoded record, preserving
// the unset/empty tri-state: a missing or empty cell stays nil, an explicit
// empty JSON array becomes an empty non-nil slice.
func DecodeACL(record map[string]interface{}) acl.ACL {
	return acl.ACL{
		PublicRead:  aclBoolField(record[ColPublicRead]),
		PublicWrite: aclBoolField(record[ColPublicWrite]),
		RoleRead:    aclListField(record[ColRoleRead]),
		RoleWrite:   aclListField(record[ColRoleWrite]),
		UserRead:    aclListField(record[ColUserRead]),
		UserWrite:   aclListField(record[ColUserWrite]),
	}
}

// EncodeACL writes the six ACL fields into a record map. Unset fields encode
// as empty cells so the tri-state round-trips.
func EncodeACL(a acl.ACL, record map[string]interface{}) {
	record[ColPublicRead] = encodeACLBool(a.PublicRead)
	record[ColPublicWrite] = encodeACLBool(a.PublicWrite)
	record[ColRoleRead] = encodeACLList(a.RoleRead)
	record[ColRoleWrite] = encodeACLList(a.RoleWrite)
	record[ColUserRead] = encodeACLList(a.UserRead)
	record[ColUserWrite] = encodeACLList(a.UserWrite)
}

func encodeACLBool(b *bool) interface{} {
	if b == nil {
		return ""
	}
	return *b
}

func encodeACLList(list []string) interface{} {
	if list == nil {
		return ""
	}
	return list
}

func aclBoolField(value interface{}) *bool {
	switch v := value.(type) {
	case bool:
		b := v
		return &b
	case string:
		switch strings.ToLower(v) {
		case "true":
			b := true
			return &b
		case "false":
			b := false
			return &b
		}
	}
	return nil
}

func aclListField(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		if list, ok := parseStringList(v); ok {
			return list
		}
		// A bare name is treated as a single-entry list.
		return []string{v}
	}
	return nil
}

func parseStringList(raw string) ([]string, bool) {
	var items []interface{}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, fmt.Sprint(item))
	}
	return out, true
}
