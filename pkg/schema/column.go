package schema

import (
	"encoding/json"
	"strings"
)

// Type identifies a column value type.
type Type string

const (
	TypeString   Type = "string"
	TypeNumber   Type = "number"
	TypeBoolean  Type = "boolean"
	TypeDatetime Type = "datetime"
	TypePointer  Type = "pointer"
	TypeArray    Type = "array"
	TypeObject   Type = "object"
	TypeImage    Type = "image"
)

var knownTypes = map[Type]bool{
	TypeString:   true,
	TypeNumber:   true,
	TypeBoolean:  true,
	TypeDatetime: true,
	TypePointer:  true,
	TypeArray:    true,
	TypeObject:   true,
	TypeImage:    true,
}

// Column is the canonical parsed form of a column declaration.
type Column struct {
	Type      Type        `json:"type"`
	Required  bool        `json:"required,omitempty"`
	Unique    bool        `json:"unique,omitempty"`
	Pattern   string      `json:"pattern,omitempty"`
	MinLength *int        `json:"minLength,omitempty"`
	MaxLength *int        `json:"maxLength,omitempty"`
	Min       *float64    `json:"min,omitempty"`
	Max       *float64    `json:"max,omitempty"`
	Default   interface{} `json:"default,omitempty"`
}

// StringColumn is the degraded-schema fallback for absent or unparseable
// declarations.
func StringColumn() Column {
	return Column{Type: TypeString}
}

// ParseColumn parses a raw declaration cell into a Column. It never fails:
// malformed JSON, JSON without a "type" field, and unknown keywords all fall
// back to a plain string column.
func ParseColumn(decl string) Column {
	decl = strings.TrimSpace(decl)
	if decl == "" {
		return StringColumn()
	}

	if strings.HasPrefix(decl, "{") {
		var col Column
		if err := json.Unmarshal([]byte(decl), &col); err != nil {
			return StringColumn()
		}
		col.Type = normalizeType(string(col.Type))
		if col.Type == "" {
			return StringColumn()
		}
		return col
	}

	t := normalizeType(decl)
	if t == "" {
		return StringColumn()
	}
	return Column{Type: t}
}

// normalizeType lower-cases a keyword and maps the legacy "json" keyword to
// "object". Unknown keywords return the empty type.
func normalizeType(raw string) Type {
	keyword := strings.ToLower(strings.TrimSpace(raw))
	if keyword == "json" {
		return TypeObject
	}
	t := Type(keyword)
	if knownTypes[t] {
		return t
	}
	return ""
}
