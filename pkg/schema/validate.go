package schema

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"path"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// maxImageBytes is the decoded-size ceiling for inline data-URL images.
const maxImageBytes = 5 * 1024 * 1024

var dataURLPattern = regexp.MustCompile(`^data:image/([a-zA-Z0-9.+-]+);base64,(.*)$`)

var allowedImageFormats = map[string]bool{
	"png":     true,
	"jpg":     true,
	"jpeg":    true,
	"gif":     true,
	"webp":    true,
	"avif":    true,
	"svg+xml": true,
	"bmp":     true,
	"x-icon":  true,
}

// imageExtensions is used only for the non-fatal heuristic on http(s) URLs.
var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".avif": true, ".svg": true, ".bmp": true, ".ico": true,
}

// datetimeLayouts are tried in order when validating datetime values.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
}

// Validate checks value against col. A nil return means the value is valid.
//
// Empty values (nil or empty string) short-circuit: they fail only when the
// column is required, and are otherwise valid regardless of type.
func Validate(value interface{}, col Column) error {
	if isEmpty(value) {
		if col.Required {
			return fmt.Errorf("value is required")
		}
		return nil
	}

	switch col.Type {
	case TypeString, "":
		return validateString(value, col)
	case TypeNumber:
		return validateNumber(value, col)
	case TypeBoolean:
		return validateBoolean(value)
	case TypeDatetime:
		return validateDatetime(value)
	case TypeObject:
		return validateObject(value)
	case TypePointer:
		return validatePointer(value)
	case TypeArray:
		return validateArray(value)
	case TypeImage:
		return validateImage(value)
	default:
		return validateString(value, col)
	}
}

// isEmpty reports whether value counts as absent for required checks.
func isEmpty(value interface{}) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && s == ""
}

func validateString(value interface{}, col Column) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("value must be a string")
	}
	if col.Pattern != "" {
		re, err := regexp.Compile(col.Pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %q", col.Pattern)
		}
		if !re.MatchString(s) {
			return fmt.Errorf("value does not match pattern %q", col.Pattern)
		}
	}
	if col.MinLength != nil && len(s) < *col.MinLength {
		return fmt.Errorf("value must be at least %d characters", *col.MinLength)
	}
	if col.MaxLength != nil && len(s) > *col.MaxLength {
		return fmt.Errorf("value must be at most %d characters", *col.MaxLength)
	}
	return nil
}

func validateNumber(value interface{}, col Column) error {
	n, ok := toNumber(value)
	if !ok || math.IsNaN(n) {
		return fmt.Errorf("value must be a number")
	}
	if col.Min != nil && n < *col.Min {
		return fmt.Errorf("value must be at least %v", *col.Min)
	}
	if col.Max != nil && n > *col.Max {
		return fmt.Errorf("value must be at most %v", *col.Max)
	}
	return nil
}

// toNumber coerces native numerics and numeric strings. Leading zeros are
// accepted ("007" parses as 7).
func toNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		n, err := v.Float64()
		return n, err == nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func validateBoolean(value interface{}) error {
	switch v := value.(type) {
	case bool:
		return nil
	case string:
		switch strings.ToLower(v) {
		case "true", "false":
			return nil
		}
	}
	return fmt.Errorf("value must be a boolean")
}

func validateDatetime(value interface{}) error {
	switch v := value.(type) {
	case time.Time:
		return nil
	case string:
		for _, layout := range datetimeLayouts {
			if _, err := time.Parse(layout, v); err == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("value must be a valid datetime")
}

func validateObject(value interface{}) error {
	switch v := value.(type) {
	case string:
		var parsed interface{}
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			return fmt.Errorf("value must be valid JSON")
		}
		return nil
	case map[string]interface{}:
		return nil
	}
	if reflect.ValueOf(value).Kind() == reflect.Map {
		return nil
	}
	return fmt.Errorf("value must be an object")
}

func validatePointer(value interface{}) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("value must be a string id reference")
	}
	// Opaque foreign id; no existence check is performed here.
	return nil
}

func validateArray(value interface{}) error {
	switch v := value.(type) {
	case string:
		var arr []interface{}
		if err := json.Unmarshal([]byte(v), &arr); err != nil {
			return fmt.Errorf("value must be a JSON array")
		}
		return nil
	case []interface{}, []string:
		return nil
	}
	if reflect.ValueOf(value).Kind() == reflect.Slice {
		return nil
	}
	return fmt.Errorf("value must be an array")
}

func validateImage(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("value must be a string")
	}

	if m := dataURLPattern.FindStringSubmatch(s); m != nil {
		format := strings.ToLower(m[1])
		if !allowedImageFormats[format] {
			return fmt.Errorf("unsupported image format %q", format)
		}
		payload := m[2]
		// Estimate decoded size before decoding to avoid buffering 5MB+
		// of junk just to reject it.
		if len(payload)/4*3 > maxImageBytes {
			return fmt.Errorf("image exceeds %d byte limit", maxImageBytes)
		}
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return fmt.Errorf("image data is not valid base64")
		}
		if len(decoded) > maxImageBytes {
			return fmt.Errorf("image exceeds %d byte limit", maxImageBytes)
		}
		return nil
	}

	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("value must be a data URL or http(s) image URL")
	}
	// Extension check on remote URLs is a heuristic only; a URL without a
	// recognizable image extension is still accepted.
	_ = imageExtensions[strings.ToLower(path.Ext(u.Path))]
	return nil
}
