package schema

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_RequiredShortCircuit(t *testing.T) {
	types := []Type{
		TypeString, TypeNumber, TypeBoolean, TypeDatetime,
		TypePointer, TypeArray, TypeObject, TypeImage,
	}
	empties := []interface{}{nil, ""}

	for _, typ := range types {
		for _, empty := range empties {
			// Empty values pass every type when the column is optional.
			assert.NoError(t, Validate(empty, Column{Type: typ}),
				"type %s should accept empty optional value", typ)

			err := Validate(empty, Column{Type: typ, Required: true})
			require.Error(t, err, "type %s should reject empty required value", typ)
			assert.Equal(t, "value is required", err.Error())
		}
	}
}

func TestValidate_String(t *testing.T) {
	minLen, maxLen := 3, 5
	col := Column{Type: TypeString, MinLength: &minLen, MaxLength: &maxLen}

	assert.NoError(t, Validate("abc", col))
	assert.NoError(t, Validate("abcde", col))
	assert.Error(t, Validate("ab", col))
	assert.Error(t, Validate("abcdef", col))
	assert.Error(t, Validate(42.0, col))

	patterned := Column{Type: TypeString, Pattern: "^[a-z]+$"}
	assert.NoError(t, Validate("hello", patterned))
	assert.Error(t, Validate("Hello", patterned))
}

func TestValidate_Number(t *testing.T) {
	col := Column{Type: TypeNumber}

	assert.NoError(t, Validate(7.0, col))
	assert.NoError(t, Validate("7", col))
	// Leading zeros coerce to the same value.
	assert.NoError(t, Validate("007", col))
	assert.Error(t, Validate("seven", col))
	assert.Error(t, Validate(true, col))

	min, max := 10.0, 20.0
	ranged := Column{Type: TypeNumber, Min: &min, Max: &max}
	assert.NoError(t, Validate("15", ranged))
	assert.Error(t, Validate("9", ranged))
	assert.Error(t, Validate("21", ranged))
}

func TestValidate_Boolean(t *testing.T) {
	col := Column{Type: TypeBoolean}

	assert.NoError(t, Validate(true, col))
	assert.NoError(t, Validate(false, col))
	assert.NoError(t, Validate("true", col))
	assert.NoError(t, Validate("FALSE", col))
	assert.Error(t, Validate("yes", col))
	assert.Error(t, Validate(1.0, col))
}

func TestValidate_Datetime(t *testing.T) {
	col := Column{Type: TypeDatetime}

	assert.NoError(t, Validate("2024-06-01T12:30:00Z", col))
	assert.NoError(t, Validate("2024-06-01", col))
	assert.NoError(t, Validate("2024-06-01 12:30:00", col))
	assert.Error(t, Validate("next tuesday", col))
}

func TestValidate_ArrayRoundTrip(t *testing.T) {
	col := Column{Type: TypeArray}

	arrays := []interface{}{
		[]interface{}{},
		[]interface{}{1.0, 2.0, 3.0},
		[]interface{}{"a", map[string]interface{}{"k": "v"}},
	}
	for _, arr := range arrays {
		raw, err := json.Marshal(arr)
		require.NoError(t, err)
		assert.NoError(t, Validate(string(raw), col), "serialized %s", raw)
		assert.NoError(t, Validate(arr, col))
	}

	assert.Error(t, Validate(`{"not":"an array"}`, col))
	assert.Error(t, Validate("not json", col))
	assert.Error(t, Validate(42.0, col))
}

func TestValidate_ObjectAndPointer(t *testing.T) {
	obj := Column{Type: TypeObject}
	assert.NoError(t, Validate(`{"a":1}`, obj))
	assert.NoError(t, Validate(map[string]interface{}{"a": 1}, obj))
	assert.Error(t, Validate("{broken", obj))

	ptr := Column{Type: TypePointer}
	assert.NoError(t, Validate("3f2b7c9a-row-id", ptr))
	assert.Error(t, Validate(17.0, ptr))
}

func TestValidate_Image(t *testing.T) {
	col := Column{Type: TypeImage}

	small := base64.StdEncoding.EncodeToString([]byte("tiny png bytes"))
	assert.NoError(t, Validate("data:image/png;base64,"+small, col))
	assert.NoError(t, Validate("data:image/svg+xml;base64,"+small, col))
	assert.NoError(t, Validate("https://example.com/cat.jpg", col))
	// URL without an image extension is accepted: the extension check is a
	// heuristic, not a gate.
	assert.NoError(t, Validate("https://example.com/render?id=12", col))

	assert.Error(t, Validate("data:image/tiff2;base64,"+small, col))
	assert.Error(t, Validate("data:image/png;base64,!!!not-base64!!!", col))
	assert.Error(t, Validate("ftp://example.com/cat.jpg", col))
	assert.Error(t, Validate(7.0, col))

	oversized := strings.Repeat("A", (maxImageBytes/3+10)*4)
	assert.Error(t, Validate("data:image/png;base64,"+oversized, col))
}
