package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesWhere_Operators(t *testing.T) {
	row := map[string]interface{}{
		"score": 150.0,
		"name":  "Widget Deluxe",
		"tag":   "a",
		"blank": "",
	}

	tests := []struct {
		name  string
		cond  map[string]interface{}
		match bool
	}{
		{"literal equality", map[string]interface{}{"tag": "a"}, true},
		{"literal mismatch", map[string]interface{}{"tag": "b"}, false},
		{"numeric string equality", map[string]interface{}{"score": "150"}, true},
		{"$gt pass", map[string]interface{}{"score": map[string]interface{}{"$gt": 100.0}}, true},
		{"$gt fail", map[string]interface{}{"score": map[string]interface{}{"$gt": 150.0}}, false},
		{"$gte boundary", map[string]interface{}{"score": map[string]interface{}{"$gte": 150.0}}, true},
		{"$lt fail", map[string]interface{}{"score": map[string]interface{}{"$lt": 150.0}}, false},
		{"$lte boundary", map[string]interface{}{"score": map[string]interface{}{"$lte": 150.0}}, true},
		{"combined range", map[string]interface{}{"score": map[string]interface{}{"$gt": 100.0, "$lte": 300.0}}, true},
		{"combined range fail", map[string]interface{}{"score": map[string]interface{}{"$gt": 100.0, "$lte": 120.0}}, false},
		{"$ne pass", map[string]interface{}{"tag": map[string]interface{}{"$ne": "b"}}, true},
		{"$ne fail", map[string]interface{}{"tag": map[string]interface{}{"$ne": "a"}}, false},
		{"$in pass", map[string]interface{}{"tag": map[string]interface{}{"$in": []interface{}{"a", "b"}}}, true},
		{"$in fail", map[string]interface{}{"tag": map[string]interface{}{"$in": []interface{}{"x"}}}, false},
		{"$in non-array fails closed", map[string]interface{}{"tag": map[string]interface{}{"$in": "a"}}, false},
		{"$nin pass", map[string]interface{}{"tag": map[string]interface{}{"$nin": []interface{}{"x"}}}, true},
		{"$nin non-array fails closed", map[string]interface{}{"tag": map[string]interface{}{"$nin": "x"}}, false},
		{"$exists true", map[string]interface{}{"tag": map[string]interface{}{"$exists": true}}, true},
		{"$exists false on missing", map[string]interface{}{"ghost": map[string]interface{}{"$exists": false}}, true},
		{"$exists empty string counts as absent", map[string]interface{}{"blank": map[string]interface{}{"$exists": false}}, true},
		{"$regex pass", map[string]interface{}{"name": map[string]interface{}{"$regex": "^Widget"}}, true},
		{"$regex fail", map[string]interface{}{"name": map[string]interface{}{"$regex": "^Gadget"}}, false},
		{"$text substring", map[string]interface{}{"name": map[string]interface{}{"$text": "deluxe"}}, true},
		{"$text miss", map[string]interface{}{"name": map[string]interface{}{"$text": "basic"}}, false},
		{"unknown operator fails closed", map[string]interface{}{"tag": map[string]interface{}{"$fuzzy": "a"}}, false},
		{"fields are ANDed", map[string]interface{}{"tag": "a", "score": map[string]interface{}{"$lt": 10.0}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, MatchesWhere(row, tt.cond))
		})
	}
}

// Dangerous patterns must be treated as non-matching, never error or hang.
func TestMatchesWhere_RegexDefensiveRejection(t *testing.T) {
	row := map[string]interface{}{"name": "aaaaaaaaaaaaaaaaaaaaaaaa!"}

	dangerous := []string{
		"(a+)+$",
		"(a*)*b",
		"(x+y+)+z",
		"a++",
		strings.Repeat("a", 250),
		"[unclosed",
	}
	for _, pattern := range dangerous {
		cond := map[string]interface{}{"name": map[string]interface{}{"$regex": pattern}}
		assert.False(t, MatchesWhere(row, cond), "pattern %q must be non-matching", pattern)
	}

	// Long subjects are capped, not rejected.
	long := map[string]interface{}{"name": strings.Repeat("x", 20000)}
	cond := map[string]interface{}{"name": map[string]interface{}{"$regex": "^x+$"}}
	assert.True(t, MatchesWhere(long, cond))
}

func TestMatchesTextSearch(t *testing.T) {
	row := map[string]interface{}{"name": "Deluxe Widget", "score": 42.0}

	assert.True(t, MatchesTextSearch(row, "deluxe"))
	assert.True(t, MatchesTextSearch(row, "42"))
	assert.False(t, MatchesTextSearch(row, "gadget"))
}
