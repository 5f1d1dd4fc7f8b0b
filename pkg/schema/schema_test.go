package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name  string             `json:"name"`
	Count int                `json:"count"`
	Tags  []string           `json:"tags,omitempty"`
	Attrs map[string]float64 `json:"attrs,omitempty"`
	Extra map[string]any     `json:"extra,omitempty"`
	On    bool               `json:"on,omitempty"`
}

type doc struct {
	Title string  `json:"title"`
	Score float64 `json:"score"`
	Items []item  `json:"items"`
	Note  string  `json:"note,omitempty"`
}

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestValidate(t *testing.T) {
	s := For[doc]("doc")

	tests := []struct {
		name     string
		input    string
		wantPath string
	}{
		{
			name:  "valid minimal",
			input: `{"title":"a","score":1.5,"items":[]}`,
		},
		{
			name:  "valid nested with extras",
			input: `{"title":"a","score":1,"items":[{"name":"x","count":2.0,"tags":["t"],"attrs":{"w":1},"extra":{"k":[1,"s"]}}],"unknown":true}`,
		},
		{
			name:  "optional null tolerated",
			input: `{"title":"a","score":1,"items":[],"note":null}`,
		},
		{
			name:     "missing required",
			input:    `{"title":"a","items":[]}`,
			wantPath: "$.score",
		},
		{
			name:     "required null",
			input:    `{"title":null,"score":1,"items":[]}`,
			wantPath: "$.title",
		},
		{
			name:     "wrong scalar type",
			input:    `{"title":"a","score":"high","items":[]}`,
			wantPath: "$.score",
		},
		{
			name:     "non-integral integer",
			input:    `{"title":"a","score":1,"items":[{"name":"x","count":2.5}]}`,
			wantPath: "$.items[0].count",
		},
		{
			name:     "array element type",
			input:    `{"title":"a","score":1,"items":[{"name":"x","count":1,"tags":[1]}]}`,
			wantPath: "$.items[0].tags[0]",
		},
		{
			name:     "map value type",
			input:    `{"title":"a","score":1,"items":[{"name":"x","count":1,"attrs":{"w":"wide"}}]}`,
			wantPath: "$.items[0].attrs.w",
		},
		{
			name:     "root not object",
			input:    `[1,2]`,
			wantPath: "$",
		},
		{
			name:     "items not array",
			input:    `{"title":"a","score":1,"items":{}}`,
			wantPath: "$.items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(decode(t, tt.input))
			if tt.wantPath == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantPath, verr.Path)
		})
	}
}

func TestJSON(t *testing.T) {
	s := For[doc]("doc")
	m, err := s.JSON()
	require.NoError(t, err)

	assert.Equal(t, "object", m["type"])
	assert.NotContains(t, m, "$schema")
	assert.ElementsMatch(t, []any{"title", "score", "items"}, m["required"])
}

func TestFields(t *testing.T) {
	s := For[doc]("doc")
	assert.Equal(t, []string{"title", "score", "items", "note"}, s.Fields())
}
