package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"leading prose", `Here is the result: {"a": 1} hope that helps`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"nested object", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`},
		{"brace inside string", `{"a": "has } brace"}`, `{"a": "has } brace"}`},
		{"escaped quote inside string", `{"a": "she said \"}\""}`, `{"a": "she said \"}\""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("no object", func(t *testing.T) {
		_, err := ExtractJSONObject("just prose, no JSON here")
		assert.Error(t, err)
	})

	t.Run("unbalanced", func(t *testing.T) {
		_, err := ExtractJSONObject(`{"a": 1`)
		assert.Error(t, err)
	})
}

func TestExtractJSONArray(t *testing.T) {
	t.Run("bare array", func(t *testing.T) {
		got, err := ExtractJSONArray(`["a", "b"]`)
		require.NoError(t, err)
		assert.Equal(t, `["a", "b"]`, got)
	})

	t.Run("fenced with prose", func(t *testing.T) {
		got, err := ExtractJSONArray("Sure!\n```json\n[\"q1\", \"q2\"]\n```")
		require.NoError(t, err)
		assert.Equal(t, `["q1", "q2"]`, got)
	})

	t.Run("bracket inside string", func(t *testing.T) {
		got, err := ExtractJSONArray(`["a ] b", "c"]`)
		require.NoError(t, err)
		assert.Equal(t, `["a ] b", "c"]`, got)
	})

	t.Run("no array", func(t *testing.T) {
		_, err := ExtractJSONArray("nothing structured")
		assert.Error(t, err)
	})
}
