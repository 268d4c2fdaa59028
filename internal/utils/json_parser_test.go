package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type leadArgs struct {
	Name     string      `json:"name"`
	Phone    string      `json:"phone"`
	Email    string      `json:"email"`
	Bedrooms interface{} `json:"bedrooms"`
	Notes    string      `json:"notes"`
}

func TestDecodeToolArguments(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  leadArgs
	}{
		{
			name:  "strict JSON",
			input: `{"name":"Sara","phone":"+971 50 123 4567"}`,
			want:  leadArgs{Name: "Sara", Phone: "+971 50 123 4567"},
		},
		{
			name:  "markdown fence",
			input: "```json\n{\"email\":\"a@b.ae\"}\n```",
			want:  leadArgs{Email: "a@b.ae"},
		},
		{
			name:  "surrounding text",
			input: `Calling tool with {"name":"Omar","notes":"likes {sea} views"} now`,
			want:  leadArgs{Name: "Omar", Notes: "likes {sea} views"},
		},
		{
			name:  "trailing comma",
			input: `{"name":"Lina","bedrooms":2,}`,
			want:  leadArgs{Name: "Lina", Bedrooms: float64(2)},
		},
		{
			name:  "bare keys and single quotes",
			input: `{name: 'Ravi', phone: '0501234567'}`,
			want:  leadArgs{Name: "Ravi", Phone: "0501234567"},
		},
		{
			name:  "apostrophe inside value",
			input: `{'name': 'D\u0027Souza', 'notes': 'it's near the park'}`,
			want:  leadArgs{Name: "D'Souza", Notes: "it's near the park"},
		},
		{
			name:  "empty string is an empty object",
			input: "   ",
			want:  leadArgs{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got leadArgs
			require.NoError(t, DecodeToolArguments(tt.input, &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeToolArguments_Invalid(t *testing.T) {
	var got leadArgs
	err := DecodeToolArguments("no arguments here", &got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid tool arguments")
}

func TestFirstObject(t *testing.T) {
	assert.Equal(t, `{"a":{"b":1}}`, firstObject(`x {"a":{"b":1}} y {"c":2}`))
	assert.Equal(t, `{"a":"}"}`, firstObject(`{"a":"}"}`))
	assert.Equal(t, "", firstObject(`{"unclosed": 1`))
	assert.Equal(t, "", firstObject(`plain`))
}
