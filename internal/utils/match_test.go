package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%marina%", LikePattern("marina"))
	assert.Equal(t, `%100\%%`, LikePattern("100%"))
	assert.Equal(t, `%a\_b%`, LikePattern("a_b"))
	assert.Equal(t, `%c:\\d%`, LikePattern(`c:\d`))
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		text   string
		phrase string
		want   bool
	}{
		{"hi there", "hi", true},
		{"this is it", "hi", false},
		{"oh, hi!", "hi", true},
		{"good morning team", "good morning", true},
		{"shine", "hi", false},
		{"hey", "hey", true},
		{"they said hey", "hey", true},
		{"", "hi", false},
		{"hi", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ContainsWord(tt.text, tt.phrase), "%q in %q", tt.phrase, tt.text)
	}
}

func TestContainsAny(t *testing.T) {
	assert.True(t, ContainsAny("what is the rental yield", "roi", "yield"))
	assert.False(t, ContainsAny("show me villas", "roi", "yield"))
	assert.False(t, ContainsAny("anything", ""))
}
