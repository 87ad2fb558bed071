package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name     string
		response string
		conflict bool
	}{
		{"yes prefix", "Yes, section 4 contradicts the visitor policy.", true},
		{"upper case yes", "YES. The policies conflict.", true},
		{"lower case yes", "yes", true},
		{"no prefix", "No.", false},
		{"lower case no", "no conflict found", false},
		{"yes later in text", "No, although yes appears later.", false},
		{"leading space pushes yes past prefix", "  Yes", false},
		{"empty", "", false},
		{"short", "Y", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ParseVerdict(tt.response)
			assert.Equal(t, tt.conflict, v.Conflict)
			assert.Equal(t, tt.response, v.Explanation)
		})
	}
}

func TestIsRelated(t *testing.T) {
	assert.True(t, IsRelated("Yes"))
	assert.True(t, IsRelated("The answer is YES."))
	assert.False(t, IsRelated("No"))
	assert.False(t, IsRelated(""))
}

func TestIsNegativeReference(t *testing.T) {
	assert.True(t, IsNegativeReference("No"))
	assert.True(t, IsNegativeReference("no."))
	assert.False(t, IsNegativeReference("Page 3 states the rule."))
	assert.False(t, IsNegativeReference(""))
	assert.False(t, IsNegativeReference("N"))
}

func TestPageLabel(t *testing.T) {
	assert.Equal(t, "PAGE NUMBER 1 ", PageLabel(1))
	assert.Equal(t, "PAGE NUMBER 42 ", PageLabel(42))
}

func TestChunk_Pages(t *testing.T) {
	c := Chunk{FirstPage: 21, LastPage: 40}
	assert.Equal(t, 20, c.Pages())
}
