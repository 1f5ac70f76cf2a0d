package sanitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trim spaces", input: "  Power Drill  ", want: "Power Drill"},
		{name: "multiple spaces between words", input: "Power    Drill", want: "Power Drill"},
		{name: "tabs and newlines", input: "Power\t\nDrill", want: "Power Drill"},
		{name: "empty string", input: "", want: ""},
		{name: "only whitespace", input: "   \t\n  ", want: ""},
		{name: "preserve special characters", input: " Café & Spa™ ", want: "Café & Spa™"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeName(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeName(got), "must be idempotent")
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@mail.com", NormalizeEmail("  User@Mail.COM "))
	assert.Equal(t, "a@b.c", NormalizeEmail("a@b.c\x00"))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestNormalizeSearchText(t *testing.T) {
	assert.Equal(t, "drill bit", NormalizeSearchText("  drill\t bit "))
	assert.Equal(t, "", NormalizeSearchText("\x01  "))
}

func TestNormalizeComment_KeepsInnerNewlines(t *testing.T) {
	assert.Equal(t, "great\nthanks", NormalizeComment("  great\nthanks \n"))
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []int64{3, 1, 2}, UniqueIDs([]int64{3, 0, 1, 3, 2, 1}))
	assert.Empty(t, UniqueIDs(nil))
}

func TestNormalizeStringSlice(t *testing.T) {
	got := NormalizeStringSlice([]string{" a ", "A", "", "b"}, NormalizeEmail)
	assert.Equal(t, []string{"a", "b"}, got)
}
