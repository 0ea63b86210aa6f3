package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSkills(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil", in: nil, want: []string{}},
		{name: "trims and drops empty", in: []string{" Go ", "", "   "}, want: []string{"Go"}},
		{name: "dedupes keeping first", in: []string{"Python", "Design", "Python"}, want: []string{"Python", "Design"}},
		{name: "case sensitive", in: []string{"Go", "go"}, want: []string{"Go", "go"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSkills(tt.in))
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.True(t, ValidatePassword("12345").HasErrors())
	assert.False(t, ValidatePassword("123456").HasErrors())
}

func TestValidateName(t *testing.T) {
	assert.False(t, ValidateName(" a "))
	assert.True(t, ValidateName("Al"))
	assert.True(t, ValidateName("Zoë"))
	assert.False(t, ValidateName(strings.Repeat("x", 101)))
}

func TestValidateSkills(t *testing.T) {
	errs := ValidateSkills("skills", []string{"Go", strings.Repeat("x", MaxSkillLength+1)})
	assert.Len(t, errs, 1)
	assert.Equal(t, "skills", errs[0].Field)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "héll", SanitizeString("  héllo  ", 4))
	assert.Equal(t, "hi", SanitizeString(" hi ", 10))
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	assert.False(t, errs.HasErrors())
	errs.Add("name", "required")
	errs.Add("bio", "too long")
	assert.EqualError(t, errs, "name: required; bio: too long")
}
