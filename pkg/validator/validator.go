package validator

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength = 6
	MaxBioLength      = 500
	MaxSkillLength    = 60
	MaxSkills         = 50
	MaxMessageLength  = 2000
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var msgs []string
	for _, e := range v {
		msgs = append(msgs, e.Field+": "+e.Message)
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any errors
func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

// Add adds a validation error
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

// ValidateEmail validates an email address
func ValidateEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// ValidatePassword applies the identity provider's minimum length rule
func ValidatePassword(password string) ValidationErrors {
	var errs ValidationErrors
	if utf8.RuneCountInString(password) < MinPasswordLength {
		errs.Add("password", "must be at least 6 characters long")
	}
	return errs
}

// ValidateName validates a display name
func ValidateName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= 2 && n <= 100
}

// ValidateSkills checks a normalized skill list
func ValidateSkills(field string, skills []string) ValidationErrors {
	var errs ValidationErrors
	if len(skills) > MaxSkills {
		errs.Add(field, "too many skills")
	}
	for _, s := range skills {
		if utf8.RuneCountInString(s) > MaxSkillLength {
			errs.Add(field, "skill \""+s+"\" is too long")
		}
	}
	return errs
}

// NormalizeSkills trims labels, drops empty ones and removes duplicates.
// Case is preserved; "Go" and "go" are different skills.
func NormalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// SanitizeString trims whitespace and limits length in runes
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxLen {
		return string([]rune(s)[:maxLen])
	}
	return s
}

// SanitizeEmail normalizes an email address
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
