// internal/common/validation/fields.go
package validation

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	MinNRCDigits   = 9
	MinPhoneDigits = 10
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// DigitCount counts ASCII digits in s, ignoring separators.
func DigitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// Digits strips everything but ASCII digits.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func Blank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}

// Required appends a MISSING_REQUIRED error when value is blank.
func Required(errs []ValidationError, field, value, label string) []ValidationError {
	if Blank(value) {
		errs = append(errs, ValidationError{Field: field, Code: "MISSING_REQUIRED", Message: label + " is required."})
	}
	return errs
}

// NRC accepts any separator layout as long as enough digits are present.
func NRC(errs []ValidationError, field, value string) []ValidationError {
	switch {
	case Blank(value):
		return append(errs, ValidationError{Field: field, Code: "MISSING_REQUIRED", Message: "NRC is required."})
	case DigitCount(value) < MinNRCDigits:
		return append(errs, ValidationError{Field: field, Code: "INVALID_FORMAT", Message: "Invalid NRC format (too short)."})
	}
	return errs
}

func Phone(errs []ValidationError, field, value string) []ValidationError {
	switch {
	case Blank(value):
		return append(errs, ValidationError{Field: field, Code: "MISSING_REQUIRED", Message: "Phone is required."})
	case DigitCount(value) < MinPhoneDigits:
		return append(errs, ValidationError{Field: field, Code: "INVALID_FORMAT", Message: "Phone must have at least 10 digits."})
	}
	return errs
}

func Email(errs []ValidationError, field, value string) []ValidationError {
	switch {
	case Blank(value):
		return append(errs, ValidationError{Field: field, Code: "MISSING_REQUIRED", Message: "Email is required."})
	case !emailPattern.MatchString(value):
		return append(errs, ValidationError{Field: field, Code: "INVALID_FORMAT", Message: "Invalid email address format."})
	}
	return errs
}

// OneOf appends INVALID_VALUE unless value is exactly one of allowed.
func OneOf(errs []ValidationError, field, value string, allowed ...string) []ValidationError {
	for _, a := range allowed {
		if value == a {
			return errs
		}
	}
	return append(errs, ValidationError{
		Field:   field,
		Code:    "INVALID_VALUE",
		Message: "must be one of " + strings.Join(allowed, ", "),
	})
}
