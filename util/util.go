// Package util contains misc internal utilities.
package util

import (
	"errors"
	"strings"
	"unicode"
)

// MergeErrors folds a slice of errors, which may contain nils, into a
// single error whose message joins the non-nil entries.  Returns nil if
// every entry is nil.
func MergeErrors(errs []error) error {
	msgs := []string{}
	for _, err := range errs {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return errors.New(strings.Join(msgs, "; "))
}

// AllElementsNumbers returns true if every rune in the string is a digit
// or decimal separator; used to detect bare numbers that need a unit
// suffix appended before duration parsing.
func AllElementsNumbers(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return false
		}
	}
	return len(s) > 0
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
