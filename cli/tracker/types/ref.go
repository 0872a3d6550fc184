package types

import (
	"regexp"

	"github.com/google/uuid"
)

var objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// IsWellFormedRef reports whether s is usable as a canonical record reference:
// a 24-character hex id or a UUID.
func IsWellFormedRef(s string) bool {
	if objectIDPattern.MatchString(s) {
		return true
	}
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
