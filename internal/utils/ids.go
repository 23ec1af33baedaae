package utils

import "github.com/google/uuid"

// IsUUID reports whether s parses as a canonical uuid.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
