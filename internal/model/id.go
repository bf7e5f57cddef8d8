package model

import "github.com/google/uuid"

// NewID produces a version-4 random record identifier. Collision
// probability is treated as negligible; global uniqueness is enforced
// logically by the record store.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id has the canonical hyphenated v4 shape.
func ValidID(id string) bool {
	if len(id) != 36 || id[8] != '-' || id[13] != '-' || id[18] != '-' || id[23] != '-' {
		return false
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	return u.Version() == 4 && u.Variant() == uuid.RFC4122
}
