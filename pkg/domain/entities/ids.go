package entities

import (
	"fmt"

	"github.com/google/uuid"
)

// SeasonID identifies one season aggregate
type SeasonID string

// NewSeasonID generates a random season identifier
func NewSeasonID() SeasonID {
	return SeasonID(uuid.New().String())
}

// ParseSeasonID validates s as a UUID and returns it as a SeasonID
func ParseSeasonID(s string) (SeasonID, error) {
	if s == "" {
		return "", fmt.Errorf("season id cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid season id: %w", err)
	}
	return SeasonID(parsed.String()), nil
}

// String returns the string representation of the id
func (id SeasonID) String() string {
	return string(id)
}
