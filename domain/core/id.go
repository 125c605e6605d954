package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	EquipmentID ID
	ImportID    ID
)

func (id EquipmentID) String() string { return ID(id).String() }
func (id ImportID) String() string    { return ID(id).String() }

// NewEquipmentID creates a fresh equipment identifier
func NewEquipmentID() EquipmentID { return EquipmentID(NewID()) }

// NewImportID creates a fresh import batch identifier
func NewImportID() ImportID { return ImportID(NewID()) }

// ParseImportID parses a string into ImportID
func ParseImportID(s string) (ImportID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("import ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid import ID %q: %w", s, err)
	}
	return ImportID(s), nil
}

// ParseEquipmentID parses a string into EquipmentID
func ParseEquipmentID(s string) (EquipmentID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("equipment ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid equipment ID %q: %w", s, err)
	}
	return EquipmentID(s), nil
}
