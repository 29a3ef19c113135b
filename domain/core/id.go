package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AuditID names one audit session for the life of the archive.
//
// IDs are minted as UUID version 7 so that archive listings and
// exported workbook names sort by creation time without a separate
// sequence column.
type AuditID string

// NewAuditID mints a fresh identifier. The random v4 form is only used
// if the monotonic v7 generator is unavailable.
func NewAuditID() AuditID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return AuditID(id.String())
}

// ParseAuditID validates an identifier arriving from a URL or file.
func ParseAuditID(raw string) (AuditID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("audit ID cannot be empty")
	}
	if _, err := uuid.Parse(raw); err != nil {
		return "", fmt.Errorf("audit ID must be a UUID: %w", err)
	}
	return AuditID(raw), nil
}

// String returns the canonical UUID text.
func (id AuditID) String() string { return string(id) }

// IsEmpty reports an unset identifier.
func (id AuditID) IsEmpty() bool { return id == "" }
