package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a certificate. Transitions are
// monotone: Valid may become Revoked, never the reverse. Pending is
// declared for forward compatibility and unreachable through any
// exposed operation.
type Status string

const (
	StatusValid   Status = "Valid"
	StatusRevoked Status = "Revoked"
	StatusPending Status = "Pending"
)

// Certificate is an issued credential record. CertificateID is immutable
// and globally unique. HolderName and HolderEmail are denormalized at
// issue time; profile edits do not retroactively update them.
type Certificate struct {
	CertificateID    string
	HolderID         uuid.UUID
	HolderName       string
	HolderEmail      string
	Course           string
	Degree           string
	Institution      string
	Grade            string
	CompletionDate   time.Time
	IssuedAt         time.Time
	Status           Status
	LedgerHash       string
	IssuedBy         uuid.UUID
	RevokedBy        uuid.UUID
	RevokedAt        time.Time
	RevocationReason string
}

// Filter narrows administrative certificate listings.
type Filter struct {
	Status      Status
	HolderEmail string
	Course      string
}

// StatusCounts reports how many certificates exist per status.
type StatusCounts struct {
	Valid   int
	Revoked int
	Pending int
}

// Total is the sum across all statuses.
func (c StatusCounts) Total() int {
	return c.Valid + c.Revoked + c.Pending
}
