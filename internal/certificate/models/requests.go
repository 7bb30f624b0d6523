package models

import "time"

// IssueRequest carries the details for a certificate issuance.
// HolderEmail and HolderName are snapshotted onto the record.
type IssueRequest struct {
	HolderCode     string     `json:"holder_code" validate:"required,notblank"`
	HolderName     string     `json:"holder_name" validate:"required,notblank"`
	HolderEmail    string     `json:"holder_email" validate:"required,email"`
	Course         string     `json:"course" validate:"required,notblank"`
	Degree         string     `json:"degree" validate:"required,notblank"`
	Grade          string     `json:"grade"`
	CompletionDate *time.Time `json:"completion_date"`
}

// RevokeRequest carries the reason for a revocation. The reason is
// optional; a default is recorded when omitted.
type RevokeRequest struct {
	Reason string `json:"reason"`
}
