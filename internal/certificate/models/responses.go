package models

import "time"

// View is the administrative shape of a certificate, including
// revocation metadata.
type View struct {
	CertificateID    string     `json:"certificate_id"`
	HolderID         string     `json:"holder_id"`
	HolderName       string     `json:"holder_name"`
	HolderEmail      string     `json:"holder_email"`
	Course           string     `json:"course"`
	Degree           string     `json:"degree"`
	Institution      string     `json:"institution"`
	Grade            string     `json:"grade,omitempty"`
	CompletionDate   *time.Time `json:"completion_date,omitempty"`
	IssuedAt         time.Time  `json:"issued_at"`
	Status           Status     `json:"status"`
	LedgerHash       string     `json:"ledger_hash"`
	IssuedBy         string     `json:"issued_by"`
	RevokedBy        string     `json:"revoked_by,omitempty"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	RevocationReason string     `json:"revocation_reason,omitempty"`
}

// NewView projects a certificate into its administrative shape.
func NewView(c *Certificate) View {
	view := View{
		CertificateID: c.CertificateID,
		HolderID:      c.HolderID.String(),
		HolderName:    c.HolderName,
		HolderEmail:   c.HolderEmail,
		Course:        c.Course,
		Degree:        c.Degree,
		Institution:   c.Institution,
		Grade:         c.Grade,
		IssuedAt:      c.IssuedAt,
		Status:        c.Status,
		LedgerHash:    c.LedgerHash,
		IssuedBy:      c.IssuedBy.String(),
	}
	if !c.CompletionDate.IsZero() {
		t := c.CompletionDate
		view.CompletionDate = &t
	}
	if c.Status == StatusRevoked {
		view.RevokedBy = c.RevokedBy.String()
		if !c.RevokedAt.IsZero() {
			t := c.RevokedAt
			view.RevokedAt = &t
		}
		view.RevocationReason = c.RevocationReason
	}
	return view
}

// Summary is the public shape of a certificate returned by the
// unauthenticated verify endpoint. It never includes the revocation
// reason, the revoker, or other administrative metadata.
type Summary struct {
	CertificateID  string     `json:"certificate_id"`
	HolderName     string     `json:"holder_name"`
	Course         string     `json:"course"`
	Degree         string     `json:"degree"`
	Institution    string     `json:"institution"`
	Grade          string     `json:"grade,omitempty"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
	IssuedAt       time.Time  `json:"issued_at"`
	Status         Status     `json:"status"`
	LedgerHash     string     `json:"ledger_hash"`
}

// NewSummary projects a certificate into its public shape.
func NewSummary(c *Certificate) Summary {
	summary := Summary{
		CertificateID: c.CertificateID,
		HolderName:    c.HolderName,
		Course:        c.Course,
		Degree:        c.Degree,
		Institution:   c.Institution,
		Grade:         c.Grade,
		IssuedAt:      c.IssuedAt,
		Status:        c.Status,
		LedgerHash:    c.LedgerHash,
	}
	if !c.CompletionDate.IsZero() {
		t := c.CompletionDate
		summary.CompletionDate = &t
	}
	return summary
}

// VerificationResult is returned by the public verify operation.
type VerificationResult struct {
	IsValid     bool    `json:"is_valid"`
	Certificate Summary `json:"certificate"`
}

// Stats reports aggregate certificate numbers for administrators.
type Stats struct {
	Total           int `json:"total"`
	Active          int `json:"active"`
	Revoked         int `json:"revoked"`
	IssuedThisMonth int `json:"issued_this_month"`
}

// Page is a paginated certificate listing.
type Page struct {
	Items      []View `json:"items"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalCount int    `json:"total_count"`
}
