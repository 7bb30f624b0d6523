package models

import "time"

// AdminView is the externally visible shape of an administrator.
// It never carries the password hash.
type AdminView struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	Name        string       `json:"name"`
	Department  string       `json:"department"`
	Role        Role         `json:"role"`
	Permissions []Permission `json:"permissions"`
	IsActive    bool         `json:"is_active"`
	LastLogin   *time.Time   `json:"last_login,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// NewAdminView projects an Admin into its external shape.
func NewAdminView(a *Admin) AdminView {
	view := AdminView{
		ID:          a.ID.String(),
		Email:       a.Email,
		Name:        a.Name,
		Department:  a.Department,
		Role:        a.Role,
		Permissions: a.Permissions,
		IsActive:    a.IsActive,
		CreatedAt:   a.CreatedAt,
	}
	if !a.LastLogin.IsZero() {
		last := a.LastLogin
		view.LastLogin = &last
	}
	return view
}

// HolderView is the externally visible shape of a credential holder.
// It never carries the password hash.
type HolderView struct {
	ID                 string       `json:"id"`
	Email              string       `json:"email"`
	Name               string       `json:"name"`
	HolderCode         string       `json:"holder_code"`
	Program            string       `json:"program"`
	EnrolledAt         *time.Time   `json:"enrolled_at,omitempty"`
	ExpectedCompletion *time.Time   `json:"expected_completion,omitempty"`
	Status             HolderStatus `json:"status"`
	CertificateIDs     []string     `json:"certificate_ids"`
	IsActive           bool         `json:"is_active"`
	LastLogin          *time.Time   `json:"last_login,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
}

// NewHolderView projects a Holder into its external shape.
func NewHolderView(h *Holder) HolderView {
	view := HolderView{
		ID:             h.ID.String(),
		Email:          h.Email,
		Name:           h.Name,
		HolderCode:     h.HolderCode,
		Program:        h.Program,
		Status:         h.Status,
		CertificateIDs: h.CertificateIDs,
		IsActive:       h.IsActive,
		CreatedAt:      h.CreatedAt,
	}
	if view.CertificateIDs == nil {
		view.CertificateIDs = []string{}
	}
	if !h.EnrolledAt.IsZero() {
		t := h.EnrolledAt
		view.EnrolledAt = &t
	}
	if !h.ExpectedCompletion.IsZero() {
		t := h.ExpectedCompletion
		view.ExpectedCompletion = &t
	}
	if !h.LastLogin.IsZero() {
		t := h.LastLogin
		view.LastLogin = &t
	}
	return view
}
