package models

import "time"

// RegisterAdminRequest creates a new administrator. Only registrars holding
// manage_users may submit it.
type RegisterAdminRequest struct {
	Email       string   `json:"email" validate:"required,email"`
	Secret      string   `json:"secret" validate:"required,min=8"`
	Name        string   `json:"name" validate:"required,notblank"`
	Department  string   `json:"department" validate:"required,notblank"`
	Role        string   `json:"role" validate:"omitempty,oneof=admin super_admin"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,oneof=create_certificate revoke_certificate view_users manage_users system_settings"`
}

// RegisterHolderRequest self-registers a credential holder.
type RegisterHolderRequest struct {
	Email              string     `json:"email" validate:"required,email"`
	Secret             string     `json:"secret" validate:"required,min=8"`
	Name               string     `json:"name" validate:"required,notblank"`
	HolderCode         string     `json:"holder_code" validate:"required,notblank"`
	Program            string     `json:"program" validate:"required,notblank"`
	EnrolledAt         *time.Time `json:"enrolled_at"`
	ExpectedCompletion *time.Time `json:"expected_completion"`
}

// UpdateAdminProfileRequest updates mutable admin profile fields.
// Email and role are immutable through this request.
type UpdateAdminProfileRequest struct {
	Name       string `json:"name" validate:"omitempty,notblank"`
	Department string `json:"department" validate:"omitempty,notblank"`
	Secret     string `json:"secret" validate:"omitempty,min=8"`
}

// UpdateHolderProfileRequest updates mutable holder profile fields.
// Email and holder code are immutable through this request.
type UpdateHolderProfileRequest struct {
	Name    string `json:"name" validate:"omitempty,notblank"`
	Program string `json:"program" validate:"omitempty,notblank"`
	Secret  string `json:"secret" validate:"omitempty,min=8"`
}

// HolderFilter narrows holder listings for administrative views.
type HolderFilter struct {
	Status  HolderStatus
	Program string
	Search  string
}
