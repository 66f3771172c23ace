package identity

import (
	"time"

	"github.com/erp/settlement/internal/domain/identity"
	"github.com/google/uuid"
)

// LoginRequest contains the credentials for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=200"`
	Password string `json:"password" binding:"required,min=1,max=72"`
}

// LoginResult contains the issued token and the user profile
type LoginResult struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        UserProfile `json:"user"`
}

// CompanyInfo is a company the user may act for
type CompanyInfo struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// UserProfile is the current user as returned by me()
type UserProfile struct {
	ID                  uuid.UUID     `json:"id"`
	FullName            string        `json:"full_name"`
	Email               string        `json:"email"`
	Role                string        `json:"role"`
	Companies           []CompanyInfo `json:"companies"`
	SelectedCompanyID   *uuid.UUID    `json:"selected_company_id,omitempty"`
	SelectedCompanyName string        `json:"selected_company_name,omitempty"`
	LastLoginAt         *time.Time    `json:"last_login_at,omitempty"`
}

// ToUserProfile converts a domain user
func ToUserProfile(u *identity.User) UserProfile {
	companies := make([]CompanyInfo, len(u.Companies))
	for i, c := range u.Companies {
		companies[i] = CompanyInfo{ID: c.ID, Name: c.Name}
	}
	return UserProfile{
		ID:                  u.ID,
		FullName:            u.FullName,
		Email:               u.Email,
		Role:                string(u.Role),
		Companies:           companies,
		SelectedCompanyID:   u.SelectedCompanyID,
		SelectedCompanyName: u.SelectedCompanyName,
		LastLoginAt:         u.LastLoginAt,
	}
}

// UpdateMeRequest is a partial update of the current user. Selecting a
// company re-issues the token so the new company travels in the claims.
type UpdateMeRequest struct {
	FullName          *string    `json:"full_name" binding:"omitempty,min=1,max=100"`
	SelectedCompanyID *uuid.UUID `json:"selected_company_id"`
}

// UpdateMeResult is the updated profile and, when the company changed, a fresh token
type UpdateMeResult struct {
	User  UserProfile  `json:"user"`
	Token *LoginResult `json:"token,omitempty"`
}

// CreateUserRequest registers an operator with access to some companies
type CreateUserRequest struct {
	FullName  string        `json:"full_name" binding:"required,min=1,max=100"`
	Email     string        `json:"email" binding:"required,email,max=200"`
	Password  string        `json:"password" binding:"required,min=8,max=72"`
	Role      string        `json:"role" binding:"required,oneof=admin user"`
	Companies []CompanyInfo `json:"companies"`
}

// LogoutRequest identifies the token to revoke
type LogoutRequest struct {
	TokenID string
	TTL     time.Duration
}
