package identity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used when hashing passwords
var PasswordCost = 12

var (
	passwordLetter = regexp.MustCompile(`[a-zA-Z]`)
	passwordNumber = regexp.MustCompile(`[0-9]`)
)

// Role gates admin-only actions
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// CompanyRef is a company/branch a user may act for
type CompanyRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// CompanyRefs implements GORM Scanner/Valuer for JSONB storage
type CompanyRefs []CompanyRef

// Value implements driver.Valuer
func (c CompanyRefs) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (c *CompanyRefs) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		*c = CompanyRefs{}
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan CompanyRefs: unsupported type")
	}
	if len(bytes) == 0 {
		*c = CompanyRefs{}
		return nil
	}
	return json.Unmarshal(bytes, c)
}

// User is an operator of the ledger. Its display name is stamped on payment
// and withdrawal records as the responsible party.
type User struct {
	shared.BaseAggregateRoot
	FullName            string
	Email               string
	Role                Role
	PasswordHash        string
	IsActive            bool
	Companies           CompanyRefs
	SelectedCompanyID   *uuid.UUID
	SelectedCompanyName string
	LastLoginAt         *time.Time
}

// NewUser creates an active user with a hashed password
func NewUser(fullName, email, password string, role Role) (*User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Full name cannot be empty")
	}
	if len(fullName) > 100 {
		return nil, shared.NewDomainError("INVALID_NAME", "Full name cannot exceed 100 characters")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Role must be admin or user")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FullName:          fullName,
		Email:             email,
		Role:              role,
		PasswordHash:      hash,
		IsActive:          true,
		Companies:         CompanyRefs{},
	}, nil
}

// VerifyPassword verifies if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// IsAdmin reports whether the user may perform admin-only actions
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// GrantCompany adds a company to the user's allowed list
func (u *User) GrantCompany(id uuid.UUID, name string) {
	for i, c := range u.Companies {
		if c.ID == id {
			u.Companies[i].Name = name
			return
		}
	}
	u.Companies = append(u.Companies, CompanyRef{ID: id, Name: strings.TrimSpace(name)})
}

// SelectCompany sets the active company. Users may only select companies
// granted to them.
func (u *User) SelectCompany(id uuid.UUID) error {
	for _, c := range u.Companies {
		if c.ID == id {
			selected := c.ID
			u.SelectedCompanyID = &selected
			u.SelectedCompanyName = c.Name
			u.IncrementVersion()
			return nil
		}
	}
	return shared.NewDomainError(shared.CodeForbidden, "Company is not available to this user")
}

// CanAccessCompany reports whether the user was granted the company
func (u *User) CanAccessCompany(id uuid.UUID) bool {
	for _, c := range u.Companies {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Rename updates the display name
func (u *User) Rename(fullName string) error {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return shared.NewDomainError("INVALID_NAME", "Full name cannot be empty")
	}
	if len(fullName) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Full name cannot exceed 100 characters")
	}
	u.FullName = fullName
	u.IncrementVersion()
	return nil
}

// RecordLogin stamps the last login time
func (u *User) RecordLogin() {
	now := time.Now()
	u.LastLoginAt = &now
	u.IncrementVersion()
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	if !passwordLetter.MatchString(password) || !passwordNumber.MatchString(password) {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must contain at least one letter and one number")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return shared.NewDomainError("INVALID_EMAIL", "Email format is not valid")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
