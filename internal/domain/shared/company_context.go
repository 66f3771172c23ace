package shared

import (
	"context"

	"github.com/google/uuid"
)

// CompanyContext is the active company/branch selection plus the acting user.
// It is passed explicitly to every service call that reads or writes
// company-scoped records.
type CompanyContext struct {
	CompanyID   uuid.UUID
	CompanyName string
	UserID      uuid.UUID
	UserName    string
}

// NewCompanyContext builds a CompanyContext, rejecting a missing company
func NewCompanyContext(companyID uuid.UUID, companyName string, userID uuid.UUID, userName string) (CompanyContext, error) {
	if companyID == uuid.Nil {
		return CompanyContext{}, NewDomainError("COMPANY_REQUIRED", "A company must be selected")
	}
	return CompanyContext{
		CompanyID:   companyID,
		CompanyName: companyName,
		UserID:      userID,
		UserName:    userName,
	}, nil
}

// Validate reports whether the context names a company
func (c CompanyContext) Validate() error {
	if c.CompanyID == uuid.Nil {
		return NewDomainError("COMPANY_REQUIRED", "A company must be selected")
	}
	return nil
}

// HasUser reports whether an acting user is known
func (c CompanyContext) HasUser() bool {
	return c.UserID != uuid.Nil
}

type companyContextKey struct{}

// WithCompanyContext stores cc in ctx
func WithCompanyContext(ctx context.Context, cc CompanyContext) context.Context {
	return context.WithValue(ctx, companyContextKey{}, cc)
}

// CompanyContextFrom returns the CompanyContext stored in ctx, if any
func CompanyContextFrom(ctx context.Context) (CompanyContext, bool) {
	cc, ok := ctx.Value(companyContextKey{}).(CompanyContext)
	return cc, ok
}
