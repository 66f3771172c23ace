package models

import (
	"time"

	"github.com/erp/settlement/internal/domain/identity"
	"github.com/google/uuid"
)

// UserModel is the persistence model for the User aggregate root.
type UserModel struct {
	AggregateModel
	FullName            string               `gorm:"type:varchar(100);not null"`
	Email               string               `gorm:"type:varchar(200);not null;uniqueIndex"`
	Role                identity.Role        `gorm:"type:varchar(10);not null;default:'user'"`
	PasswordHash        string               `gorm:"type:varchar(255);not null"`
	IsActive            bool                 `gorm:"not null;default:true"`
	Companies           identity.CompanyRefs `gorm:"type:jsonb;not null;default:'[]'"`
	SelectedCompanyID   *uuid.UUID           `gorm:"column:company_id;type:uuid"`
	SelectedCompanyName string               `gorm:"column:company_name;type:varchar(200)"`
	LastLoginAt         *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot:   m.ToDomainAggregateRoot(),
		FullName:            m.FullName,
		Email:               m.Email,
		Role:                m.Role,
		PasswordHash:        m.PasswordHash,
		IsActive:            m.IsActive,
		Companies:           m.Companies,
		SelectedCompanyID:   m.SelectedCompanyID,
		SelectedCompanyName: m.SelectedCompanyName,
		LastLoginAt:         m.LastLoginAt,
	}
}

// UserModelFromDomain creates a persistence model from a domain User
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		FullName:            u.FullName,
		Email:               u.Email,
		Role:                u.Role,
		PasswordHash:        u.PasswordHash,
		IsActive:            u.IsActive,
		Companies:           u.Companies,
		SelectedCompanyID:   u.SelectedCompanyID,
		SelectedCompanyName: u.SelectedCompanyName,
		LastLoginAt:         u.LastLoginAt,
	}
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	return m
}
