package persistence

import (
	"context"
	"strings"

	"github.com/erp/settlement/internal/domain/identity"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *Database
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *Database) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create inserts a user
func (r *GormUserRepository) Create(ctx context.Context, u *identity.User) error {
	return translateError(r.db.Conn(ctx).Create(models.UserModelFromDomain(u)).Error)
}

// Update persists the user with optimistic locking
func (r *GormUserRepository) Update(ctx context.Context, u *identity.User) error {
	return saveWithLock(ctx, r.db, models.UserModelFromDomain(u), u.ID, u.Version)
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var row models.UserModel
	if err := r.db.Conn(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, translateError(err)
	}
	return row.ToDomain(), nil
}

// FindByEmail finds a user by email, case-insensitively
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	var row models.UserModel
	if err := r.db.Conn(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&row).Error; err != nil {
		return nil, translateError(err)
	}
	return row.ToDomain(), nil
}
