package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/settlement/internal/domain/identity"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Auth error codes
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountInactive    = "ACCOUNT_INACTIVE"
)

// AuthService handles login, the current user's profile and logout
type AuthService struct {
	users      identity.UserRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(users identity.UserRepository, jwtService *auth.JWTService, blacklist auth.TokenBlacklist, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, jwtService: jwtService, blacklist: blacklist, logger: logger}
}

// Login checks the password and issues an access token
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	invalid := shared.NewDomainError(CodeInvalidCredentials, "Invalid email or password")

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("login for unknown email", zap.String("email", email))
			return nil, invalid
		}
		return nil, err
	}
	if !user.VerifyPassword(req.Password) {
		s.logger.Warn("invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, invalid
	}
	if !user.IsActive {
		return nil, shared.NewDomainError(CodeAccountInactive, "Account has been deactivated")
	}

	user.RecordLogin()
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error("failed to record login", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", zap.String("user_id", user.ID.String()))
	return result, nil
}

func (s *AuthService) issue(user *identity.User) (*LoginResult, error) {
	token, err := s.jwtService.Issue(user)
	if err != nil {
		s.logger.Error("failed to issue token", zap.Error(err))
		return nil, err
	}
	return &LoginResult{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt,
		User:        ToUserProfile(user),
	}, nil
}

// Me returns the current user's profile
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := ToUserProfile(user)
	return &profile, nil
}

// DisplayName returns the name stamped on payment and withdrawal records
func (s *AuthService) DisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.FullName, nil
}

// UpdateMe renames the user and/or selects the active company
func (s *AuthService) UpdateMe(ctx context.Context, userID uuid.UUID, req UpdateMeRequest) (*UpdateMeResult, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.FullName == nil && req.SelectedCompanyID == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Nothing to update")
	}
	if req.FullName != nil {
		if err := user.Rename(*req.FullName); err != nil {
			return nil, err
		}
	}
	if req.SelectedCompanyID != nil {
		if err := user.SelectCompany(*req.SelectedCompanyID); err != nil {
			return nil, err
		}
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	result := &UpdateMeResult{User: ToUserProfile(user)}
	if req.SelectedCompanyID != nil {
		if result.Token, err = s.issue(user); err != nil {
			return nil, err
		}
	}
	s.logger.Info("user profile updated", zap.String("user_id", user.ID.String()))
	return result, nil
}

// Logout revokes the token until it would have expired
func (s *AuthService) Logout(ctx context.Context, req LogoutRequest) error {
	if s.blacklist == nil || req.TokenID == "" || req.TTL <= 0 {
		return nil
	}
	if err := s.blacklist.Revoke(ctx, req.TokenID, req.TTL); err != nil {
		s.logger.Error("failed to revoke token", zap.Error(err))
		return err
	}
	return nil
}

// CreateUser registers an operator and grants the listed companies. The
// first company becomes the selected one.
func (s *AuthService) CreateUser(ctx context.Context, req CreateUserRequest) (*UserProfile, error) {
	user, err := identity.NewUser(req.FullName, req.Email, req.Password, identity.Role(req.Role))
	if err != nil {
		return nil, err
	}
	for _, c := range req.Companies {
		user.GrantCompany(c.ID, c.Name)
	}
	if len(req.Companies) > 0 {
		if err := user.SelectCompany(req.Companies[0].ID); err != nil {
			return nil, err
		}
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	profile := ToUserProfile(user)
	return &profile, nil
}
