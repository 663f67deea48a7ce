package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/auth"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked due to multiple failed login attempts")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrAdminExists        = errors.New("an administrator account already exists")
)

const maxFailedAttempts = 5

const lockDuration = 15 * time.Minute

const minPasswordLength = 12

type AuthService struct {
	users      UserRepository
	jwtManager *auth.JWTManager
	auditSvc   *AuditService
	log        *zap.Logger
	now        func() time.Time
}

func NewAuthService(users UserRepository, jwtManager *auth.JWTManager, auditSvc *AuditService, log *zap.Logger) *AuthService {
	return &AuthService{users: users, jwtManager: jwtManager, auditSvc: auditSvc, log: log, now: time.Now}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	ip := requestMetaFrom(ctx).IPAddress

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.log.Error("failed to look up user for login", zap.Error(err))
		}
		// Hash anyway so response time does not reveal whether the email exists.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	if user.IsLocked() {
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		var lockUntil *time.Time
		if user.FailedLoginCount+1 >= maxFailedAttempts {
			t := s.now().Add(lockDuration)
			lockUntil = &t
		}
		if err := s.users.RecordLoginFailure(ctx, user.ID, lockUntil); err != nil {
			s.log.Error("failed to record login failure", zap.Error(err), zap.Uint("user_id", user.ID))
		}
		s.log.Warn("failed login attempt",
			zap.String("email", email),
			zap.String("ip", ip),
			zap.Bool("locked", lockUntil != nil),
		)
		return nil, ErrInvalidCredentials
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID, s.now()); err != nil {
		s.log.Error("failed to record login", zap.Error(err), zap.Uint("user_id", user.ID))
	}

	pair, err := s.jwtManager.GenerateTokenPair(claimsFor(user))
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.log.Info("user logged in",
		zap.Uint("user_id", user.ID),
		zap.String("ip", ip),
	)
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       user.ID,
		UserRole:     user.Role,
		Action:       domain.ActionLogin,
		ResourceType: "user",
		ResourceID:   strconv.FormatUint(uint64(user.ID), 10),
	})

	return pair, nil
}

// RefreshToken issues a new access token given a valid refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// Re-validate user is still active
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	return s.jwtManager.GenerateTokenPair(claimsFor(user))
}

// ChangePassword updates a user's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	if err := validatePasswordStrength(newPassword); err != nil {
		return &ValidationError{Fields: []string{err.Error()}}
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       user.ID,
		UserRole:     user.Role,
		Action:       domain.ActionUpdate,
		ResourceType: "user_password",
		ResourceID:   strconv.FormatUint(uint64(user.ID), 10),
	})
	return nil
}

type BootstrapAdminCommand struct {
	Name     string
	Email    string
	Password string
}

// BootstrapAdmin creates the first administrator. It refuses once any
// administrator exists.
func (s *AuthService) BootstrapAdmin(ctx context.Context, cmd BootstrapAdminCommand) (*domain.User, error) {
	var v validationErrors
	if strings.TrimSpace(cmd.Name) == "" {
		v.add("name is required")
	}
	if !strings.Contains(cmd.Email, "@") {
		v.add("a valid email is required")
	}
	if err := validatePasswordStrength(cmd.Password); err != nil {
		v.add(err.Error())
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	n, err := s.users.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrAdminExists
	}

	hash, err := hashPassword(cmd.Password)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Name:         strings.TrimSpace(cmd.Name),
		Email:        normalizeEmail(cmd.Email),
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.log.Info("administrator account bootstrapped", zap.Uint("user_id", u.ID))
	return u, nil
}

func claimsFor(u *domain.User) *domain.Claims {
	return &domain.Claims{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func validatePasswordStrength(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
