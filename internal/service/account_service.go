package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strconv"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"go.uber.org/zap"
)

// DoctorCommand carries the account fields of a clinician, whether
// requested by the clinician or entered by an administrator.
type DoctorCommand struct {
	Name                string
	Email               string
	Phone               string
	CIN                 string
	Password            string
	Role                string
	Specialization      string
	HospitalAffiliation string
	LicenseNumber       string
	Governorate         string
	City                string
}

// validate records field problems on v and returns the parsed role,
// MEDECIN when none is given.
func (c *DoctorCommand) validate(v *validationErrors) domain.Role {
	if strings.TrimSpace(c.Name) == "" {
		v.add("name is required")
	}
	if !strings.Contains(c.Email, "@") {
		v.add("a valid email is required")
	}

	role := domain.RoleMedecin
	if strings.TrimSpace(c.Role) != "" {
		r, err := domain.ParseRole(c.Role)
		switch {
		case err != nil:
			v.add(err.Error())
		case !slices.Contains(domain.ClinicianRoles, r):
			v.add(fmt.Sprintf("role %s cannot be requested", r))
		default:
			role = r
		}
	}
	return role
}

func (c *DoctorCommand) apply(u *domain.User, role domain.Role) {
	u.Name = strings.TrimSpace(c.Name)
	u.Email = normalizeEmail(c.Email)
	u.Phone = strings.TrimSpace(c.Phone)
	u.CIN = strings.TrimSpace(c.CIN)
	u.Role = role
	u.Specialization = strings.TrimSpace(c.Specialization)
	u.HospitalAffiliation = strings.TrimSpace(c.HospitalAffiliation)
	u.LicenseNumber = strings.TrimSpace(c.LicenseNumber)
	u.Governorate = strings.TrimSpace(c.Governorate)
	u.City = strings.TrimSpace(c.City)
}

type AccountService struct {
	users    UserRepository
	auditSvc *AuditService
	log      *zap.Logger
}

func NewAccountService(users UserRepository, auditSvc *AuditService, log *zap.Logger) *AccountService {
	return &AccountService{users: users, auditSvc: auditSvc, log: log}
}

// RequestAccount records a self-registration. The account stays inactive
// until an administrator creates it.
func (s *AccountService) RequestAccount(ctx context.Context, cmd *DoctorCommand) (*domain.User, error) {
	var v validationErrors
	role := cmd.validate(&v)
	if cmd.Password != "" {
		if err := validatePasswordStrength(cmd.Password); err != nil {
			v.add(err.Error())
		}
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	if err := s.ensureUnused(ctx, cmd.Email, cmd.CIN); err != nil {
		return nil, err
	}

	password := cmd.Password
	if password == "" {
		generated, err := generatePassword(generatedPasswordLength)
		if err != nil {
			return nil, err
		}
		password = generated
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &domain.User{PasswordHash: hash, IsActive: false}
	cmd.apply(u, role)
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.log.Info("account requested", zap.Uint("user_id", u.ID), zap.String("role", string(role)))
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       u.ID,
		UserRole:     u.Role,
		Action:       domain.ActionCreate,
		ResourceType: "account_request",
		ResourceID:   strconv.FormatUint(uint64(u.ID), 10),
	})
	return u, nil
}

func (s *AccountService) ensureUnused(ctx context.Context, email, cin string) error {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return domain.ErrUserAlreadyExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}
	if strings.TrimSpace(cin) == "" {
		return nil
	}
	if _, err := s.users.GetByCIN(ctx, cin); err == nil {
		return domain.ErrUserAlreadyExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}
	return nil
}

const generatedPasswordLength = 16

const passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789!@#$%&*?"

func generatePassword(n int) (string, error) {
	limit := big.NewInt(int64(len(passwordAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generating password: %w", err)
		}
		b[i] = passwordAlphabet[idx.Int64()]
	}
	return string(b), nil
}
