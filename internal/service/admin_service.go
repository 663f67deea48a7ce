package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/form"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/notification"
	"go.uber.org/zap"
)

type AdminService struct {
	tx       Transactor
	users    UserRepository
	forms    form.Repository
	notifier NotificationSink
	auditSvc *AuditService
	log      *zap.Logger
}

func NewAdminService(tx Transactor, users UserRepository, forms form.Repository, notifier NotificationSink, auditSvc *AuditService, log *zap.Logger) *AdminService {
	return &AdminService{tx: tx, users: users, forms: forms, notifier: notifier, auditSvc: auditSvc, log: log}
}

// CreatedDoctor carries the one-time generated password back to the admin.
type CreatedDoctor struct {
	User        *domain.User
	Password    string
	Reactivated bool
}

// CreateDoctor activates a clinician account. A pending request with the
// same email is reactivated with the submitted fields; an active account
// with that email is a conflict.
func (s *AdminService) CreateDoctor(ctx context.Context, caller *domain.User, cmd *DoctorCommand) (*CreatedDoctor, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	var v validationErrors
	role := cmd.validate(&v)
	if err := v.err(); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, cmd.Email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	if existing != nil && existing.IsActive {
		return nil, domain.ErrUserAlreadyExists
	}

	password, err := generatePassword(generatedPasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	out := &CreatedDoctor{Password: password}
	if existing != nil {
		cmd.apply(existing, role)
		existing.PasswordHash = hash
		existing.IsActive = true
		if err := s.users.Update(ctx, existing); err != nil {
			return nil, err
		}
		out.User = existing
		out.Reactivated = true
	} else {
		u := &domain.User{PasswordHash: hash, IsActive: true}
		cmd.apply(u, role)
		if err := s.users.Create(ctx, u); err != nil {
			return nil, err
		}
		out.User = u
	}

	s.log.Info("doctor account activated",
		zap.Uint("user_id", out.User.ID),
		zap.String("role", string(role)),
		zap.Bool("reactivated", out.Reactivated),
	)
	s.audit(ctx, caller, domain.ActionCreate, "user", out.User.ID, map[string]any{"reactivated": out.Reactivated})
	return out, nil
}

// PendingRequests lists clinician accounts awaiting activation.
func (s *AdminService) PendingRequests(ctx context.Context, caller *domain.User) ([]*domain.User, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.users.ListByRoles(ctx, domain.ClinicianRoles, false)
}

// RejectRequest deletes a pending request. Active accounts are never
// deleted this way.
func (s *AdminService) RejectRequest(ctx context.Context, caller *domain.User, id uint) error {
	if caller.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.IsActive {
		return domain.ErrUserAlreadyActive
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info("account request rejected", zap.Uint("user_id", id))
	s.audit(ctx, caller, domain.ActionDelete, "account_request", id, nil)
	return nil
}

// DeactivateUser disables an account. A neurologist's SUBMITTED forms are
// released so any other neurologist can pick them up.
func (s *AdminService) DeactivateUser(ctx context.Context, caller *domain.User, id uint) (int64, error) {
	if caller.Role != domain.RoleAdmin {
		return 0, ErrForbidden
	}
	if caller.ID == id {
		return 0, &ValidationError{Fields: []string{"administrators cannot deactivate themselves"}}
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}

	var released int64
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.users.SetActive(ctx, id, false); err != nil {
			return err
		}
		if !u.IsNeurologist() {
			return nil
		}
		n, err := s.forms.ReleaseSubmitted(ctx, id)
		released = n
		return err
	})
	if err != nil {
		s.log.Error("failed to deactivate user", zap.Error(err), zap.Uint("user_id", id))
		return 0, err
	}

	s.log.Info("user deactivated", zap.Uint("user_id", id), zap.Int64("released_forms", released))
	s.audit(ctx, caller, domain.ActionUpdate, "user", id, map[string]any{
		"is_active":      false,
		"released_forms": released,
	})
	return released, nil
}

// ReassignForm moves an open form to another active neurologist, typically
// to route a REQUIRES_SUPERVISION form to a senior colleague.
func (s *AdminService) ReassignForm(ctx context.Context, caller *domain.User, formID, neurologistID uint) (*form.MedicalForm, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	f, err := s.forms.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if f.Status == form.StatusCompleted {
		return nil, &ValidationError{Fields: []string{"completed forms cannot be reassigned"}}
	}
	n, err := s.users.GetByID(ctx, neurologistID)
	if err != nil {
		return nil, err
	}
	if !n.IsActive || !n.IsNeurologist() {
		return nil, &ValidationError{Fields: []string{"target must be an active neurologist"}}
	}

	if err := s.forms.Reassign(ctx, formID, neurologistID); err != nil {
		s.log.Error("failed to reassign form", zap.Error(err), zap.Uint("form_id", formID))
		return nil, err
	}
	previous := f.AssignedToID
	f.AssignedToID = &n.ID
	f.AssignedTo = n

	_, err = s.notifier.Notify(ctx, n.ID, NotificationInput{
		Type:        notification.TypeNewForm,
		Title:       "Nouveau formulaire médical",
		Message:     fmt.Sprintf("Le formulaire du patient %s vous a été réassigné", patientName(f)),
		RelatedID:   &f.ID,
		RelatedType: notification.RelatedMedicalForm,
	})
	if err != nil {
		s.log.Warn("failed to notify new assignee", zap.Error(err), zap.Uint("form_id", formID))
	}

	s.log.Info("form reassigned", zap.Uint("form_id", formID), zap.Uint("neurologist_id", n.ID))
	s.audit(ctx, caller, domain.ActionUpdate, "medical_form", formID, map[string]any{
		"assigned_from": previous,
		"assigned_to":   n.ID,
	})
	return f, nil
}

func (s *AdminService) audit(ctx context.Context, caller *domain.User, action domain.AuditAction, resource string, id uint, changes map[string]any) {
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role,
		Action:       action,
		ResourceType: resource,
		ResourceID:   strconv.FormatUint(uint64(id), 10),
		Changes:      changes,
	})
}
