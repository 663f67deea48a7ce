package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/form"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/notification"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/response"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ResponseService struct {
	tx        Transactor
	forms     form.Repository
	responses response.Repository
	users     UserRepository
	notifier  NotificationSink
	auditSvc  *AuditService
	metrics   *metrics.Collector
	log       *zap.Logger
}

func NewResponseService(
	tx Transactor,
	forms form.Repository,
	responses response.Repository,
	users UserRepository,
	notifier NotificationSink,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
) *ResponseService {
	return &ResponseService{
		tx:        tx,
		forms:     forms,
		responses: responses,
		users:     users,
		notifier:  notifier,
		auditSvc:  auditSvc,
		metrics:   m,
		log:       log,
	}
}

// Record stores a response and moves the form to its next status in one
// transaction. An unassigned form is claimed by the responding neurologist
// inside the same transaction. An assignee whose form was reassigned in the
// meantime gets ErrForbidden and nothing is written. The author is notified
// afterwards.
func (s *ResponseService) Record(ctx context.Context, responder *domain.User, cmd *response.RecordResponseCommand) (*response.FormResponse, error) {
	ctx, span := tracer.Start(ctx, "ResponseService.Record")
	defer span.End()

	if responder.Role != domain.RoleAdmin && !responder.IsNeurologist() {
		return nil, ErrForbidden
	}
	cmd.Normalize()
	if err := validateResponse(cmd); err != nil {
		return nil, err
	}

	f, err := s.forms.GetByID(ctx, cmd.FormID)
	if err != nil {
		return nil, err
	}
	grant := form.Evaluate(responder, f)
	if grant == form.GrantNone {
		return nil, ErrForbidden
	}

	r := &response.FormResponse{
		FormID:               f.ID,
		ResponderID:          responder.ID,
		ResponseType:         cmd.ResponseType,
		Diagnosis:            cmd.Diagnosis,
		Recommendations:      cmd.Recommendations,
		TreatmentSuggestions: cmd.TreatmentSuggestions,
		MedicationChanges:    cmd.MedicationChanges,
		FollowUpInstructions: cmd.FollowUpInstructions,
		RequiresSupervision:  cmd.RequiresSupervision,
		UrgencyLevel:         cmd.UrgencyLevel,
		FollowUpRequired:     cmd.FollowUpRequired,
		FollowUpDate:         cmd.FollowUpDate,
	}
	if cmd.SupervisionDoctorID != nil {
		sup, err := s.users.GetByID(ctx, *cmd.SupervisionDoctorID)
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			s.log.Warn("supervision doctor not found, leaving unset",
				zap.Uint("form_id", f.ID),
				zap.Uint("supervision_doctor_id", *cmd.SupervisionDoctorID),
			)
		case err != nil:
			return nil, fmt.Errorf("loading supervision doctor: %w", err)
		default:
			r.SupervisionDoctorID = &sup.ID
		}
	}

	next := form.NextStatus(responder.Role, cmd.RequiresSupervision)
	if next != f.Status && !f.Status.CanTransitionTo(next) {
		s.log.Warn("response moves form against the usual flow",
			zap.Uint("form_id", f.ID),
			zap.String("from", string(f.Status)),
			zap.String("to", string(next)),
			zap.String("responder_role", string(responder.Role)),
		)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if grant == form.GrantPickup {
			won, err := s.forms.ClaimUnassigned(ctx, f.ID, responder.ID)
			if err != nil {
				return fmt.Errorf("claiming form: %w", err)
			}
			if !won {
				s.metrics.PickupsTotal.WithLabelValues("lost").Inc()
				return ErrForbidden
			}
		}
		if err := s.responses.Create(ctx, r); err != nil {
			return fmt.Errorf("creating response: %w", err)
		}
		if grant != form.GrantAssignee {
			return s.forms.UpdateStatus(ctx, f.ID, next)
		}
		// The assignment may have changed since the access check.
		held, err := s.forms.UpdateStatusIfAssigned(ctx, f.ID, responder.ID, next)
		if err != nil {
			return fmt.Errorf("updating form status: %w", err)
		}
		if !held {
			return ErrForbidden
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrForbidden) {
			s.log.Error("failed to record form response", zap.Error(err), zap.Uint("form_id", f.ID))
		}
		return nil, err
	}

	if grant == form.GrantPickup {
		s.metrics.PickupsTotal.WithLabelValues("won").Inc()
		f.AssignedToID = &responder.ID
		f.AssignedTo = responder
	}
	previous := f.Status
	f.Status = next
	r.Responder = responder
	s.metrics.ResponsesTotal.WithLabelValues(string(next)).Inc()
	span.SetAttributes(attribute.Int64("form.id", int64(f.ID)), attribute.String("form.status", string(next)))

	s.log.Info("form response recorded",
		zap.Uint("form_id", f.ID),
		zap.Uint("response_id", r.ID),
		zap.Uint("responder_id", responder.ID),
		zap.String("status", string(next)),
	)

	_, err = s.notifier.Notify(ctx, f.DoctorID, NotificationInput{
		Type:        notification.TypeUpdate,
		Title:       "Réponse à votre formulaire",
		Message:     fmt.Sprintf("Dr. %s a répondu à votre formulaire pour le patient %s", responder.Name, patientName(f)),
		RelatedID:   &f.ID,
		RelatedType: notification.RelatedFormResponse,
	})
	if err != nil {
		s.metrics.BestEffortFailures.WithLabelValues("notification").Inc()
		s.log.Warn("failed to notify form author", zap.Error(err), zap.Uint("form_id", f.ID))
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       responder.ID,
		UserRole:     responder.Role,
		Action:       domain.ActionCreate,
		ResourceType: "form_response",
		ResourceID:   strconv.FormatUint(uint64(r.ID), 10),
		Changes: map[string]any{
			"form_id":     f.ID,
			"status_from": previous,
			"status_to":   next,
		},
	})
	return r, nil
}

func validateResponse(cmd *response.RecordResponseCommand) error {
	var v validationErrors
	if cmd.FormID == 0 {
		v.add("form id is required")
	}
	if !cmd.ResponseType.IsValid() {
		v.add("response type must be DIAGNOSIS, RECOMMENDATION or SUPERVISION_REQUEST")
	}
	if !cmd.UrgencyLevel.IsValid() {
		v.add("urgency level must be LOW, MEDIUM, HIGH or CRITICAL")
	}
	if cmd.FollowUpRequired && cmd.FollowUpDate == nil {
		v.add("follow-up date is required when follow-up is required")
	}
	return v.err()
}

// readable loads a form for reading its responses. Referring doctors are
// held to the author check; everyone else goes through the general gate.
func (s *ResponseService) readable(ctx context.Context, caller *domain.User, formID uint) (*form.MedicalForm, error) {
	f, err := s.forms.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	allowed := form.CanAccess(caller, f)
	if caller.Role == domain.RoleMedecin {
		allowed = form.CanDoctorAccessResponse(caller, f)
	}
	if !allowed {
		return nil, ErrForbidden
	}
	return f, nil
}

// Latest returns the most recent response to the form.
func (s *ResponseService) Latest(ctx context.Context, caller *domain.User, formID uint) (*response.FormResponse, error) {
	if _, err := s.readable(ctx, caller, formID); err != nil {
		return nil, err
	}
	return s.responses.LatestByForm(ctx, formID)
}

func (s *ResponseService) HasResponse(ctx context.Context, caller *domain.User, formID uint) (bool, error) {
	if _, err := s.readable(ctx, caller, formID); err != nil {
		return false, err
	}
	return s.responses.ExistsByForm(ctx, formID)
}

type ResponseDetails struct {
	Form     *form.MedicalForm
	Response *response.FormResponse
	History  []*response.FormResponse
}

// ResponseDetails returns the form with its latest response and the full
// response history, oldest first.
func (s *ResponseService) ResponseDetails(ctx context.Context, caller *domain.User, formID uint) (*ResponseDetails, error) {
	f, err := s.readable(ctx, caller, formID)
	if err != nil {
		return nil, err
	}
	latest, err := s.responses.LatestByForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	history, err := s.responses.ListByForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	return &ResponseDetails{Form: f, Response: latest, History: history}, nil
}
