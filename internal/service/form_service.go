package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/config"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/form"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/notification"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/response"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("neuroref/service")

const recentWindow = 30 * 24 * time.Hour

// Upload is one file attached to a submission.
type Upload struct {
	Kind     form.AttachmentKind
	FileName string
	MimeType string
	Data     []byte
}

// FormDeps groups the collaborators of FormService.
type FormDeps struct {
	Tx          Transactor
	Forms       form.Repository
	Attachments form.AttachmentRepository
	Responses   response.Repository
	Patients    patient.Repository
	Assigner    *AssignmentService
	Store       AttachmentStore
	Documents   DocumentStore
	Renderer    PDFRenderer
	Notifier    NotificationSink
	Audit       *AuditService
	Metrics     *metrics.Collector
}

type FormService struct {
	FormDeps
	upload config.UploadConfig
	log    *zap.Logger
	now    func() time.Time
}

func NewFormService(deps FormDeps, upload config.UploadConfig, log *zap.Logger) *FormService {
	return &FormService{FormDeps: deps, upload: upload, log: log, now: time.Now}
}

// Submit records a referral, assigns it and stores its attachments in one
// transaction. The notification and PDF that follow are best-effort.
func (s *FormService) Submit(ctx context.Context, caller *domain.User, cmd *form.SubmitFormCommand, uploads []Upload) (*form.MedicalForm, error) {
	ctx, span := tracer.Start(ctx, "FormService.Submit")
	defer span.End()

	if caller.Role != domain.RoleMedecin && caller.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	if err := s.validateSubmission(cmd, uploads); err != nil {
		return nil, err
	}

	p, err := s.Patients.GetByCIN(ctx, strings.TrimSpace(cmd.Patient.CIN))
	switch {
	case errors.Is(err, patient.ErrPatientNotFound):
		p = patient.New(cmd.Patient, caller.ID)
	case err != nil:
		s.log.Error("failed to look up patient", zap.Error(err))
		return nil, fmt.Errorf("looking up patient: %w", err)
	default:
		p.Refresh(cmd.Patient, caller.ID)
	}

	assignment, err := s.Assigner.Assign(ctx, p, cmd)
	if err != nil {
		return nil, err
	}
	neurologist := assignment.Neurologist

	f := &form.MedicalForm{
		DoctorID:               caller.ID,
		AssignedToID:           &neurologist.ID,
		Status:                 form.StatusSubmitted,
		SeizureType:            cmd.SeizureType,
		Symptoms:               form.BuildSymptomSummary(cmd),
		DateFirstSeizure:       cmd.DateFirstSeizure,
		DateLastSeizure:        cmd.DateLastSeizure,
		TotalSeizures:          cmd.TotalSeizures,
		AverageSeizureDuration: cmd.AverageSeizureDuration,
		SeizureFrequency:       cmd.SeizureFrequency,
	}

	var written []string
	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Patients.Save(ctx, p); err != nil {
			return err
		}
		f.PatientID = p.ID
		if err := s.Forms.Create(ctx, f); err != nil {
			return err
		}

		for _, up := range uploads {
			ref, err := s.Store.Store(ctx, up.Data, storage.Metadata{
				FormID:   f.ID,
				FileName: up.FileName,
				MimeType: up.MimeType,
			})
			if err != nil {
				return fmt.Errorf("storing %s: %w", up.Kind, err)
			}
			written = append(written, ref)

			a := &form.FileAttachment{
				FormID:       f.ID,
				UploadedByID: caller.ID,
				Kind:         up.Kind,
				FileName:     up.FileName,
				StoragePath:  ref,
				MimeType:     up.MimeType,
				SizeBytes:    int64(len(up.Data)),
				Encrypted:    s.Store.Encrypted(),
			}
			if err := s.Attachments.Create(ctx, a); err != nil {
				return err
			}
			f.Attachments = append(f.Attachments, *a)
		}
		return nil
	})
	if err != nil {
		s.removeBlobs(ctx, written)
		s.log.Error("failed to submit medical form", zap.Error(err), zap.Uint("doctor_id", caller.ID))
		return nil, fmt.Errorf("submitting form: %w", err)
	}

	f.Patient = p
	f.Doctor = caller
	f.AssignedTo = neurologist
	s.Metrics.FormsSubmittedTotal.Inc()
	span.SetAttributes(
		attribute.Int64("form.id", int64(f.ID)),
		attribute.String("assignment.strategy", assignment.Strategy),
	)

	s.log.Info("medical form submitted",
		zap.Uint("form_id", f.ID),
		zap.Uint("doctor_id", caller.ID),
		zap.Uint("assigned_to", neurologist.ID),
		zap.String("strategy", assignment.Strategy),
		zap.Int("attachments", len(f.Attachments)),
	)

	s.notifyAssignee(ctx, f)
	if _, _, err := s.generatePDF(ctx, f); err != nil {
		s.Metrics.BestEffortFailures.WithLabelValues("pdf").Inc()
		s.log.Warn("failed to generate form pdf", zap.Error(err), zap.Uint("form_id", f.ID))
	}

	s.Audit.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role,
		Action:       domain.ActionCreate,
		ResourceType: "medical_form",
		ResourceID:   strconv.FormatUint(uint64(f.ID), 10),
		Changes: map[string]any{
			"patient_id":  p.ID,
			"assigned_to": neurologist.ID,
			"strategy":    assignment.Strategy,
		},
	})

	return f, nil
}

func (s *FormService) validateSubmission(cmd *form.SubmitFormCommand, uploads []Upload) error {
	var v validationErrors

	if strings.TrimSpace(cmd.Patient.CIN) == "" {
		v.add("patient CIN is required")
	}
	if strings.TrimSpace(cmd.Patient.Name) == "" {
		v.add("patient name is required")
	}
	if g := cmd.Patient.Gender; g != "" && !g.IsValid() {
		v.add("patient gender must be M or F")
	}
	if fr := cmd.SeizureFrequency; fr != "" && !fr.IsValid() {
		v.add("seizure frequency must be DAILY, WEEKLY, MONTHLY or YEARLY")
	}
	if n := cmd.TotalSeizures; n != nil && *n < 0 {
		v.add("total seizures must not be negative")
	}
	if d := cmd.AverageSeizureDuration; d != nil && *d < 0 {
		v.add("average seizure duration must not be negative")
	}
	if a, b := cmd.DateFirstSeizure, cmd.DateLastSeizure; a != nil && b != nil && a.After(*b) {
		v.add("first seizure date must not be after last seizure date")
	}

	seen := make(map[form.AttachmentKind]bool)
	for _, up := range uploads {
		if seen[up.Kind] {
			v.add(fmt.Sprintf("only one %s may be attached", up.Kind))
			continue
		}
		seen[up.Kind] = true

		var prefix string
		var limit int64
		switch up.Kind {
		case form.AttachmentMRI:
			prefix, limit = "image/", s.upload.MaxImageBytes
		case form.AttachmentVideo:
			prefix, limit = "video/", s.upload.MaxVideoBytes
		default:
			v.add(fmt.Sprintf("unknown attachment kind %q", up.Kind))
			continue
		}
		switch {
		case len(up.Data) == 0:
			v.add(fmt.Sprintf("%s is empty", up.Kind))
		case !strings.HasPrefix(strings.ToLower(up.MimeType), prefix):
			v.add(fmt.Sprintf("%s must be of type %s*", up.Kind, prefix))
		case int64(len(up.Data)) > limit:
			v.add(fmt.Sprintf("%s exceeds %d bytes", up.Kind, limit))
		}
	}

	return v.err()
}

func (s *FormService) notifyAssignee(ctx context.Context, f *form.MedicalForm) {
	if f.AssignedToID == nil {
		return
	}
	_, err := s.Notifier.Notify(ctx, *f.AssignedToID, NotificationInput{
		Type:  notification.TypeNewForm,
		Title: "Nouveau formulaire médical",
		Message: fmt.Sprintf("Un nouveau formulaire médical a été soumis par Dr. %s pour le patient %s",
			nameOf(f.Doctor), patientName(f)),
		RelatedID:   &f.ID,
		RelatedType: notification.RelatedMedicalForm,
	})
	if err != nil {
		s.Metrics.BestEffortFailures.WithLabelValues("notification").Inc()
		s.log.Warn("failed to notify assigned neurologist", zap.Error(err), zap.Uint("form_id", f.ID))
	}
}

func (s *FormService) removeBlobs(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if err := s.Store.Remove(ctx, ref); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			s.Metrics.BestEffortFailures.WithLabelValues("blob_cleanup").Inc()
			s.log.Warn("failed to remove attachment blob", zap.Error(err), zap.String("ref", ref))
		}
	}
}

// load fetches a form and applies the access gate. A missing form is
// reported as not found before any permission check.
func (s *FormService) load(ctx context.Context, caller *domain.User, id uint) (*form.MedicalForm, form.Grant, error) {
	f, err := s.Forms.GetByID(ctx, id)
	if err != nil {
		return nil, form.GrantNone, err
	}
	g := form.Evaluate(caller, f)
	if g == form.GrantNone {
		s.log.Warn("form access denied",
			zap.Uint("form_id", id),
			zap.Uint("user_id", caller.ID),
			zap.String("role", string(caller.Role)),
		)
		return nil, g, ErrForbidden
	}
	return f, g, nil
}

func (s *FormService) GetForm(ctx context.Context, caller *domain.User, id uint) (*form.MedicalForm, error) {
	f, g, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	s.Audit.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role,
		Action:       domain.ActionRead,
		ResourceType: "medical_form",
		ResourceID:   strconv.FormatUint(uint64(id), 10),
		Changes:      map[string]any{"grant": g.String()},
	})
	return f, nil
}

// ListForDoctor returns the caller's own submissions. An empty filter means
// the forms still in progress.
func (s *FormService) ListForDoctor(ctx context.Context, caller *domain.User, filter form.DoctorFilter) ([]*form.MedicalForm, error) {
	if filter == "" {
		filter = form.FilterActive
	}
	if !filter.IsValid() {
		return nil, &ValidationError{Fields: []string{fmt.Sprintf("unknown filter %q", filter)}}
	}

	q := form.ListQuery{DoctorID: &caller.ID}
	switch filter {
	case form.FilterActive:
		q.Statuses = form.OpenStatuses
	case form.FilterCompleted:
		q.Statuses = []form.Status{form.StatusCompleted}
	case form.FilterRecent:
		since := s.now().Add(-recentWindow)
		q.CreatedAfter = &since
	}
	return s.Forms.List(ctx, q)
}

// Claim lets a neurologist pick up an unassigned SUBMITTED form. Only one
// concurrent claimant can win; the others get ErrAlreadyClaimed.
func (s *FormService) Claim(ctx context.Context, caller *domain.User, id uint) (*form.MedicalForm, error) {
	ctx, span := tracer.Start(ctx, "FormService.Claim",
		trace.WithAttributes(attribute.Int64("form.id", int64(id)), attribute.Int64("user.id", int64(caller.ID))))
	defer span.End()

	if !caller.IsNeurologist() {
		return nil, ErrForbidden
	}
	f, err := s.Forms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.IsAssignedTo(caller.ID) {
		return f, nil
	}
	if f.AssignedToID != nil {
		s.Metrics.PickupsTotal.WithLabelValues("lost").Inc()
		return nil, ErrAlreadyClaimed
	}
	if !f.IsUnclaimed() {
		return nil, ErrForbidden
	}

	won, err := s.Forms.ClaimUnassigned(ctx, id, caller.ID)
	if err != nil {
		s.log.Error("failed to claim form", zap.Error(err), zap.Uint("form_id", id))
		return nil, fmt.Errorf("claiming form: %w", err)
	}
	if !won {
		span.AddEvent("pickup lost")
		s.Metrics.PickupsTotal.WithLabelValues("lost").Inc()
		return nil, ErrAlreadyClaimed
	}
	s.Metrics.PickupsTotal.WithLabelValues("won").Inc()

	f.AssignedToID = &caller.ID
	f.AssignedTo = caller
	s.log.Info("form picked up", zap.Uint("form_id", id), zap.Uint("neurologist_id", caller.ID))
	s.Audit.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role,
		Action:       domain.ActionUpdate,
		ResourceType: "medical_form",
		ResourceID:   strconv.FormatUint(uint64(id), 10),
		Changes:      map[string]any{"assigned_to": caller.ID},
	})
	return f, nil
}

func (s *FormService) ListAttachments(ctx context.Context, caller *domain.User, formID uint) ([]*form.FileAttachment, error) {
	if _, _, err := s.load(ctx, caller, formID); err != nil {
		return nil, err
	}
	return s.Attachments.ListByForm(ctx, formID)
}

// AttachmentContent returns the decrypted bytes of an attachment after
// gating on its form.
func (s *FormService) AttachmentContent(ctx context.Context, caller *domain.User, attachmentID uint) (*form.FileAttachment, []byte, error) {
	a, err := s.Attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	if _, _, err := s.load(ctx, caller, a.FormID); err != nil {
		return nil, nil, err
	}

	data, err := s.Store.Retrieve(ctx, a.StoragePath)
	if err != nil {
		s.log.Error("failed to read attachment", zap.Error(err), zap.Uint("attachment_id", a.ID))
		return nil, nil, fmt.Errorf("reading attachment: %w", err)
	}

	s.Audit.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role,
		Action:       domain.ActionRead,
		ResourceType: "file_attachment",
		ResourceID:   strconv.FormatUint(uint64(a.ID), 10),
	})
	return a, data, nil
}

// Delete removes a form together with its responses and attachments in one
// transaction, then removes stored files.
func (s *FormService) Delete(ctx context.Context, caller *domain.User, id uint) error {
	if caller.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	f, err := s.Forms.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Responses.DeleteByForm(ctx, id); err != nil {
			return fmt.Errorf("deleting responses: %w", err)
		}
		s.log.Debug("form responses deleted", zap.Uint("form_id", id))

		if err := s.Attachments.DeleteByForm(ctx, id); err != nil {
			return fmt.Errorf("deleting attachments: %w", err)
		}
		s.log.Debug("form attachments deleted", zap.Uint("form_id", id), zap.Int("count", len(f.Attachments)))

		return s.Forms.Delete(ctx, id)
	})
	if err != nil {
		s.log.Error("failed to delete medical form", zap.Error(err), zap.Uint("form_id", id))
		return err
	}

	refs := make([]string, 0, len(f.Attachments))
	for _, a := range f.Attachments {
		refs = append(refs, a.StoragePath)
	}
	s.removeBlobs(ctx, refs)
	if f.PDFFilePath != "" {
		if err := s.Documents.Delete(ctx, f.PDFFilePath); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			s.Metrics.BestEffortFailures.WithLabelValues("blob_cleanup").Inc()
			s.log.Warn("failed to remove form pdf", zap.Error(err), zap.Uint("form_id", id))
		}
	}

	s.log.Info("medical form deleted", zap.Uint("form_id", id), zap.Uint("deleted_by", caller.ID))
	s.Audit.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role,
		Action:       domain.ActionDelete,
		ResourceType: "medical_form",
		ResourceID:   strconv.FormatUint(uint64(id), 10),
	})
	return nil
}

func nameOf(u *domain.User) string {
	if u == nil {
		return ""
	}
	return u.Name
}

func patientName(f *form.MedicalForm) string {
	if f.Patient == nil {
		return ""
	}
	return f.Patient.Name
}
