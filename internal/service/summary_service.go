package service

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/form"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// FormSummary is the dashboard row for one form.
type FormSummary struct {
	FormID         uint        `json:"form_id"`
	Status         form.Status `json:"status"`
	SeizureType    string      `json:"seizure_type,omitempty"`
	SymptomSummary string      `json:"symptom_summary"`
	CreatedAt      time.Time   `json:"created_at"`
	PDFGenerated   bool        `json:"pdf_generated"`
	PatientName    string      `json:"patient_name"`
	PatientCIN     string      `json:"patient_cin"`
	PatientAge     int         `json:"patient_age"`
	PatientGender  string      `json:"patient_gender,omitempty"`
	DoctorName     string      `json:"doctor_name"`
	DoctorEmail    string      `json:"doctor_email"`
	AttachmentURLs []string    `json:"attachment_urls"`
	AssignedToID   *uint       `json:"assigned_to_id,omitempty"`

	// Set on unassigned forms offered to the caller for pickup; such rows
	// are not part of the caller's own caseload.
	PickupCandidate bool `json:"pickup_candidate"`
}

type SummaryService struct {
	forms form.Repository
	log   *zap.Logger
	now   func() time.Time
}

func NewSummaryService(forms form.Repository, log *zap.Logger) *SummaryService {
	return &SummaryService{forms: forms, log: log, now: time.Now}
}

// Pending lists the caller's open forms. When there are none it offers the
// unassigned SUBMITTED forms instead, flagged as pickup candidates.
func (s *SummaryService) Pending(ctx context.Context, caller *domain.User) ([]FormSummary, error) {
	forms, err := s.forms.List(ctx, form.ListQuery{
		AssignedToID:  &caller.ID,
		ExcludeStatus: form.StatusCompleted,
	})
	if err != nil {
		return nil, err
	}
	if len(forms) > 0 || !caller.IsNeurologist() {
		return s.project(forms, false), nil
	}

	orphans, err := s.forms.List(ctx, form.ListQuery{
		Unassigned: true,
		Statuses:   []form.Status{form.StatusSubmitted},
	})
	if err != nil {
		return nil, err
	}
	if len(orphans) > 0 {
		s.log.Debug("offering unassigned forms for pickup",
			zap.Uint("neurologist_id", caller.ID),
			zap.Int("count", len(orphans)),
		)
	}
	return s.project(orphans, true), nil
}

func (s *SummaryService) Completed(ctx context.Context, caller *domain.User) ([]FormSummary, error) {
	forms, err := s.forms.List(ctx, form.ListQuery{
		AssignedToID: &caller.ID,
		Statuses:     []form.Status{form.StatusCompleted},
	})
	if err != nil {
		return nil, err
	}
	return s.project(forms, false), nil
}

func (s *SummaryService) All(ctx context.Context, caller *domain.User) ([]FormSummary, error) {
	forms, err := s.forms.List(ctx, form.ListQuery{AssignedToID: &caller.ID})
	if err != nil {
		return nil, err
	}
	return s.project(forms, false), nil
}

func (s *SummaryService) project(forms []*form.MedicalForm, pickup bool) []FormSummary {
	now := s.now()
	return lo.Map(forms, func(f *form.MedicalForm, _ int) FormSummary {
		fs := FormSummary{
			FormID:          f.ID,
			Status:          f.Status,
			SymptomSummary:  f.Symptoms,
			CreatedAt:       f.CreatedAt,
			PDFGenerated:    f.PDFGenerated,
			AssignedToID:    f.AssignedToID,
			PickupCandidate: pickup,
			AttachmentURLs: lo.Map(f.Attachments, func(a form.FileAttachment, _ int) string {
				return a.URL()
			}),
		}
		if f.SeizureType != "" {
			fs.SeizureType = f.SeizureType.Label()
		}
		if p := f.Patient; p != nil {
			fs.PatientName = p.Name
			fs.PatientCIN = p.CIN
			fs.PatientAge = p.CalendarAge(now)
			fs.PatientGender = string(p.Gender)
		}
		if d := f.Doctor; d != nil {
			fs.DoctorName = d.Name
			fs.DoctorEmail = d.Email
		}
		return fs
	})
}
