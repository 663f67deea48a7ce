package v1

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/form"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/notification"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/response"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/service"
	"github.com/samber/lo"
)

const dateLayout = "2006-01-02"

// Requests

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type registerAdminRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type doctorRequest struct {
	Name                string `json:"name"`
	Email               string `json:"email"`
	Phone               string `json:"phone"`
	CIN                 string `json:"cin"`
	Password            string `json:"password"`
	Role                string `json:"role"`
	Specialization      string `json:"specialization"`
	HospitalAffiliation string `json:"hospitalAffiliation"`
	LicenseNumber       string `json:"licenseNumber"`
	Governorate         string `json:"governorate"`
	City                string `json:"city"`
}

func (r doctorRequest) command() *service.DoctorCommand {
	return &service.DoctorCommand{
		Name:                r.Name,
		Email:               r.Email,
		Phone:               r.Phone,
		CIN:                 r.CIN,
		Password:            r.Password,
		Role:                r.Role,
		Specialization:      r.Specialization,
		HospitalAffiliation: r.HospitalAffiliation,
		LicenseNumber:       r.LicenseNumber,
		Governorate:         r.Governorate,
		City:                r.City,
	}
}

// submitFormRequest is the JSON part of the multipart submission.
type submitFormRequest struct {
	FullName    string `json:"fullName"`
	BirthDate   string `json:"birthDate"`
	Gender      string `json:"gender"`
	CIN         string `json:"cinNumber"`
	Governorate string `json:"region"`
	City        string `json:"city"`
	Address     string `json:"address"`
	Phone       string `json:"phoneNumber"`

	SeizureType      string `json:"seizureType"`
	FirstSeizureDate string `json:"firstSeizureDate"`
	LastSeizureDate  string `json:"lastSeizureDate"`
	TotalSeizures    *int   `json:"totalSeizures"`
	SeizureDuration  *int   `json:"seizureDuration"`
	SeizureFrequency string `json:"seizureFrequency"`

	LossOfConsciousness bool   `json:"lossOfConsciousness"`
	ProgressiveFall     bool   `json:"progressiveFall"`
	SuddenFall          bool   `json:"suddenFall"`
	BodyStiffening      bool   `json:"bodyStiffening"`
	JerkingMovements    bool   `json:"jerkingMovements"`
	Automatisms         bool   `json:"automatisms"`
	EyeDeviation        bool   `json:"eyeDeviation"`
	ActivityStop        bool   `json:"activityStop"`
	SensitiveDisorders  bool   `json:"sensitiveDisorders"`
	SensoryDisorders    bool   `json:"sensoryDisorders"`
	Incontinence        bool   `json:"incontinence"`
	TongueBiting        bool   `json:"tongueBiting"`
	IsFirstSeizure      bool   `json:"isFirstSeizure"`
	HasAura             bool   `json:"hasAura"`
	AuraDescription     string `json:"auraDescription"`
	OtherInformation    string `json:"otherInformation"`
}

// command converts the request, reporting every unparseable field at once.
func (r submitFormRequest) command() (*form.SubmitFormCommand, error) {
	var fields []string
	date := func(name, raw string) *time.Time {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			fields = append(fields, fmt.Sprintf("%s must be a date formatted YYYY-MM-DD", name))
			return nil
		}
		return &t
	}

	gender, err := patient.ParseGender(r.Gender)
	if err != nil {
		fields = append(fields, "gender must be M or F")
	}
	freq, err := form.ParseSeizureFrequency(r.SeizureFrequency)
	if err != nil {
		fields = append(fields, "seizure frequency must be DAILY, WEEKLY, MONTHLY or YEARLY")
	}

	cmd := &form.SubmitFormCommand{
		Patient: patient.Details{
			CIN:         r.CIN,
			Name:        r.FullName,
			Phone:       r.Phone,
			Address:     r.Address,
			Gender:      gender,
			Birthdate:   date("birthDate", r.BirthDate),
			Governorate: r.Governorate,
			City:        r.City,
		},
		SeizureType:            form.SeizureType(strings.TrimSpace(r.SeizureType)),
		DateFirstSeizure:       date("firstSeizureDate", r.FirstSeizureDate),
		DateLastSeizure:        date("lastSeizureDate", r.LastSeizureDate),
		TotalSeizures:          r.TotalSeizures,
		AverageSeizureDuration: r.SeizureDuration,
		SeizureFrequency:       freq,
		Symptoms: form.Symptoms{
			LossOfConsciousness: r.LossOfConsciousness,
			ProgressiveFall:     r.ProgressiveFall,
			SuddenFall:          r.SuddenFall,
			BodyStiffening:      r.BodyStiffening,
			ClonicJerks:         r.JerkingMovements,
			Automatisms:         r.Automatisms,
			EyeDeviation:        r.EyeDeviation,
			ActivityStop:        r.ActivityStop,
			SensitiveDisorders:  r.SensitiveDisorders,
			SensoryDisorders:    r.SensoryDisorders,
			Incontinence:        r.Incontinence,
			LateralTongueBiting: r.TongueBiting,
			IsFirstSeizure:      r.IsFirstSeizure,
			HasAura:             r.HasAura,
			AuraDescription:     r.AuraDescription,
			OtherInformation:    r.OtherInformation,
		},
	}
	if len(fields) > 0 {
		return nil, &service.ValidationError{Fields: fields}
	}
	return cmd, nil
}

type formResponseRequest struct {
	FormID               uint   `json:"formId" binding:"required"`
	ResponseType         string `json:"responseType"`
	Diagnosis            string `json:"diagnosis"`
	Recommendations      string `json:"recommendations"`
	TreatmentSuggestions string `json:"treatmentSuggestions"`
	MedicationChanges    string `json:"medicationChanges"`
	FollowUpInstructions string `json:"followUpInstructions"`
	RequiresSupervision  bool   `json:"requiresSupervision"`
	SupervisionDoctorID  *uint  `json:"supervisionDoctorId"`
	UrgencyLevel         string `json:"urgencyLevel"`
	FollowUpRequired     bool   `json:"followUpRequired"`
	FollowUpDate         string `json:"followUpDate"`
}

func (r formResponseRequest) command() (*response.RecordResponseCommand, error) {
	cmd := &response.RecordResponseCommand{
		FormID:               r.FormID,
		ResponseType:         response.Type(r.ResponseType),
		Diagnosis:            r.Diagnosis,
		Recommendations:      r.Recommendations,
		TreatmentSuggestions: r.TreatmentSuggestions,
		MedicationChanges:    r.MedicationChanges,
		FollowUpInstructions: r.FollowUpInstructions,
		RequiresSupervision:  r.RequiresSupervision,
		SupervisionDoctorID:  r.SupervisionDoctorID,
		UrgencyLevel:         response.UrgencyLevel(r.UrgencyLevel),
		FollowUpRequired:     r.FollowUpRequired,
	}
	if raw := strings.TrimSpace(r.FollowUpDate); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, &service.ValidationError{Fields: []string{"followUpDate must be a date formatted YYYY-MM-DD"}}
		}
		cmd.FollowUpDate = &t
	}
	return cmd, nil
}

type reassignRequest struct {
	NeurologistID uint `json:"neurologist_id" binding:"required"`
}

// Responses

type userDTO struct {
	ID                  uint        `json:"id"`
	Name                string      `json:"name"`
	Email               string      `json:"email"`
	Phone               string      `json:"phone,omitempty"`
	CIN                 string      `json:"cin,omitempty"`
	Role                domain.Role `json:"role"`
	Specialization      string      `json:"specialization,omitempty"`
	HospitalAffiliation string      `json:"hospital_affiliation,omitempty"`
	LicenseNumber       string      `json:"license_number,omitempty"`
	Governorate         string      `json:"governorate,omitempty"`
	City                string      `json:"city,omitempty"`
	IsActive            bool        `json:"is_active"`
	CreatedAt           time.Time   `json:"created_at"`
	LastLoginAt         *time.Time  `json:"last_login_at,omitempty"`
}

func toUserDTO(u *domain.User) userDTO {
	return userDTO{
		ID:                  u.ID,
		Name:                u.Name,
		Email:               u.Email,
		Phone:               u.Phone,
		CIN:                 u.CIN,
		Role:                u.Role,
		Specialization:      u.Specialization,
		HospitalAffiliation: u.HospitalAffiliation,
		LicenseNumber:       u.LicenseNumber,
		Governorate:         u.Governorate,
		City:                u.City,
		IsActive:            u.IsActive,
		CreatedAt:           u.CreatedAt,
		LastLoginAt:         u.LastLoginAt,
	}
}

type userRef struct {
	ID             uint        `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Role           domain.Role `json:"role"`
	Specialization string      `json:"specialization,omitempty"`
}

func toUserRef(u *domain.User) *userRef {
	if u == nil {
		return nil
	}
	return &userRef{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Specialization: u.Specialization}
}

type patientDTO struct {
	ID          uint           `json:"id"`
	CIN         string         `json:"cin"`
	Name        string         `json:"name"`
	Phone       string         `json:"phone,omitempty"`
	Address     string         `json:"address,omitempty"`
	Gender      patient.Gender `json:"gender,omitempty"`
	Birthdate   *time.Time     `json:"birthdate,omitempty"`
	Governorate string         `json:"governorate,omitempty"`
	City        string         `json:"city,omitempty"`
}

type attachmentDTO struct {
	ID         uint                `json:"id"`
	Kind       form.AttachmentKind `json:"kind"`
	FileName   string              `json:"file_name"`
	MimeType   string              `json:"mime_type"`
	SizeBytes  int64               `json:"size_bytes"`
	URL        string              `json:"url"`
	UploadedAt time.Time           `json:"uploaded_at"`
}

func toAttachmentDTO(a *form.FileAttachment) attachmentDTO {
	return attachmentDTO{
		ID:         a.ID,
		Kind:       a.Kind,
		FileName:   a.FileName,
		MimeType:   a.MimeType,
		SizeBytes:  a.SizeBytes,
		URL:        a.URL(),
		UploadedAt: a.UploadedAt,
	}
}

type formDTO struct {
	ID        uint        `json:"id"`
	Status    form.Status `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`

	Patient    *patientDTO `json:"patient,omitempty"`
	Doctor     *userRef    `json:"doctor,omitempty"`
	AssignedTo *userRef    `json:"assigned_to,omitempty"`

	SeizureType            form.SeizureType      `json:"seizure_type,omitempty"`
	SeizureTypeLabel       string                `json:"seizure_type_label,omitempty"`
	Symptoms               string                `json:"symptoms"`
	DateFirstSeizure       *time.Time            `json:"date_first_seizure,omitempty"`
	DateLastSeizure        *time.Time            `json:"date_last_seizure,omitempty"`
	TotalSeizures          *int                  `json:"total_seizures,omitempty"`
	AverageSeizureDuration *int                  `json:"average_seizure_duration,omitempty"`
	SeizureFrequency       form.SeizureFrequency `json:"seizure_frequency,omitempty"`

	PDFGenerated   bool       `json:"pdf_generated"`
	PDFGeneratedAt *time.Time `json:"pdf_generated_at,omitempty"`
	PDFFileName    string     `json:"pdf_file_name,omitempty"`

	Attachments []attachmentDTO `json:"attachments"`
}

func toFormDTO(f *form.MedicalForm) formDTO {
	out := formDTO{
		ID:                     f.ID,
		Status:                 f.Status,
		CreatedAt:              f.CreatedAt,
		UpdatedAt:              f.UpdatedAt,
		Doctor:                 toUserRef(f.Doctor),
		AssignedTo:             toUserRef(f.AssignedTo),
		SeizureType:            f.SeizureType,
		Symptoms:               f.Symptoms,
		DateFirstSeizure:       f.DateFirstSeizure,
		DateLastSeizure:        f.DateLastSeizure,
		TotalSeizures:          f.TotalSeizures,
		AverageSeizureDuration: f.AverageSeizureDuration,
		SeizureFrequency:       f.SeizureFrequency,
		PDFGenerated:           f.PDFGenerated,
		PDFGeneratedAt:         f.PDFGeneratedAt,
		PDFFileName:            f.PDFFileName,
		Attachments: lo.Map(f.Attachments, func(a form.FileAttachment, _ int) attachmentDTO {
			return toAttachmentDTO(&a)
		}),
	}
	if f.SeizureType != "" {
		out.SeizureTypeLabel = f.SeizureType.Label()
	}
	if p := f.Patient; p != nil {
		out.Patient = &patientDTO{
			ID:          p.ID,
			CIN:         p.CIN,
			Name:        p.Name,
			Phone:       p.Phone,
			Address:     p.Address,
			Gender:      p.Gender,
			Birthdate:   p.Birthdate,
			Governorate: p.Governorate,
			City:        p.City,
		}
	}
	return out
}

func toFormDTOs(forms []*form.MedicalForm) []formDTO {
	return lo.Map(forms, func(f *form.MedicalForm, _ int) formDTO { return toFormDTO(f) })
}

type responseDTO struct {
	ID                   uint                  `json:"id"`
	FormID               uint                  `json:"form_id"`
	CreatedAt            time.Time             `json:"created_at"`
	Responder            *userRef              `json:"responder,omitempty"`
	SupervisionDoctorID  *uint                 `json:"supervision_doctor_id,omitempty"`
	ResponseType         response.Type         `json:"response_type"`
	Diagnosis            string                `json:"diagnosis"`
	Recommendations      string                `json:"recommendations"`
	TreatmentSuggestions string                `json:"treatment_suggestions"`
	MedicationChanges    string                `json:"medication_changes"`
	FollowUpInstructions string                `json:"follow_up_instructions"`
	RequiresSupervision  bool                  `json:"requires_supervision"`
	UrgencyLevel         response.UrgencyLevel `json:"urgency_level"`
	FollowUpRequired     bool                  `json:"follow_up_required"`
	FollowUpDate         *time.Time            `json:"follow_up_date,omitempty"`
}

func toResponseDTO(r *response.FormResponse) responseDTO {
	return responseDTO{
		ID:                   r.ID,
		FormID:               r.FormID,
		CreatedAt:            r.CreatedAt,
		Responder:            toUserRef(r.Responder),
		SupervisionDoctorID:  r.SupervisionDoctorID,
		ResponseType:         r.ResponseType,
		Diagnosis:            r.Diagnosis,
		Recommendations:      r.Recommendations,
		TreatmentSuggestions: r.TreatmentSuggestions,
		MedicationChanges:    r.MedicationChanges,
		FollowUpInstructions: r.FollowUpInstructions,
		RequiresSupervision:  r.RequiresSupervision,
		UrgencyLevel:         r.UrgencyLevel,
		FollowUpRequired:     r.FollowUpRequired,
		FollowUpDate:         r.FollowUpDate,
	}
}

type responseDetailsDTO struct {
	Form     formDTO       `json:"form"`
	Response responseDTO   `json:"response"`
	History  []responseDTO `json:"history"`
}

type notificationDTO struct {
	ID          uint                     `json:"id"`
	Title       string                   `json:"title"`
	Message     string                   `json:"message"`
	Type        notification.Type        `json:"type"`
	RelatedID   *uint                    `json:"related_id,omitempty"`
	RelatedType notification.RelatedType `json:"related_type,omitempty"`
	IsRead      bool                     `json:"is_read"`
	CreatedAt   time.Time                `json:"created_at"`
}

func toNotificationDTOs(ns []*notification.Notification) []notificationDTO {
	return lo.Map(ns, func(n *notification.Notification, _ int) notificationDTO {
		return notificationDTO{
			ID:          n.ID,
			Title:       n.Title,
			Message:     n.Message,
			Type:        n.Type,
			RelatedID:   n.RelatedID,
			RelatedType: n.RelatedType,
			IsRead:      n.IsRead,
			CreatedAt:   n.CreatedAt,
		}
	})
}
