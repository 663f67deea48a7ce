package form

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/patient"
)

// Status transitions:
//
//	SUBMITTED → UNDER_REVIEW → COMPLETED
//	SUBMITTED → REQUIRES_SUPERVISION → COMPLETED
type Status string

const (
	StatusSubmitted           Status = "SUBMITTED"
	StatusUnderReview         Status = "UNDER_REVIEW"
	StatusRequiresSupervision Status = "REQUIRES_SUPERVISION"
	StatusCompleted           Status = "COMPLETED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusSubmitted, StatusUnderReview, StatusRequiresSupervision, StatusCompleted:
		return true
	}
	return false
}

// OpenStatuses are the statuses a doctor's "active" list shows.
var OpenStatuses = []Status{StatusSubmitted, StatusUnderReview, StatusRequiresSupervision}

var validTransitions = map[Status][]Status{
	StatusSubmitted:           {StatusUnderReview, StatusRequiresSupervision, StatusCompleted},
	StatusUnderReview:         {StatusCompleted},
	StatusRequiresSupervision: {StatusUnderReview, StatusCompleted},
	StatusCompleted:           {},
}

// CanTransitionTo reports whether moving from s to next goes forward.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type SeizureFrequency string

const (
	FrequencyDaily   SeizureFrequency = "DAILY"
	FrequencyWeekly  SeizureFrequency = "WEEKLY"
	FrequencyMonthly SeizureFrequency = "MONTHLY"
	FrequencyYearly  SeizureFrequency = "YEARLY"
)

func (f SeizureFrequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

func ParseSeizureFrequency(raw string) (SeizureFrequency, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return "", nil
	}
	f := SeizureFrequency(raw)
	if !f.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, raw)
	}
	return f, nil
}

type SeizureType string

const (
	SeizureGeneralizedTonicClonic    SeizureType = "generalizedTonicClonic"
	SeizureGeneralizedOther          SeizureType = "generalizedOther"
	SeizureAbsence                   SeizureType = "absence"
	SeizureFocalWithConsciousLoss    SeizureType = "focalWithLossOfConsciousness"
	SeizureFocalWithoutConsciousLoss SeizureType = "focalWithoutLossOfConsciousness"
)

var seizureTypeLabels = map[SeizureType]string{
	SeizureGeneralizedTonicClonic:    "Généralisée Tonico-clonique",
	SeizureGeneralizedOther:          "Généralisée autre (tonique, clonique, myoclonique, atonique)",
	SeizureAbsence:                   "Absence",
	SeizureFocalWithConsciousLoss:    "Focale avec perte de connaissance",
	SeizureFocalWithoutConsciousLoss: "Focale sans perte de connaissance",
}

// Label returns the clinical label, or the raw value for unknown types.
func (t SeizureType) Label() string {
	if l, ok := seizureTypeLabels[t]; ok {
		return l
	}
	return string(t)
}

type MedicalForm struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PatientID uint             `gorm:"column:patient_id;not null;index"`
	Patient   *patient.Patient `gorm:"foreignKey:PatientID"`

	// Author; never changes after creation.
	DoctorID uint         `gorm:"column:doctor_id;not null;index"`
	Doctor   *domain.User `gorm:"foreignKey:DoctorID"`

	AssignedToID *uint        `gorm:"column:assigned_to_id;index"`
	AssignedTo   *domain.User `gorm:"foreignKey:AssignedToID"`

	Status Status `gorm:"column:status;type:varchar(30);not null;index"`

	SeizureType            SeizureType      `gorm:"column:seizure_type;type:varchar(50)"`
	Symptoms               string           `gorm:"column:symptoms;type:text"`
	DateFirstSeizure       *time.Time       `gorm:"column:date_first_seizure;type:date"`
	DateLastSeizure        *time.Time       `gorm:"column:date_last_seizure;type:date"`
	TotalSeizures          *int             `gorm:"column:total_seizures"`
	AverageSeizureDuration *int             `gorm:"column:average_seizure_duration"`
	SeizureFrequency       SeizureFrequency `gorm:"column:seizure_frequency;type:varchar(20)"`

	PDFGenerated   bool       `gorm:"column:pdf_generated;not null;default:false;index"`
	PDFGeneratedAt *time.Time `gorm:"column:pdf_generated_at"`
	PDFFileName    string     `gorm:"column:pdf_file_name;type:varchar(255)"`
	PDFFilePath    string     `gorm:"column:pdf_file_path;type:varchar(500)"`

	Attachments []FileAttachment `gorm:"foreignKey:FormID"`
}

func (MedicalForm) TableName() string {
	return "clinical.medical_forms"
}

func (f *MedicalForm) IsAssignedTo(userID uint) bool {
	return f.AssignedToID != nil && *f.AssignedToID == userID
}

// IsUnclaimed reports whether any neurologist may pick the form up.
func (f *MedicalForm) IsUnclaimed() bool {
	return f.Status == StatusSubmitted && f.AssignedToID == nil
}

type AttachmentKind string

const (
	AttachmentMRI   AttachmentKind = "MRI_PHOTO"
	AttachmentVideo AttachmentKind = "SEIZURE_VIDEO"
)

type FileAttachment struct {
	ID         uint      `gorm:"primaryKey"`
	UploadedAt time.Time `gorm:"autoCreateTime"`

	FormID       uint `gorm:"column:form_id;not null;index"`
	UploadedByID uint `gorm:"column:uploaded_by_id;not null"`

	Kind        AttachmentKind `gorm:"column:kind;type:varchar(20);not null"`
	FileName    string         `gorm:"column:file_name;type:varchar(255);not null"`
	StoragePath string         `gorm:"column:storage_path;type:varchar(500);not null"`
	MimeType    string         `gorm:"column:mime_type;type:varchar(100)"`
	SizeBytes   int64          `gorm:"column:size_bytes"`
	Encrypted   bool           `gorm:"column:is_encrypted;not null;default:false"`
}

func (FileAttachment) TableName() string {
	return "clinical.file_attachments"
}

// URL is the opaque reference handed to clients.
func (a *FileAttachment) URL() string {
	return fmt.Sprintf("/api/neurologue/attachments/%d", a.ID)
}

// DoctorFilter selects a subset of a doctor's own forms.
type DoctorFilter string

const (
	FilterAll       DoctorFilter = "all"
	FilterActive    DoctorFilter = "active"
	FilterCompleted DoctorFilter = "completed"
	FilterRecent    DoctorFilter = "recent"
)

func (f DoctorFilter) IsValid() bool {
	switch f {
	case FilterAll, FilterActive, FilterCompleted, FilterRecent:
		return true
	}
	return false
}

// ListQuery describes a form lookup. Results are ordered newest first.
type ListQuery struct {
	DoctorID       *uint
	AssignedToID   *uint
	Unassigned     bool
	Statuses       []Status
	ExcludeStatus  Status
	CreatedAfter   *time.Time
	PDFMissingOnly bool
	Limit          int
}
