package response

import (
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
)

type Type string

const (
	TypeDiagnosis          Type = "DIAGNOSIS"
	TypeRecommendation     Type = "RECOMMENDATION"
	TypeSupervisionRequest Type = "SUPERVISION_REQUEST"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeDiagnosis, TypeRecommendation, TypeSupervisionRequest:
		return true
	}
	return false
}

type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "LOW"
	UrgencyMedium   UrgencyLevel = "MEDIUM"
	UrgencyHigh     UrgencyLevel = "HIGH"
	UrgencyCritical UrgencyLevel = "CRITICAL"
)

func (u UrgencyLevel) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// FormResponse is immutable once written.
type FormResponse struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`

	FormID uint `gorm:"column:form_id;not null;index"`

	ResponderID uint         `gorm:"column:responder_id;not null;index"`
	Responder   *domain.User `gorm:"foreignKey:ResponderID"`

	SupervisionDoctorID *uint        `gorm:"column:supervision_doctor_id"`
	SupervisionDoctor   *domain.User `gorm:"foreignKey:SupervisionDoctorID"`

	ResponseType         Type         `gorm:"column:response_type;type:varchar(30);not null"`
	Diagnosis            string       `gorm:"column:diagnosis;type:text"`
	Recommendations      string       `gorm:"column:recommendations;type:text"`
	TreatmentSuggestions string       `gorm:"column:treatment_suggestions;type:text"`
	MedicationChanges    string       `gorm:"column:medication_changes;type:text"`
	FollowUpInstructions string       `gorm:"column:follow_up_instructions;type:text"`
	RequiresSupervision  bool         `gorm:"column:requires_supervision;not null;default:false"`
	UrgencyLevel         UrgencyLevel `gorm:"column:urgency_level;type:varchar(20);not null"`
	FollowUpRequired     bool         `gorm:"column:follow_up_required;not null;default:false"`
	FollowUpDate         *time.Time   `gorm:"column:follow_up_date;type:date"`
}

func (FormResponse) TableName() string {
	return "clinical.form_responses"
}

type RecordResponseCommand struct {
	FormID               uint
	ResponseType         Type
	Diagnosis            string
	Recommendations      string
	TreatmentSuggestions string
	MedicationChanges    string
	FollowUpInstructions string
	RequiresSupervision  bool
	SupervisionDoctorID  *uint
	UrgencyLevel         UrgencyLevel
	FollowUpRequired     bool
	FollowUpDate         *time.Time
}

// Normalize applies defaults and upper-cases enum values.
func (c *RecordResponseCommand) Normalize() {
	c.ResponseType = Type(strings.ToUpper(strings.TrimSpace(string(c.ResponseType))))
	if c.ResponseType == "" {
		c.ResponseType = TypeDiagnosis
	}
	c.UrgencyLevel = UrgencyLevel(strings.ToUpper(strings.TrimSpace(string(c.UrgencyLevel))))
	if c.UrgencyLevel == "" {
		c.UrgencyLevel = UrgencyMedium
	}
}
