package form

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/patient"
)

// Symptoms are the clinical observations ticked on the referral form.
type Symptoms struct {
	LossOfConsciousness bool
	ProgressiveFall     bool
	SuddenFall          bool
	BodyStiffening      bool
	ClonicJerks         bool
	Automatisms         bool
	EyeDeviation        bool
	ActivityStop        bool
	SensitiveDisorders  bool
	SensoryDisorders    bool
	Incontinence        bool
	LateralTongueBiting bool

	IsFirstSeizure   bool
	HasAura          bool
	AuraDescription  string
	OtherInformation string
}

// SubmitFormCommand is everything a doctor supplies when referring a case.
type SubmitFormCommand struct {
	Patient patient.Details

	SeizureType            SeizureType
	DateFirstSeizure       *time.Time
	DateLastSeizure        *time.Time
	TotalSeizures          *int
	AverageSeizureDuration *int
	SeizureFrequency       SeizureFrequency

	Symptoms Symptoms
}
