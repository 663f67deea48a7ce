package patient

import (
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
)

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale:
		return true
	}
	return false
}

// ParseGender accepts the short codes and their spelled-out forms.
func ParseGender(raw string) (Gender, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case "M", "MALE", "HOMME":
		return GenderMale, nil
	case "F", "FEMALE", "FEMME":
		return GenderFemale, nil
	}
	return "", ErrInvalidGender
}

type Patient struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	CIN       string     `gorm:"column:cin;type:varchar(20);uniqueIndex;not null"`
	Name      string     `gorm:"column:name;type:varchar(150);not null"`
	Phone     string     `gorm:"column:phone;type:varchar(30)"`
	Address   string     `gorm:"column:address;type:text"`
	Gender    Gender     `gorm:"column:gender;type:varchar(1)"`
	Birthdate *time.Time `gorm:"column:birthdate;type:date"`

	Governorate string `gorm:"column:governorate;type:varchar(100)"`
	City        string `gorm:"column:city;type:varchar(100)"`

	// Latest doctor to submit a form for this patient.
	ReferringDoctorID *uint        `gorm:"column:referring_doctor_id;index"`
	ReferringDoctor   *domain.User `gorm:"foreignKey:ReferringDoctorID"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

// CalendarAge subtracts birth year from the current year without
// adjusting for whether the birthday has passed yet.
func (p *Patient) CalendarAge(now time.Time) int {
	if p.Birthdate == nil {
		return 0
	}
	return now.Year() - p.Birthdate.Year()
}

// Details carries the demographic fields a submission may supply.
type Details struct {
	CIN         string
	Name        string
	Phone       string
	Address     string
	Gender      Gender
	Birthdate   *time.Time
	Governorate string
	City        string
}

// Refresh applies a new submission's details. Name, address and phone are
// overwritten when supplied; gender, birthdate and location only fill gaps.
func (p *Patient) Refresh(d Details, referringDoctorID uint) {
	if v := strings.TrimSpace(d.Name); v != "" {
		p.Name = v
	}
	if v := strings.TrimSpace(d.Address); v != "" {
		p.Address = v
	}
	if v := strings.TrimSpace(d.Phone); v != "" {
		p.Phone = v
	}
	if p.Gender == "" && d.Gender != "" {
		p.Gender = d.Gender
	}
	if p.Birthdate == nil && d.Birthdate != nil {
		p.Birthdate = d.Birthdate
	}
	if p.Governorate == "" {
		p.Governorate = d.Governorate
	}
	if p.City == "" {
		p.City = d.City
	}
	p.ReferringDoctorID = &referringDoctorID
	p.ReferringDoctor = nil
}

// New builds a patient record for a CIN seen for the first time.
func New(d Details, referringDoctorID uint) *Patient {
	p := &Patient{CIN: strings.TrimSpace(d.CIN)}
	p.Refresh(d, referringDoctorID)
	return p
}
