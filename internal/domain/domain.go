package domain

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type Role string

const (
	RoleAdmin              Role = "ADMIN"
	RoleMedecin            Role = "MEDECIN"
	RoleNeurologue         Role = "NEUROLOGUE"
	RoleNeurologueResident Role = "NEUROLOGUE_RESIDENT"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleMedecin, RoleNeurologue, RoleNeurologueResident:
		return true
	}
	return false
}

// IsNeurologist reports whether the role may be assigned forms.
func (r Role) IsNeurologist() bool {
	return r == RoleNeurologue || r == RoleNeurologueResident
}

// NeurologistRoles are the roles that make up the assignment pool.
var NeurologistRoles = []Role{RoleNeurologue, RoleNeurologueResident}

// ClinicianRoles are the roles that can be requested through self-registration.
var ClinicianRoles = []Role{RoleMedecin, RoleNeurologue, RoleNeurologueResident}

// ParseRole is the single entry point for untrusted role strings.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
	return r, nil
}

type User struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Name         string `gorm:"column:name;type:varchar(150);not null"`
	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	Phone        string `gorm:"column:phone;type:varchar(30)"`
	CIN          string `gorm:"column:cin;type:varchar(20);index"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null"`
	Role         Role   `gorm:"column:role;type:varchar(30);not null;index"`

	Specialization      string `gorm:"column:specialization;type:varchar(255)"`
	HospitalAffiliation string `gorm:"column:hospital_affiliation;type:varchar(255)"`
	LicenseNumber       string `gorm:"column:license_number;type:varchar(50)"`
	Governorate         string `gorm:"column:governorate;type:varchar(100)"`
	City                string `gorm:"column:city;type:varchar(100)"`

	IsActive         bool       `gorm:"column:is_active;not null;index"`
	FailedLoginCount int        `gorm:"column:failed_login_count;default:0"`
	LockedUntil      *time.Time `gorm:"column:locked_until"`
	LastLoginAt      *time.Time `gorm:"column:last_login_at"`
}

func (User) TableName() string {
	return "auth.users"
}

// IsLocked returns true if the account is temporarily locked due to failed logins.
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

func (u *User) IsNeurologist() bool {
	return u.Role.IsNeurologist()
}

type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionRead   AuditAction = "read"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
	ActionLogin  AuditAction = "login"
)

type AuditLog struct {
	ID         uint      `gorm:"primaryKey"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	UserID    uint   `gorm:"column:user_id;not null;index"`
	UserRole  Role   `gorm:"column:user_role;type:varchar(30);not null"`
	IPAddress string `gorm:"column:ip_address;type:varchar(45)"`

	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(50);index"`

	RequestID string `gorm:"column:request_id;type:varchar(50);index"`

	Changes datatypes.JSON `gorm:"column:changes;type:jsonb"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

type Claims struct {
	UserID uint   `json:"sub"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}
