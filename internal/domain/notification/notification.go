package notification

import "time"

type Type string

const (
	TypeNewForm Type = "NEW_FORM"
	TypeUpdate  Type = "UPDATE"
	TypeAlert   Type = "ALERT"
)

type RelatedType string

const (
	RelatedMedicalForm  RelatedType = "MEDICAL_FORM"
	RelatedFormResponse RelatedType = "FORM_RESPONSE"
)

type Notification struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`

	UserID uint `gorm:"column:user_id;not null;index"`

	Title       string      `gorm:"column:title;type:varchar(255);not null"`
	Message     string      `gorm:"column:message;type:text"`
	Type        Type        `gorm:"column:type;type:varchar(20);not null"`
	RelatedID   *uint       `gorm:"column:related_id"`
	RelatedType RelatedType `gorm:"column:related_type;type:varchar(30)"`
	IsRead      bool        `gorm:"column:is_read;not null;default:false;index"`
}

func (Notification) TableName() string {
	return "notify.notifications"
}
