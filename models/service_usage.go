package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ServiceUsage records one consumed membership session. It names the slot by
// category and label rather than by index; occupancy is derived on read.
type ServiceUsage struct {
	ID                       uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	MembershipPurchaseBillID uuid.UUID  `gorm:"type:uuid;index;not null" json:"membershipPurchaseBillId"`
	ClientID                 *uuid.UUID `gorm:"type:uuid;index" json:"clientId"`
	MembershipPlanID         *uuid.UUID `gorm:"type:uuid" json:"membershipPlanId"`

	ServiceCategory string          `gorm:"type:varchar(50);not null" json:"serviceCategory"`
	ServiceLabel    string          `gorm:"type:varchar(100)" json:"serviceLabel"`
	Date            time.Time       `gorm:"not null" json:"date"`
	FromTime        *datatypes.Time `json:"fromTime"`
	ToTime          *datatypes.Time `json:"toTime"`
	Notes           string          `gorm:"type:text" json:"notes"`

	// set when the usage was created by a membership-paid service bill
	ServiceBillID *uuid.UUID `gorm:"type:uuid;index" json:"serviceBillId"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *ServiceUsage) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}

// NotificationLog is one session-reminder delivery attempt.
type NotificationLog struct {
	ID                       uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	ClientID                 *uuid.UUID `gorm:"type:uuid;index" json:"clientId"`
	MembershipPurchaseBillID uuid.UUID  `gorm:"type:uuid;index;not null" json:"membershipPurchaseBillId"`
	Phone                    string     `gorm:"type:varchar(30)" json:"phone"`
	Message                  string     `gorm:"type:text" json:"message"`
	Status                   string     `gorm:"type:varchar(20)" json:"status"`  // sent, failed
	Channel                  string     `gorm:"type:varchar(20)" json:"channel"` // whatsapp, sms
	ErrorMessage             string     `gorm:"type:text" json:"errorMessage"`
	SentAt                   time.Time  `gorm:"index" json:"sentAt"`
	CreatedAt                time.Time  `json:"createdAt"`
}

func (n *NotificationLog) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}
