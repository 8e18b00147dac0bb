package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Title           string    `gorm:"not null" json:"title"`
	Description     string    `json:"description"`
	Price           float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	DurationMinutes int       `json:"durationMinutes"`
	// Category is the membership session category this service consumes
	// when paid with a membership ("SPA", "Jacuzzi", "Hamam").
	Category string `gorm:"default:'SPA'" json:"category"`
	IsActive bool   `gorm:"default:true" json:"isActive"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *Service) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

// MembershipPlan is the purchasable template. Its allotments are copied onto
// the bill item at purchase time.
type MembershipPlan struct {
	ID                uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Name              string     `gorm:"not null" json:"name"`
	Price             float64    `gorm:"type:decimal(10,2);not null" json:"price"`
	Timing            string     `json:"timing"`
	TherapyDetails    string     `gorm:"type:text" json:"therapyDetails"`
	SessionAllotments Allotments `gorm:"type:jsonb" json:"sessionAllotments"`
	IsActive          bool       `gorm:"default:true" json:"isActive"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (m *MembershipPlan) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
