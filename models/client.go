package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Client struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`

	Name        string     `gorm:"not null" json:"name"`
	Phone       string     `gorm:"index" json:"phone"`
	Email       string     `json:"email"`
	Address     string     `json:"address"`
	Notes       string     `json:"notes"`
	TotalVisits int        `gorm:"default:0" json:"totalVisits"`
	TotalSpent  float64    `gorm:"type:decimal(10,2);default:0.0" json:"totalSpent"`
	LastVisit   *time.Time `json:"lastVisit"`
	IsActive    bool       `gorm:"default:true" json:"isActive"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

type Staff struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name   string    `gorm:"not null" json:"name"`
	Role   string    `json:"role"`
	Phone  string    `json:"phone"`
	Email  string    `json:"email"`
	Active bool      `json:"active"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the default "staffs".
func (Staff) TableName() string { return "staff" }

func (s *Staff) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}
