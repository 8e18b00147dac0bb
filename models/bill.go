package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Bill item discriminants.
const (
	ItemTypeService    = "service"
	ItemTypeMembership = "membership"
)

type Bill struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BillNumber string    `gorm:"uniqueIndex;not null" json:"billNumber"`

	ClientID      *uuid.UUID `gorm:"type:uuid;index" json:"clientId"`
	ClientName    string     `gorm:"not null" json:"clientName"`
	ClientPhone   string     `gorm:"index" json:"clientPhone"`
	ClientAddress string     `json:"clientAddress"`
	StaffID       *uuid.UUID `gorm:"type:uuid;index" json:"staffId"`

	DateFrom time.Time       `gorm:"index;not null" json:"dateFrom"`
	TimeFrom *datatypes.Time `json:"timeFrom"`
	TimeTo   *datatypes.Time `json:"timeTo"`

	Subtotal        float64 `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	DiscountPercent float64 `gorm:"type:decimal(5,2);default:0.0" json:"discountPercent"`
	Total           float64 `gorm:"type:decimal(10,2);not null" json:"total"`
	PaymentMethod   string  `json:"paymentMethod"`
	Notes           string  `json:"notes"`

	Items []BillItem `gorm:"foreignKey:BillID;constraint:OnDelete:CASCADE" json:"items"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Bill) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}

// MembershipItem returns the first membership item of the bill, if any.
func (b *Bill) MembershipItem() *BillItem {
	for i := range b.Items {
		if b.Items[i].ItemType == ItemTypeMembership {
			return &b.Items[i]
		}
	}
	return nil
}

func (b *Bill) IsMembershipPurchase() bool {
	return b.MembershipItem() != nil
}

func (b *Bill) IsServiceBill() bool {
	for _, it := range b.Items {
		if it.ItemType == ItemTypeService {
			return true
		}
	}
	return false
}

// BillItem is a tagged variant: ItemType selects which of the
// service or membership fields are meaningful.
type BillItem struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BillID   uuid.UUID `gorm:"type:uuid;index;not null" json:"billId"`
	Position int       `gorm:"not null;default:0" json:"position"`
	ItemType string    `gorm:"type:varchar(20);not null" json:"itemType"`
	Name     string    `gorm:"not null" json:"name"`

	Quantity        int     `gorm:"default:1" json:"quantity"`
	Price           float64 `gorm:"type:decimal(10,2);not null" json:"price"`
	DiscountPercent float64 `gorm:"type:decimal(5,2);default:0.0" json:"discountPercent"`
	Amount          float64 `gorm:"type:decimal(10,2);not null" json:"amount"`

	// service items
	ServiceID            *uuid.UUID `gorm:"type:uuid;index" json:"serviceId,omitempty"`
	MembershipPurchaseID *uuid.UUID `gorm:"type:uuid;index" json:"membershipPurchaseId,omitempty"`
	MembershipUsed       bool       `gorm:"default:false" json:"membershipUsed"`

	// membership items
	MembershipPlanID  *uuid.UUID `gorm:"type:uuid;index" json:"membershipPlanId,omitempty"`
	SessionAllotments Allotments `gorm:"type:jsonb" json:"sessionAllotments,omitempty"`
}

func (i *BillItem) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}
