// controllers/bill.go
package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"spa-backoffice/accounting"
	"spa-backoffice/config"
	"spa-backoffice/metrics"
	"spa-backoffice/models"
	"spa-backoffice/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// BillItemInput is one line of a bill. Ids may be sent raw or as embedded
// objects; "service" and "membership" are accepted as aliases.
type BillItemInput struct {
	ItemType          string            `json:"itemType" binding:"required,oneof=service membership"`
	ServiceID         accounting.Ref    `json:"serviceId"`
	Service           accounting.Ref    `json:"service"`
	MembershipPlanID  accounting.Ref    `json:"membershipPlanId"`
	Membership        accounting.Ref    `json:"membership"`
	Name              string            `json:"name"`
	Quantity          int               `json:"quantity" binding:"omitempty,min=1"`
	Price             *float64          `json:"price" binding:"omitempty,min=0"`
	DiscountPercent   float64           `json:"discountPercent" binding:"min=0,max=100"`
	SessionAllotments models.Allotments `json:"sessionAllotments"`

	MembershipPurchaseID accounting.Ref `json:"membershipPurchaseId"`
	MembershipUsed       bool           `json:"membershipUsed"`
}

// CreateBillInput defines the expected JSON structure for creating a bill
type CreateBillInput struct {
	ClientID        accounting.Ref  `json:"clientId"`
	ClientName      string          `json:"clientName"`
	ClientPhone     string          `json:"clientPhone"`
	ClientAddress   string          `json:"clientAddress"`
	StaffID         accounting.Ref  `json:"staffId"`
	DateFrom        string          `json:"dateFrom"`
	TimeFrom        string          `json:"timeFrom"`
	TimeTo          string          `json:"timeTo"`
	DiscountPercent float64         `json:"discountPercent" binding:"min=0,max=100"`
	PaymentMethod   string          `json:"paymentMethod"`
	Notes           string          `json:"notes"`
	Items           []BillItemInput `json:"items" binding:"required,min=1,dive"`
}

// UpdateBillInput defines the expected JSON structure for updating a bill.
// Sending items replaces every line and re-applies membership usage.
type UpdateBillInput struct {
	ClientName      *string          `json:"clientName"`
	ClientPhone     *string          `json:"clientPhone"`
	ClientAddress   *string          `json:"clientAddress"`
	StaffID         *accounting.Ref  `json:"staffId"`
	DateFrom        *string          `json:"dateFrom"`
	TimeFrom        *string          `json:"timeFrom"`
	TimeTo          *string          `json:"timeTo"`
	DiscountPercent *float64         `json:"discountPercent" binding:"omitempty,min=0,max=100"`
	PaymentMethod   *string          `json:"paymentMethod"`
	Notes           *string          `json:"notes"`
	Items           *[]BillItemInput `json:"items" binding:"omitempty,min=1,dive"`
}

func refUUID(r accounting.Ref, what string) (*uuid.UUID, error) {
	if r == "" {
		return nil, nil
	}
	id, err := r.UUID()
	if err != nil {
		return nil, badRequest("Invalid " + what + " ID format")
	}
	return &id, nil
}

func firstRef(refs ...accounting.Ref) accounting.Ref {
	for _, r := range refs {
		if r != "" {
			return r
		}
	}
	return ""
}

// pendingUsage is a membership session a service line consumes.
type pendingUsage struct {
	purchaseID uuid.UUID
	category   string
}

// buildItems prices the lines against the catalog. It returns the items, the
// sessions to book against memberships, and the subtotal.
func buildItems(tx *gorm.DB, inputs []BillItemInput) ([]models.BillItem, []pendingUsage, float64, error) {
	var (
		items    []models.BillItem
		sessions []pendingUsage
		subtotal float64
	)

	for i, in := range inputs {
		item := models.BillItem{
			Position:        i,
			ItemType:        in.ItemType,
			Quantity:        in.Quantity,
			DiscountPercent: in.DiscountPercent,
		}
		if item.Quantity == 0 {
			item.Quantity = 1
		}

		switch in.ItemType {
		case models.ItemTypeService:
			serviceID, err := refUUID(firstRef(in.ServiceID, in.Service), "service")
			if err != nil {
				return nil, nil, 0, err
			}
			if serviceID == nil {
				return nil, nil, 0, badRequest(fmt.Sprintf("Item %d: service is required", i+1))
			}
			var service models.Service
			if err := tx.First(&service, "id = ?", *serviceID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, nil, 0, badRequest("Service not found: " + serviceID.String())
				}
				return nil, nil, 0, err
			}

			item.ServiceID = serviceID
			item.Name = service.Title
			item.Price = service.Price
			if in.Price != nil {
				item.Price = utils.RoundMoney(*in.Price)
			}
			item.Amount = utils.ApplyDiscount(item.Price*float64(item.Quantity), item.DiscountPercent)

			purchaseID, err := refUUID(in.MembershipPurchaseID, "membership purchase")
			if err != nil {
				return nil, nil, 0, err
			}
			item.MembershipPurchaseID = purchaseID
			if in.MembershipUsed {
				if purchaseID == nil {
					return nil, nil, 0, badRequest(fmt.Sprintf("Item %d: membershipPurchaseId is required when paying with a membership", i+1))
				}
				item.MembershipUsed = true
				item.Amount = 0
				for n := 0; n < item.Quantity; n++ {
					sessions = append(sessions, pendingUsage{purchaseID: *purchaseID, category: service.Category})
				}
			}

		case models.ItemTypeMembership:
			planID, err := refUUID(firstRef(in.MembershipPlanID, in.Membership), "membership plan")
			if err != nil {
				return nil, nil, 0, err
			}
			if planID == nil {
				return nil, nil, 0, badRequest(fmt.Sprintf("Item %d: membership plan is required", i+1))
			}
			var plan models.MembershipPlan
			if err := tx.First(&plan, "id = ?", *planID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, nil, 0, badRequest("Membership plan not found: " + planID.String())
				}
				return nil, nil, 0, err
			}

			item.MembershipPlanID = planID
			item.Name = plan.Name
			item.Quantity = 1
			item.Price = plan.Price
			if in.Price != nil {
				item.Price = utils.RoundMoney(*in.Price)
			}
			item.Amount = utils.ApplyDiscount(item.Price, item.DiscountPercent)

			// copy the allotments so later plan edits leave this purchase alone
			snapshot := models.Allotments{}
			source := plan.SessionAllotments
			if in.SessionAllotments != nil {
				source = in.SessionAllotments
			}
			for k, n := range source {
				if n < 0 {
					return nil, nil, 0, badRequest("Session counts must not be negative")
				}
				snapshot[k] = n
			}
			item.SessionAllotments = snapshot
		}

		if name := strings.TrimSpace(in.Name); name != "" {
			item.Name = name
		}
		subtotal += item.Amount
		items = append(items, item)
	}
	return items, sessions, utils.RoundMoney(subtotal), nil
}

// resolveClient finds the bill's client by id, or by phone, creating a client
// record for a new phone number. Walk-ins without a phone get no record.
func resolveClient(tx *gorm.DB, ref accounting.Ref, name, phone, address string) (*models.Client, error) {
	if ref != "" {
		id, err := refUUID(ref, "client")
		if err != nil {
			return nil, err
		}
		var client models.Client
		if err := tx.First(&client, "id = ?", *id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, badRequest("Client not found")
			}
			return nil, err
		}
		return &client, nil
	}

	if strings.TrimSpace(phone) == "" {
		return nil, nil
	}
	if !utils.ValidatePhone(phone) {
		return nil, badRequest("Invalid phone number format")
	}
	phone = utils.NormalizePhone(phone)

	var client models.Client
	err := tx.Where("phone = ?", phone).First(&client).Error
	if err == nil {
		return &client, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, badRequest("clientName is required")
	}
	client = models.Client{
		Name:     strings.TrimSpace(name),
		Phone:    phone,
		Address:  address,
		IsActive: true,
	}
	if err := tx.Create(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

// bookSessions writes one ServiceUsage per membership-paid unit. Each is
// checked against the purchase's current balance, so rows booked earlier in
// the same bill count.
func bookSessions(tx *gorm.DB, bill *models.Bill, sessions []pendingUsage) error {
	for _, s := range sessions {
		purchase, err := loadPurchase(tx, s.purchaseID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return badRequest("Membership purchase not found: " + s.purchaseID.String())
			}
			return err
		}
		label, err := purchase.Reserve(s.category, "")
		if err != nil {
			return fmt.Errorf("membership %s: %w", s.purchaseID, err)
		}

		purchaseItem := purchase.Bill.MembershipItem()
		billID := bill.ID
		usage := models.ServiceUsage{
			MembershipPurchaseBillID: s.purchaseID,
			ClientID:                 copyID(purchase.Bill.ClientID),
			MembershipPlanID:         copyID(purchaseItem.MembershipPlanID),
			ServiceCategory:          accounting.LookupCategory(s.category).Name,
			ServiceLabel:             label,
			Date:                     bill.DateFrom,
			FromTime:                 bill.TimeFrom,
			ToTime:                   bill.TimeTo,
			Notes:                    "Bill " + bill.BillNumber,
			ServiceBillID:            &billID,
		}
		if err := tx.Create(&usage).Error; err != nil {
			return err
		}
		metrics.IncSessionLogged(usage.ServiceCategory, "bill")
	}
	return nil
}

func applyClientStats(tx *gorm.DB, clientID *uuid.UUID, visits int, spent float64, lastVisit *time.Time) error {
	if clientID == nil {
		return nil
	}
	updates := map[string]interface{}{
		"total_visits": gorm.Expr("total_visits + ?", visits),
		"total_spent":  gorm.Expr("total_spent + ?", spent),
	}
	if lastVisit != nil {
		updates["last_visit"] = *lastVisit
	}
	return tx.Model(&models.Client{}).Where("id = ?", *clientID).Updates(updates).Error
}

func parseBillTimes(dateFrom, timeFrom, timeTo string, bill *models.Bill) error {
	if strings.TrimSpace(dateFrom) != "" {
		d, err := utils.ParseDate(dateFrom, location())
		if err != nil {
			return badRequest("Invalid dateFrom")
		}
		bill.DateFrom = d
	}
	from, err := utils.ParseClock(timeFrom)
	if err != nil {
		return badRequest("Invalid timeFrom")
	}
	to, err := utils.ParseClock(timeTo)
	if err != nil {
		return badRequest("Invalid timeTo")
	}
	bill.TimeFrom, bill.TimeTo = from, to
	return nil
}

func defaultPaymentMethod(method string, items []models.BillItem) string {
	if method != "" {
		return method
	}
	for _, it := range items {
		if !(it.ItemType == models.ItemTypeService && it.MembershipUsed) {
			return "cash"
		}
	}
	return "membership"
}

func createBill(tx *gorm.DB, input CreateBillInput) (*models.Bill, error) {
	bill := models.Bill{
		BillNumber:      "BILL-" + time.Now().Format("20060102") + "-" + utils.GenerateRandomString(6),
		ClientName:      strings.TrimSpace(input.ClientName),
		ClientAddress:   input.ClientAddress,
		DateFrom:        utils.BeginningOfDay(time.Now().In(location())),
		DiscountPercent: input.DiscountPercent,
		Notes:           input.Notes,
	}
	if err := parseBillTimes(input.DateFrom, input.TimeFrom, input.TimeTo, &bill); err != nil {
		return nil, err
	}

	staffID, err := refUUID(input.StaffID, "staff")
	if err != nil {
		return nil, err
	}
	bill.StaffID = staffID

	client, err := resolveClient(tx, input.ClientID, input.ClientName, input.ClientPhone, input.ClientAddress)
	if err != nil {
		return nil, err
	}
	if client != nil {
		bill.ClientID = &client.ID
		bill.ClientPhone = client.Phone
		if bill.ClientName == "" {
			bill.ClientName = client.Name
		}
		if bill.ClientAddress == "" {
			bill.ClientAddress = client.Address
		}
	} else {
		bill.ClientPhone = utils.NormalizePhone(input.ClientPhone)
	}
	if bill.ClientName == "" {
		return nil, badRequest("clientName is required")
	}

	items, sessions, subtotal, err := buildItems(tx, input.Items)
	if err != nil {
		return nil, err
	}
	bill.Items = items
	bill.Subtotal = subtotal
	bill.Total = utils.ApplyDiscount(subtotal, bill.DiscountPercent)
	bill.PaymentMethod = defaultPaymentMethod(input.PaymentMethod, items)

	if err := tx.Create(&bill).Error; err != nil {
		return nil, err
	}
	if err := bookSessions(tx, &bill, sessions); err != nil {
		return nil, err
	}
	if err := applyClientStats(tx, bill.ClientID, 1, bill.Total, &bill.DateFrom); err != nil {
		return nil, err
	}
	return &bill, nil
}

// CreateBill records a sale. Service lines paid with a membership book a
// session against that purchase in the same transaction and are rejected
// with 409 when the membership is exhausted.
func CreateBill(c *gin.Context) {
	var input CreateBillInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	// Start transaction
	tx := config.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	bill, err := createBill(tx, input)
	if err != nil {
		tx.Rollback()
		respondError(c, err)
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create bill")
		return
	}

	log.Info().Str("bill", bill.BillNumber).Float64("total", bill.Total).Msg("bill created")
	c.JSON(http.StatusCreated, bill)
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// GetBills lists bills newest first. Filters: from, to (inclusive dates),
// client (id), phone, type (service|membership).
func GetBills(c *gin.Context) {
	q := preloadItems(config.DB).Order("date_from DESC, created_at DESC")

	if c.Query("from") != "" {
		from, ok := parseDateOr(c, "from", time.Time{})
		if !ok {
			return
		}
		q = q.Where("date_from >= ?", from)
	}
	if c.Query("to") != "" {
		to, ok := parseDateOr(c, "to", time.Time{})
		if !ok {
			return
		}
		q = q.Where("date_from < ?", to.AddDate(0, 0, 1))
	}
	if raw := c.Query("client"); raw != "" {
		id, err := uuid.Parse(accounting.IDOf(raw))
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid client ID format")
			return
		}
		q = q.Where("client_id = ?", id)
	}
	if phone := c.Query("phone"); phone != "" {
		q = q.Where("client_phone = ?", utils.NormalizePhone(phone))
	}
	if itemType := c.Query("type"); itemType != "" {
		if itemType != models.ItemTypeService && itemType != models.ItemTypeMembership {
			utils.RespondWithError(c, http.StatusBadRequest, "type must be service or membership")
			return
		}
		q = q.Where("id IN (?)", config.DB.Model(&models.BillItem{}).Select("bill_id").Where("item_type = ?", itemType))
	}

	var bills []models.Bill
	if err := q.Find(&bills).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve bills")
		return
	}

	c.JSON(http.StatusOK, bills)
}

func GetBill(c *gin.Context) {
	id, ok := parseID(c, "bill")
	if !ok {
		return
	}

	var bill models.Bill
	if err := preloadItems(config.DB).First(&bill, "id = ?", id).Error; err != nil {
		respondLookupError(c, err, "Bill")
		return
	}

	c.JSON(http.StatusOK, bill)
}

func updateBill(tx *gorm.DB, id uuid.UUID, input UpdateBillInput) (*models.Bill, error) {
	var bill models.Bill
	if err := preloadItems(tx).First(&bill, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &httpError{status: http.StatusNotFound, msg: "Bill not found"}
		}
		return nil, err
	}
	oldTotal := bill.Total

	if input.ClientName != nil {
		bill.ClientName = strings.TrimSpace(*input.ClientName)
	}
	if input.ClientPhone != nil {
		bill.ClientPhone = utils.NormalizePhone(*input.ClientPhone)
	}
	if input.ClientAddress != nil {
		bill.ClientAddress = *input.ClientAddress
	}
	if input.StaffID != nil {
		staffID, err := refUUID(*input.StaffID, "staff")
		if err != nil {
			return nil, err
		}
		bill.StaffID = staffID
	}

	date, from, to := "", "", ""
	if input.DateFrom != nil {
		date = *input.DateFrom
	}
	if bill.TimeFrom != nil {
		from = bill.TimeFrom.String()
	}
	if bill.TimeTo != nil {
		to = bill.TimeTo.String()
	}
	if input.TimeFrom != nil {
		from = *input.TimeFrom
	}
	if input.TimeTo != nil {
		to = *input.TimeTo
	}
	if err := parseBillTimes(date, from, to, &bill); err != nil {
		return nil, err
	}

	if input.DiscountPercent != nil {
		bill.DiscountPercent = *input.DiscountPercent
	}
	if input.PaymentMethod != nil {
		bill.PaymentMethod = *input.PaymentMethod
	}
	if input.Notes != nil {
		bill.Notes = *input.Notes
	}

	if input.Items != nil {
		// a purchase bill whose membership line is replaced would orphan its usages
		if bill.IsMembershipPurchase() {
			var logged int64
			if err := tx.Model(&models.ServiceUsage{}).Where("membership_purchase_bill_id = ?", bill.ID).Count(&logged).Error; err != nil {
				return nil, err
			}
			if logged > 0 {
				return nil, &httpError{status: http.StatusConflict, msg: "Membership purchase has logged sessions; delete them before changing its items"}
			}
		}

		// release sessions this bill booked, then rebuild
		if err := tx.Where("service_bill_id = ?", bill.ID).Delete(&models.ServiceUsage{}).Error; err != nil {
			return nil, err
		}
		if err := tx.Where("bill_id = ?", bill.ID).Delete(&models.BillItem{}).Error; err != nil {
			return nil, err
		}

		items, sessions, subtotal, err := buildItems(tx, *input.Items)
		if err != nil {
			return nil, err
		}
		for i := range items {
			items[i].BillID = bill.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return nil, err
		}
		bill.Items = items
		bill.Subtotal = subtotal
		if err := bookSessions(tx, &bill, sessions); err != nil {
			return nil, err
		}
	}
	bill.Total = utils.ApplyDiscount(bill.Subtotal, bill.DiscountPercent)

	if err := tx.Omit("Items").Save(&bill).Error; err != nil {
		return nil, err
	}
	if bill.Total != oldTotal {
		if err := applyClientStats(tx, bill.ClientID, 0, bill.Total-oldTotal, nil); err != nil {
			return nil, err
		}
	}
	return &bill, nil
}

// UpdateBill edits a bill in one transaction.
func UpdateBill(c *gin.Context) {
	id, ok := parseID(c, "bill")
	if !ok {
		return
	}

	var input UpdateBillInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	tx := config.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	bill, err := updateBill(tx, id, input)
	if err != nil {
		tx.Rollback()
		respondError(c, err)
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update bill")
		return
	}

	c.JSON(http.StatusOK, bill)
}

// DeleteBill removes a bill, its items and every session row tied to it: the
// usages logged against it when it is a membership purchase, and the usage it
// booked when it is a membership-paid service bill.
func DeleteBill(c *gin.Context) {
	id, ok := parseID(c, "bill")
	if !ok {
		return
	}

	tx := config.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var bill models.Bill
	if err := tx.First(&bill, "id = ?", id).Error; err != nil {
		tx.Rollback()
		respondLookupError(c, err, "Bill")
		return
	}

	if err := tx.Where("membership_purchase_bill_id = ? OR service_bill_id = ?", bill.ID, bill.ID).
		Delete(&models.ServiceUsage{}).Error; err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete session usage")
		return
	}

	if err := tx.Where("bill_id = ?", bill.ID).Delete(&models.BillItem{}).Error; err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete bill items")
		return
	}

	if err := tx.Delete(&bill).Error; err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete bill")
		return
	}

	// Update client stats (decrement)
	if err := applyClientStats(tx, bill.ClientID, -1, -bill.Total, nil); err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update client stats")
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete bill")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Bill deleted successfully"})
}
