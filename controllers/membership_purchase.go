package controllers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spa-backoffice/accounting"
	"spa-backoffice/config"
	"spa-backoffice/models"
	"spa-backoffice/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PurchaseSummary is one row of the membership purchase list.
type PurchaseSummary struct {
	ID          uuid.UUID              `json:"id"`
	BillNumber  string                 `json:"billNumber"`
	ClientID    *uuid.UUID             `json:"clientId"`
	ClientName  string                 `json:"clientName"`
	ClientPhone string                 `json:"clientPhone"`
	DateFrom    time.Time              `json:"dateFrom"`
	PlanID      *uuid.UUID             `json:"membershipPlanId"`
	PlanName    string                 `json:"membershipName"`
	Allotments  models.Allotments      `json:"allotments"`
	Entitlement accounting.Entitlement `json:"entitlement"`
}

type purchaseView struct {
	*accounting.Purchase
	Message      string `json:"message,omitempty"`
	RefreshAfter int    `json:"refreshAfter"`
}

func refreshSeconds() int {
	return int(config.App.RefreshInterval / time.Second)
}

// GetMembershipPurchases lists purchases with their balances. Filters:
// client (id), phone, available=true (only purchases with sessions left,
// the ones offered as a payment source).
func GetMembershipPurchases(c *gin.Context) {
	q := preloadItems(config.DB).
		Where("id IN (?)", config.DB.Model(&models.BillItem{}).Select("bill_id").Where("item_type = ?", models.ItemTypeMembership)).
		Order("date_from DESC, created_at DESC")

	if raw := c.Query("client"); raw != "" {
		id, err := uuid.Parse(accounting.IDOf(raw))
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid client ID format")
			return
		}
		q = q.Where("client_id = ?", id)
	}
	if phone := strings.TrimSpace(c.Query("phone")); phone != "" {
		q = q.Where("client_phone = ?", utils.NormalizePhone(phone))
	}
	availableOnly := c.Query("available") == "true"

	var bills []models.Bill
	if err := q.Find(&bills).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve membership purchases")
		return
	}

	plans, err := loadPlans(config.DB)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve membership plans")
		return
	}

	ids := make([]uuid.UUID, len(bills))
	for i := range bills {
		ids[i] = bills[i].ID
	}
	var usages []models.ServiceUsage
	if len(ids) > 0 {
		if err := config.DB.Where("membership_purchase_bill_id IN ?", ids).Find(&usages).Error; err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve session usage")
			return
		}
	}

	out := []PurchaseSummary{}
	for i := range bills {
		p, err := accounting.Summarize(&bills[i], plans, usages)
		if err != nil {
			continue
		}
		if availableOnly && p.Entitlement.Remaining <= 0 {
			continue
		}
		item := bills[i].MembershipItem()
		out = append(out, PurchaseSummary{
			ID:          bills[i].ID,
			BillNumber:  bills[i].BillNumber,
			ClientID:    bills[i].ClientID,
			ClientName:  bills[i].ClientName,
			ClientPhone: bills[i].ClientPhone,
			DateFrom:    bills[i].DateFrom,
			PlanID:      item.MembershipPlanID,
			PlanName:    item.Name,
			Allotments:  p.Allotments,
			Entitlement: p.Entitlement,
		})
	}

	c.Header("X-Refresh-After", strconv.Itoa(refreshSeconds()))
	c.JSON(http.StatusOK, out)
}

func etagFor(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// GetMembershipPurchase returns everything the purchase page shows in one
// response: bill, plan, slots, occupancy, usages and balance. Pollers send
// If-None-Match and get 304 while nothing changed.
func GetMembershipPurchase(c *gin.Context) {
	id, ok := parseID(c, "membership purchase")
	if !ok {
		return
	}

	purchase, err := loadPurchase(config.DB, id)
	if err != nil {
		respondAccountingError(c, err)
		return
	}

	view := purchaseView{Purchase: purchase, RefreshAfter: refreshSeconds()}
	if purchase.EmptyPlan {
		view.Message = "No services in this plan"
	}
	body, err := json.Marshal(view)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to encode purchase")
		return
	}

	etag := etagFor(body)
	c.Header("ETag", etag)
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Refresh-After", strconv.Itoa(view.RefreshAfter))
	if match := c.GetHeader("If-None-Match"); match != "" && etagMatches(match, etag) {
		c.AbortWithStatus(http.StatusNotModified)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
