package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"spa-backoffice/accounting"
	"spa-backoffice/metrics"
	"spa-backoffice/models"
	"spa-backoffice/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// parseID reads the :id path parameter, responding 400 when it is not a uuid.
func parseID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+what+" ID format")
		return uuid.Nil, false
	}
	return id, true
}

// respondLookupError maps a failed First() to 404 or 500.
func respondLookupError(c *gin.Context, err error, what string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondWithError(c, http.StatusNotFound, what+" not found")
		return
	}
	utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
}

// respondAccountingError maps session gating failures to 409 and malformed
// requests to 400.
func respondAccountingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, accounting.ErrNoRemainingSessions):
		metrics.IncOverConsumption("exhausted")
		utils.RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, accounting.ErrNoFreeSlot):
		metrics.IncOverConsumption("no_slot")
		utils.RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, accounting.ErrSlotTaken):
		utils.RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, accounting.ErrNotMembershipPurchase), errors.Is(err, accounting.ErrLabelCategory):
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.RespondWithError(c, http.StatusNotFound, "Membership purchase not found")
	default:
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
	}
}

// httpError carries a status out of a transactional helper.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(msg string) error { return &httpError{status: http.StatusBadRequest, msg: msg} }

// respondError translates errors returned from transactional helpers.
func respondError(c *gin.Context, err error) {
	var he *httpError
	if errors.As(err, &he) {
		utils.RespondWithError(c, he.status, he.msg)
		return
	}
	respondAccountingError(c, err)
}

// loadPlans returns the live catalog. Soft-deleted plans are left out so
// purchases of them report an unknown plan.
func loadPlans(db *gorm.DB) ([]models.MembershipPlan, error) {
	var plans []models.MembershipPlan
	err := db.Find(&plans).Error
	return plans, err
}

// loadPurchase loads a membership-purchase bill and derives its view.
func loadPurchase(db *gorm.DB, id uuid.UUID) (*accounting.Purchase, error) {
	var bill models.Bill
	if err := db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&bill, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if !bill.IsMembershipPurchase() {
		return nil, accounting.ErrNotMembershipPurchase
	}

	var plans []models.MembershipPlan
	if item := bill.MembershipItem(); item.MembershipPlanID != nil {
		if err := db.Where("id = ?", *item.MembershipPlanID).Find(&plans).Error; err != nil {
			return nil, err
		}
	}

	var usages []models.ServiceUsage
	if err := db.Where("membership_purchase_bill_id = ?", bill.ID).
		Order("created_at ASC").Find(&usages).Error; err != nil {
		return nil, err
	}
	return accounting.Summarize(&bill, plans, usages)
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	v := *id
	return &v
}

func userID(c *gin.Context) string {
	v, _ := c.Get("userId")
	s, _ := v.(string)
	return s
}

func location() *time.Location {
	return time.Local
}

// parseDateOr reads an optional date query parameter.
func parseDateOr(c *gin.Context, key string, fallback time.Time) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, true
	}
	t, err := utils.ParseDate(raw, location())
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+key+" date")
		return time.Time{}, false
	}
	return t, true
}
