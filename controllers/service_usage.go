package controllers

import (
	"errors"
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

// LogUsageInput records one consumed session against a membership purchase.
// Older clients send the purchase as an embedded object and use the
// serviceCategory/serviceLabel names.
type LogUsageInput struct {
	MembershipPurchaseBillID accounting.Ref `json:"membershipPurchaseBillId" binding:"required"`
	ClientID                 accounting.Ref `json:"clientId"`
	MembershipPlanID         accounting.Ref `json:"membershipPlanId"`
	Category                 string         `json:"category"`
	ServiceCategory          string         `json:"serviceCategory"`
	Label                    string         `json:"label"`
	ServiceLabel             string         `json:"serviceLabel"`
	Date                     string         `json:"date"`
	FromTime                 string         `json:"fromTime"`
	ToTime                   string         `json:"toTime"`
	Notes                    string         `json:"notes"`
}

type UpdateUsageInput struct {
	Category *string `json:"category"`
	Label    *string `json:"label"`
	Date     *string `json:"date"`
	FromTime *string `json:"fromTime"`
	ToTime   *string `json:"toTime"`
	Notes    *string `json:"notes"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// categoryForLabel finds the category of the slot carrying label.
func categoryForLabel(slots []accounting.Slot, label string) string {
	if i := accounting.SlotIndex(slots, label); i >= 0 {
		return accounting.LookupCategory(slots[i].Type).Name
	}
	return ""
}

func logUsage(tx *gorm.DB, input LogUsageInput) (*models.ServiceUsage, error) {
	purchaseID, err := refUUID(input.MembershipPurchaseBillID, "membership purchase")
	if err != nil {
		return nil, err
	}
	purchase, err := loadPurchase(tx, *purchaseID)
	if err != nil {
		return nil, err
	}

	label := firstNonEmpty(input.Label, input.ServiceLabel)
	category := firstNonEmpty(input.Category, input.ServiceCategory)
	if category == "" {
		category = categoryForLabel(purchase.Slots, label)
	}
	if category == "" {
		return nil, badRequest("category is required")
	}

	label, err = purchase.Reserve(category, label)
	if err != nil {
		return nil, err
	}

	usage := models.ServiceUsage{
		MembershipPurchaseBillID: *purchaseID,
		ClientID:                 copyID(purchase.Bill.ClientID),
		MembershipPlanID:         copyID(purchase.Bill.MembershipItem().MembershipPlanID),
		ServiceCategory:          accounting.LookupCategory(category).Name,
		ServiceLabel:             label,
		Date:                     utils.BeginningOfDay(time.Now().In(location())),
		Notes:                    input.Notes,
	}
	if input.ClientID != "" {
		if usage.ClientID, err = refUUID(input.ClientID, "client"); err != nil {
			return nil, err
		}
	}
	if input.MembershipPlanID != "" {
		if usage.MembershipPlanID, err = refUUID(input.MembershipPlanID, "membership plan"); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(input.Date) != "" {
		d, err := utils.ParseDate(input.Date, location())
		if err != nil {
			return nil, badRequest("Invalid date")
		}
		usage.Date = d
	}
	if usage.FromTime, err = utils.ParseClock(input.FromTime); err != nil {
		return nil, badRequest("Invalid fromTime")
	}
	if usage.ToTime, err = utils.ParseClock(input.ToTime); err != nil {
		return nil, badRequest("Invalid toTime")
	}

	if err := tx.Create(&usage).Error; err != nil {
		return nil, err
	}
	return &usage, nil
}

// LogServiceUsage books a session against a membership purchase. It answers
// 409 when the purchase has no sessions left or the category is full.
func LogServiceUsage(c *gin.Context) {
	var input LogUsageInput
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

	usage, err := logUsage(tx, input)
	if err != nil {
		tx.Rollback()
		respondError(c, err)
		return
	}
	if err := tx.Commit().Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to log session")
		return
	}
	metrics.IncSessionLogged(usage.ServiceCategory, "manual")

	purchase, err := loadPurchase(config.DB, usage.MembershipPurchaseBillID)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Info().
		Str("purchase", usage.MembershipPurchaseBillID.String()).
		Str("label", usage.ServiceLabel).
		Int("remaining", purchase.Entitlement.Remaining).
		Msg("session logged")

	c.JSON(http.StatusCreated, gin.H{
		"usage":       usage,
		"entitlement": purchase.Entitlement,
		"checked":     purchase.Checked,
	})
}

// GetServiceUsages lists usages in insertion order, filtered by
// ?purchase= and ?client=.
func GetServiceUsages(c *gin.Context) {
	q := config.DB.Order("created_at ASC")
	if raw := c.Query("purchase"); raw != "" {
		id, err := uuid.Parse(accounting.IDOf(raw))
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid purchase ID format")
			return
		}
		q = q.Where("membership_purchase_bill_id = ?", id)
	}
	if raw := c.Query("client"); raw != "" {
		id, err := uuid.Parse(accounting.IDOf(raw))
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid client ID format")
			return
		}
		q = q.Where("client_id = ?", id)
	}

	var usages []models.ServiceUsage
	if err := q.Find(&usages).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve session usage")
		return
	}
	accounting.SortUsages(usages)
	c.JSON(http.StatusOK, usages)
}

func updateUsage(tx *gorm.DB, id uuid.UUID, input UpdateUsageInput) (*models.ServiceUsage, error) {
	var usage models.ServiceUsage
	if err := tx.First(&usage, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &httpError{status: http.StatusNotFound, msg: "Session usage not found"}
		}
		return nil, err
	}

	if input.Category != nil || input.Label != nil {
		purchase, err := loadPurchase(tx, usage.MembershipPurchaseBillID)
		if err != nil {
			return nil, err
		}
		// re-derive the balance without this row before moving it
		others := make([]models.ServiceUsage, 0, len(purchase.Usages))
		for _, u := range purchase.Usages {
			if u.ID != usage.ID {
				others = append(others, u)
			}
		}
		without, err := accounting.Summarize(purchase.Bill, planOf(purchase), others)
		if err != nil {
			return nil, err
		}

		category, label := usage.ServiceCategory, usage.ServiceLabel
		if input.Category != nil {
			category = *input.Category
			if input.Label == nil {
				label = ""
			}
		}
		if input.Label != nil {
			label = strings.TrimSpace(*input.Label)
		}
		if label, err = without.Reserve(category, label); err != nil {
			return nil, err
		}
		usage.ServiceCategory = accounting.LookupCategory(category).Name
		usage.ServiceLabel = label
	}

	if input.Date != nil {
		d, err := utils.ParseDate(*input.Date, location())
		if err != nil {
			return nil, badRequest("Invalid date")
		}
		usage.Date = d
	}
	var err error
	if input.FromTime != nil {
		if usage.FromTime, err = utils.ParseClock(*input.FromTime); err != nil {
			return nil, badRequest("Invalid fromTime")
		}
	}
	if input.ToTime != nil {
		if usage.ToTime, err = utils.ParseClock(*input.ToTime); err != nil {
			return nil, badRequest("Invalid toTime")
		}
	}
	if input.Notes != nil {
		usage.Notes = *input.Notes
	}

	if err := tx.Save(&usage).Error; err != nil {
		return nil, err
	}
	return &usage, nil
}

func planOf(p *accounting.Purchase) []models.MembershipPlan {
	if p.Plan == nil {
		return nil
	}
	return []models.MembershipPlan{*p.Plan}
}

func UpdateServiceUsage(c *gin.Context) {
	id, ok := parseID(c, "session usage")
	if !ok {
		return
	}

	var input UpdateUsageInput
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

	usage, err := updateUsage(tx, id, input)
	if err != nil {
		tx.Rollback()
		respondError(c, err)
		return
	}
	if err := tx.Commit().Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update session usage")
		return
	}

	c.JSON(http.StatusOK, usage)
}

// DeleteServiceUsage frees the slot the row occupied. Sessions booked by a
// membership-paid service bill belong to that bill and are released by
// editing or deleting the bill.
func DeleteServiceUsage(c *gin.Context) {
	id, ok := parseID(c, "session usage")
	if !ok {
		return
	}

	var usage models.ServiceUsage
	if err := config.DB.First(&usage, "id = ?", id).Error; err != nil {
		respondLookupError(c, err, "Session usage")
		return
	}
	if usage.ServiceBillID != nil {
		utils.RespondWithError(c, http.StatusConflict,
			"Session was booked by bill "+usage.ServiceBillID.String()+"; edit or delete the bill instead")
		return
	}

	if err := config.DB.Delete(&usage).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete session usage")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session usage deleted successfully"})
}
