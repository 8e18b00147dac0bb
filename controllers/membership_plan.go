package controllers

import (
	"net/http"
	"strings"

	"spa-backoffice/accounting"
	"spa-backoffice/config"
	"spa-backoffice/models"
	"spa-backoffice/utils"

	"github.com/gin-gonic/gin"
)

// Plans accept the per-category counts either as a map or as the flat
// spaSessions/jacuzzi/hamam fields the old catalog form posted.
type MembershipPlanInput struct {
	Name              string            `json:"name" binding:"required"`
	Price             float64           `json:"price" binding:"min=0"`
	Timing            string            `json:"timing"`
	TherapyDetails    string            `json:"therapyDetails"`
	SessionAllotments models.Allotments `json:"sessionAllotments"`
	SpaSessions       *int              `json:"spaSessions"`
	Jacuzzi           *int              `json:"jacuzzi"`
	Hamam             *int              `json:"hamam"`
}

type UpdateMembershipPlanInput struct {
	Name              *string           `json:"name"`
	Price             *float64          `json:"price" binding:"omitempty,min=0"`
	Timing            *string           `json:"timing"`
	TherapyDetails    *string           `json:"therapyDetails"`
	SessionAllotments models.Allotments `json:"sessionAllotments"`
	SpaSessions       *int              `json:"spaSessions"`
	Jacuzzi           *int              `json:"jacuzzi"`
	Hamam             *int              `json:"hamam"`
	IsActive          *bool             `json:"isActive"`
}

// planAllotments merges both input shapes into display-named categories.
func planAllotments(base models.Allotments, spa, jacuzzi, hamam *int) (models.Allotments, bool) {
	out := models.Allotments{}
	for key, n := range accounting.Normalize(base) {
		out[accounting.LookupCategory(key).Name] = n
	}
	flat := []struct {
		name string
		n    *int
	}{{"SPA", spa}, {"Jacuzzi", jacuzzi}, {"Hamam", hamam}}
	for _, f := range flat {
		if f.n == nil {
			continue
		}
		if *f.n < 0 {
			return nil, false
		}
		out[f.name] = *f.n
	}
	for _, n := range base {
		if n < 0 {
			return nil, false
		}
	}
	return out, true
}

func CreateMembershipPlan(c *gin.Context) {
	var input MembershipPlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	allotments, ok := planAllotments(input.SessionAllotments, input.SpaSessions, input.Jacuzzi, input.Hamam)
	if !ok {
		utils.RespondWithError(c, http.StatusBadRequest, "Session counts must not be negative")
		return
	}

	plan := models.MembershipPlan{
		Name:              strings.TrimSpace(input.Name),
		Price:             utils.RoundMoney(input.Price),
		Timing:            input.Timing,
		TherapyDetails:    input.TherapyDetails,
		SessionAllotments: allotments,
		IsActive:          true,
	}
	if err := config.DB.Create(&plan).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create membership plan")
		return
	}

	c.JSON(http.StatusCreated, plan)
}

func GetMembershipPlans(c *gin.Context) {
	plans, err := loadPlans(config.DB.Order("name ASC"))
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve membership plans")
		return
	}
	c.JSON(http.StatusOK, plans)
}

func GetMembershipPlan(c *gin.Context) {
	id, ok := parseID(c, "membership plan")
	if !ok {
		return
	}

	var plan models.MembershipPlan
	if err := config.DB.First(&plan, "id = ?", id).Error; err != nil {
		respondLookupError(c, err, "Membership plan")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":  plan,
		"slots": accounting.SlotList(plan.SessionAllotments),
	})
}

// UpdateMembershipPlan edits the template. Existing purchases keep the
// allotments copied onto their bill item.
func UpdateMembershipPlan(c *gin.Context) {
	id, ok := parseID(c, "membership plan")
	if !ok {
		return
	}

	var input UpdateMembershipPlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var plan models.MembershipPlan
	if err := config.DB.First(&plan, "id = ?", id).Error; err != nil {
		respondLookupError(c, err, "Membership plan")
		return
	}

	if input.Name != nil {
		plan.Name = strings.TrimSpace(*input.Name)
	}
	if input.Price != nil {
		plan.Price = utils.RoundMoney(*input.Price)
	}
	if input.Timing != nil {
		plan.Timing = *input.Timing
	}
	if input.TherapyDetails != nil {
		plan.TherapyDetails = *input.TherapyDetails
	}
	if input.SessionAllotments != nil || input.SpaSessions != nil || input.Jacuzzi != nil || input.Hamam != nil {
		base := input.SessionAllotments
		if base == nil {
			base = plan.SessionAllotments
		}
		allotments, ok := planAllotments(base, input.SpaSessions, input.Jacuzzi, input.Hamam)
		if !ok {
			utils.RespondWithError(c, http.StatusBadRequest, "Session counts must not be negative")
			return
		}
		plan.SessionAllotments = allotments
	}
	if input.IsActive != nil {
		plan.IsActive = *input.IsActive
	}

	if err := config.DB.Save(&plan).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update membership plan")
		return
	}

	c.JSON(http.StatusOK, plan)
}

// DeleteMembershipPlan soft deletes a plan
func DeleteMembershipPlan(c *gin.Context) {
	id, ok := parseID(c, "membership plan")
	if !ok {
		return
	}

	result := config.DB.Where("id = ?", id).Delete(&models.MembershipPlan{})
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete membership plan")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Membership plan not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Membership plan deleted successfully"})
}
