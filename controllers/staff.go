package controllers

import (
	"net/http"
	"strings"

	"spa-backoffice/config"
	"spa-backoffice/models"
	"spa-backoffice/utils"

	"github.com/gin-gonic/gin"
)

type StaffInput struct {
	Name   string `json:"name" binding:"required"`
	Role   string `json:"role"`
	Phone  string `json:"phone"`
	Email  string `json:"email" binding:"omitempty,email"`
	Active *bool  `json:"active"`
}

type UpdateStaffInput struct {
	Name   *string `json:"name"`
	Role   *string `json:"role"`
	Phone  *string `json:"phone"`
	Email  *string `json:"email"`
	Active *bool   `json:"active"`
}

func CreateStaff(c *gin.Context) {
	var input StaffInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.Phone != "" && !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
		return
	}

	staff := models.Staff{
		Name:   strings.TrimSpace(input.Name),
		Role:   input.Role,
		Phone:  utils.NormalizePhone(input.Phone),
		Email:  input.Email,
		Active: input.Active == nil || *input.Active,
	}
	if err := config.DB.Create(&staff).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create staff member")
		return
	}

	c.JSON(http.StatusCreated, staff)
}

func GetStaff(c *gin.Context) {
	q := config.DB.Order("name ASC")
	if c.Query("active") == "true" {
		q = q.Where("active = ?", true)
	}

	var staff []models.Staff
	if err := q.Find(&staff).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve staff")
		return
	}

	c.JSON(http.StatusOK, staff)
}

func UpdateStaff(c *gin.Context) {
	id, ok := parseID(c, "staff")
	if !ok {
		return
	}

	var input UpdateStaffInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var staff models.Staff
	if err := config.DB.First(&staff, "id = ?", id).Error; err != nil {
		respondLookupError(c, err, "Staff member")
		return
	}

	if input.Name != nil {
		staff.Name = strings.TrimSpace(*input.Name)
	}
	if input.Role != nil {
		staff.Role = *input.Role
	}
	if input.Phone != nil {
		if *input.Phone != "" && !utils.ValidatePhone(*input.Phone) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
			return
		}
		staff.Phone = utils.NormalizePhone(*input.Phone)
	}
	if input.Email != nil {
		staff.Email = *input.Email
	}
	if input.Active != nil {
		staff.Active = *input.Active
	}

	if err := config.DB.Save(&staff).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update staff member")
		return
	}

	c.JSON(http.StatusOK, staff)
}

func DeleteStaff(c *gin.Context) {
	id, ok := parseID(c, "staff")
	if !ok {
		return
	}

	result := config.DB.Where("id = ?", id).Delete(&models.Staff{})
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete staff member")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Staff member not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Staff member deleted successfully"})
}
