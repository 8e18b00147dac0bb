// controllers/service.go
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

// CreateServiceInput defines the expected JSON structure for creating a service
type CreateServiceInput struct {
	Title           string  `json:"title" binding:"required"`
	Description     string  `json:"description"`
	Price           float64 `json:"price" binding:"min=0"`
	DurationMinutes int     `json:"durationMinutes" binding:"min=0"`
	Category        string  `json:"category"`
}

// UpdateServiceInput defines the expected JSON structure for updating a service
type UpdateServiceInput struct {
	Title           *string  `json:"title"`
	Description     *string  `json:"description"`
	Price           *float64 `json:"price" binding:"omitempty,min=0"`
	DurationMinutes *int     `json:"durationMinutes" binding:"omitempty,min=0"`
	Category        *string  `json:"category"`
	IsActive        *bool    `json:"isActive"`
}

// serviceCategory stores the display name of a known category ("spa" -> "SPA").
func serviceCategory(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "SPA"
	}
	return accounting.LookupCategory(raw).Name
}

func CreateService(c *gin.Context) {
	var input CreateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	service := models.Service{
		Title:           strings.TrimSpace(input.Title),
		Description:     input.Description,
		Price:           utils.RoundMoney(input.Price),
		DurationMinutes: input.DurationMinutes,
		Category:        serviceCategory(input.Category),
		IsActive:        true,
	}

	if err := config.DB.Create(&service).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create service")
		return
	}

	c.JSON(http.StatusCreated, service)
}

func GetServices(c *gin.Context) {
	var services []models.Service
	q := config.DB.Order("title ASC")
	if c.Query("active") == "true" {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&services).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve services")
		return
	}

	c.JSON(http.StatusOK, services)
}

func GetService(c *gin.Context) {
	id, ok := parseID(c, "service")
	if !ok {
		return
	}

	var service models.Service
	if err := config.DB.First(&service, "id = ?", id).Error; err != nil {
		respondLookupError(c, err, "Service")
		return
	}

	c.JSON(http.StatusOK, service)
}

func UpdateService(c *gin.Context) {
	id, ok := parseID(c, "service")
	if !ok {
		return
	}

	var input UpdateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var service models.Service
	if err := config.DB.First(&service, "id = ?", id).Error; err != nil {
		respondLookupError(c, err, "Service")
		return
	}

	// Update fields if provided
	if input.Title != nil {
		service.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		service.Description = *input.Description
	}
	if input.Price != nil {
		service.Price = utils.RoundMoney(*input.Price)
	}
	if input.DurationMinutes != nil {
		service.DurationMinutes = *input.DurationMinutes
	}
	if input.Category != nil {
		service.Category = serviceCategory(*input.Category)
	}
	if input.IsActive != nil {
		service.IsActive = *input.IsActive
	}

	if err := config.DB.Save(&service).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update service")
		return
	}

	c.JSON(http.StatusOK, service)
}

// DeleteService soft deletes a service
func DeleteService(c *gin.Context) {
	id, ok := parseID(c, "service")
	if !ok {
		return
	}

	result := config.DB.Where("id = ?", id).Delete(&models.Service{})
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete service")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Service not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Service deleted successfully"})
}
