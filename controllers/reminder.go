package controllers

import (
	"net/http"
	"strconv"

	"spa-backoffice/accounting"
	"spa-backoffice/config"
	"spa-backoffice/models"
	"spa-backoffice/services"
	"spa-backoffice/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultNotificationLimit = 100

// GetNotificationLogs lists reminder attempts, newest first. Filters:
// purchase, client, status (sent|failed), limit.
func GetNotificationLogs(c *gin.Context) {
	q := config.DB.Order("sent_at DESC")

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
	switch status := c.Query("status"); status {
	case "":
	case services.StatusSent, services.StatusFailed:
		q = q.Where("status = ?", status)
	default:
		utils.RespondWithError(c, http.StatusBadRequest, "status must be sent or failed")
		return
	}

	limit := defaultNotificationLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	var logs []models.NotificationLog
	if err := q.Limit(limit).Find(&logs).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve notifications")
		return
	}

	c.JSON(http.StatusOK, logs)
}

// RunReminders triggers a reminder pass outside the schedule. A nil
// reminder means delivery is not configured.
func RunReminders(reminder *services.SessionReminder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if reminder == nil {
			utils.RespondWithError(c, http.StatusServiceUnavailable, "Reminders are not configured")
			return
		}

		res, err := reminder.Run(c.Request.Context())
		if err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to run reminders")
			return
		}

		c.JSON(http.StatusOK, res)
	}
}
