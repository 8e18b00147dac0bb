package controllers

import (
	"net/http"
	"testing"
	"time"

	"spa-backoffice/config"
	"spa-backoffice/models"

	"github.com/google/uuid"
)

func TestGetNotificationLogs(t *testing.T) {
	setupDB(t)
	r := newTestRouter()
	purchase := uuid.New()
	now := time.Now()
	for i, status := range []string{"sent", "failed", "sent"} {
		entry := models.NotificationLog{
			MembershipPurchaseBillID: purchase,
			Phone:                    "+919876543210",
			Message:                  "reminder",
			Status:                   status,
			Channel:                  "whatsapp",
			SentAt:                   now.Add(time.Duration(i) * time.Minute),
		}
		if i == 2 {
			entry.MembershipPurchaseBillID = uuid.New()
		}
		if err := config.DB.Create(&entry).Error; err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		query string
		code  int
		want  int
	}{
		{"", http.StatusOK, 3},
		{"?status=failed", http.StatusOK, 1},
		{"?purchase=" + purchase.String(), http.StatusOK, 2},
		{"?limit=1", http.StatusOK, 1},
		{"?status=queued", http.StatusBadRequest, 0},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?client=nope", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := doRequest(t, r, http.MethodGet, "/notifications"+tt.query, nil)
			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d", w.Code, tt.code)
			}
			if tt.code != http.StatusOK {
				return
			}
			var logs []models.NotificationLog
			decode(t, w, &logs)
			if len(logs) != tt.want {
				t.Errorf("got %d logs, want %d", len(logs), tt.want)
			}
		})
	}
}

func TestRunRemindersUnconfigured(t *testing.T) {
	setupDB(t)
	w := doRequest(t, newTestRouter(), http.MethodPost, "/reminders/run", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
