package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"spa-backoffice/config"
	"spa-backoffice/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type sentMessage struct {
	channel, to, body string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[string]bool
}

func (f *fakeSender) Send(_ context.Context, channel, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[to] {
		return "", errors.New("undeliverable")
	}
	f.sent = append(f.sent, sentMessage{channel, to, body})
	return fmt.Sprintf("SM%d", len(f.sent)), nil
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := config.Migrate(db); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// purchase stores a membership purchase bill with used sessions logged.
func purchase(t *testing.T, db *gorm.DB, number, name, phone string, allotments models.Allotments, used int) models.Bill {
	t.Helper()
	bill := models.Bill{
		BillNumber:  number,
		ClientName:  name,
		ClientPhone: phone,
		DateFrom:    time.Date(2024, time.May, 1, 0, 0, 0, 0, time.Local),
		Items: []models.BillItem{{
			ItemType:          models.ItemTypeMembership,
			Name:              "Gold",
			Quantity:          1,
			SessionAllotments: allotments,
		}},
	}
	if err := db.Create(&bill).Error; err != nil {
		t.Fatal(err)
	}
	for i := 0; i < used; i++ {
		usage := models.ServiceUsage{
			MembershipPurchaseBillID: bill.ID,
			ServiceCategory:          "SPA",
			ServiceLabel:             fmt.Sprintf("SPA Session %d", i+1),
			Date:                     bill.DateFrom,
		}
		if err := db.Create(&usage).Error; err != nil {
			t.Fatal(err)
		}
	}
	return bill
}

func TestChannelFor(t *testing.T) {
	tests := []struct {
		phone string
		want  string
	}{
		{"+919876543210", ChannelWhatsApp},
		{"+91 98765 43210", ChannelWhatsApp},
		{"9876543210", ChannelSMS},
		{"+12", ChannelSMS},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			if got := ChannelFor(tt.phone); got != tt.want {
				t.Errorf("ChannelFor(%q) = %q, want %q", tt.phone, got, tt.want)
			}
		})
	}
}

func TestSessionReminderRun(t *testing.T) {
	db := openDB(t)
	purchase(t, db, "BILL-1", "Asha", "+919876543210", models.Allotments{"SPA": 3}, 1)
	purchase(t, db, "BILL-2", "Ravi", "9876543211", models.Allotments{"SPA": 1}, 0)
	purchase(t, db, "BILL-3", "Used Up", "+919876543212", models.Allotments{"SPA": 1}, 1)
	purchase(t, db, "BILL-4", "No Phone", "", models.Allotments{"SPA": 2}, 0)

	sender := &fakeSender{}
	now := time.Date(2024, time.May, 10, 10, 0, 0, 0, time.Local)
	r := NewSessionReminder(db, sender, 7*24*time.Hour)
	r.now = func() time.Time { return now }

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res != (RunResult{Sent: 2}) {
		t.Fatalf("first run = %+v, want 2 sent", res)
	}

	byPhone := map[string]sentMessage{}
	for _, m := range sender.sent {
		byPhone[m.to] = m
	}
	if m := byPhone["+919876543210"]; m.channel != ChannelWhatsApp || !strings.Contains(m.body, "2 sessions left") || !strings.Contains(m.body, "Asha") {
		t.Errorf("whatsapp message = %+v", m)
	}
	if m := byPhone["9876543211"]; m.channel != ChannelSMS || !strings.Contains(m.body, "1 session left") {
		t.Errorf("sms message = %+v", m)
	}

	var logs int64
	db.Model(&models.NotificationLog{}).Where("status = ?", StatusSent).Count(&logs)
	if logs != 2 {
		t.Errorf("sent logs = %d, want 2", logs)
	}

	t.Run("reminded purchases wait for the interval", func(t *testing.T) {
		now = now.Add(24 * time.Hour)
		res, err := r.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if res != (RunResult{Skipped: 2}) {
			t.Errorf("second run = %+v, want 2 skipped", res)
		}
	})

	t.Run("interval elapsed", func(t *testing.T) {
		now = now.Add(7 * 24 * time.Hour)
		res, err := r.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if res.Sent != 2 {
			t.Errorf("third run = %+v, want 2 sent", res)
		}
	})
}

func TestSessionReminderLogsFailures(t *testing.T) {
	db := openDB(t)
	bill := purchase(t, db, "BILL-1", "Asha", "+919876543210", models.Allotments{"SPA": 2}, 0)

	sender := &fakeSender{fail: map[string]bool{"+919876543210": true}}
	r := NewSessionReminder(db, sender, 7*24*time.Hour)

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res != (RunResult{Failed: 1}) {
		t.Fatalf("run = %+v, want 1 failed", res)
	}

	var entry models.NotificationLog
	if err := db.First(&entry, "membership_purchase_bill_id = ?", bill.ID).Error; err != nil {
		t.Fatal(err)
	}
	if entry.Status != StatusFailed || entry.ErrorMessage != "undeliverable" || entry.Channel != ChannelWhatsApp {
		t.Errorf("log = %+v", entry)
	}

	// failed attempts do not hold back the next run
	sender.fail = nil
	res, err = r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Sent != 1 {
		t.Errorf("retry = %+v, want 1 sent", res)
	}
}

func TestSessionReminderStart(t *testing.T) {
	r := NewSessionReminder(nil, &fakeSender{}, time.Hour)
	if _, err := r.Start("not a schedule"); err == nil {
		t.Error("expected an error for a bad schedule")
	}
	c, err := r.Start("0 10 * * *")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Entries()) != 1 {
		t.Errorf("entries = %d, want 1", len(c.Entries()))
	}
	<-c.Stop().Done()
}

func TestNewTwilioSenderNeedsCredentials(t *testing.T) {
	if _, err := NewTwilioSender(config.Defaults()); !errors.Is(err, ErrTwilioNotConfigured) {
		t.Errorf("err = %v, want ErrTwilioNotConfigured", err)
	}
	cfg := config.Defaults()
	cfg.TwilioAccountSID, cfg.TwilioAuthToken = "AC123", "token"
	if _, err := NewTwilioSender(cfg); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}
