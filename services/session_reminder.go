package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"spa-backoffice/accounting"
	"spa-backoffice/config"
	"spa-backoffice/metrics"
	"spa-backoffice/models"
	"spa-backoffice/utils"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"
)

const (
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"

	StatusSent   = "sent"
	StatusFailed = "failed"
)

var ErrTwilioNotConfigured = errors.New("twilio credentials are not configured")

// MessageSender delivers one text message and returns the provider id.
type MessageSender interface {
	Send(ctx context.Context, channel, to, body string) (string, error)
}

type TwilioSender struct {
	client         *twilio.RestClient
	phoneNumber    string
	whatsAppNumber string
}

func NewTwilioSender(cfg config.Config) (*TwilioSender, error) {
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
		return nil, ErrTwilioNotConfigured
	}
	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		}),
		phoneNumber:    cfg.TwilioPhoneNumber,
		whatsAppNumber: cfg.TwilioWhatsAppNumber,
	}, nil
}

func (s *TwilioSender) Send(_ context.Context, channel, to, body string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetBody(body)
	if channel == ChannelWhatsApp {
		params.SetTo("whatsapp:" + to)
		params.SetFrom("whatsapp:" + s.whatsAppNumber)
	} else {
		params.SetTo(to)
		params.SetFrom(s.phoneNumber)
	}

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return "", err
	}
	if resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}

// ChannelFor picks WhatsApp for numbers with an international prefix.
func ChannelFor(phone string) string {
	if utils.IsE164(phone) {
		return ChannelWhatsApp
	}
	return ChannelSMS
}

type RunResult struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// SessionReminder texts clients who still have membership sessions left.
type SessionReminder struct {
	db       *gorm.DB
	sender   MessageSender
	interval time.Duration
	now      func() time.Time
}

func NewSessionReminder(db *gorm.DB, sender MessageSender, interval time.Duration) *SessionReminder {
	return &SessionReminder{db: db, sender: sender, interval: interval, now: time.Now}
}

// Start schedules Run on spec. The caller stops the returned scheduler.
func (r *SessionReminder) Start(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		res, err := r.Run(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("session reminders failed")
			return
		}
		log.Info().Int("sent", res.Sent).Int("failed", res.Failed).Int("skipped", res.Skipped).Msg("session reminders done")
	})
	if err != nil {
		return nil, fmt.Errorf("schedule reminders %q: %w", spec, err)
	}
	c.Start()
	log.Info().Str("schedule", spec).Msg("Reminder scheduler started")
	return c, nil
}

func reminderMessage(p *accounting.Purchase) string {
	name := strings.TrimSpace(p.Bill.ClientName)
	if name == "" {
		name = "there"
	}
	plan := p.Bill.MembershipItem().Name
	sessions := "sessions"
	if p.Entitlement.Remaining == 1 {
		sessions = "session"
	}
	return fmt.Sprintf("Hi %s, you have %d %s left on your %s membership. We look forward to seeing you again!",
		name, p.Entitlement.Remaining, sessions, plan)
}

// remindedSince lists purchases with a successful reminder after since.
func (r *SessionReminder) remindedSince(ctx context.Context, since time.Time) (map[uuid.UUID]bool, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.NotificationLog{}).
		Where("status = ? AND sent_at > ?", StatusSent, since).
		Distinct().Pluck("membership_purchase_bill_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *SessionReminder) pending(ctx context.Context) ([]*accounting.Purchase, error) {
	db := r.db.WithContext(ctx)

	var bills []models.Bill
	err := db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).
		Where("client_phone <> ''").
		Where("id IN (?)", db.Model(&models.BillItem{}).Select("bill_id").Where("item_type = ?", models.ItemTypeMembership)).
		Order("date_from ASC").
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	if len(bills) == 0 {
		return nil, nil
	}

	var plans []models.MembershipPlan
	if err := db.Find(&plans).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(bills))
	for i := range bills {
		ids[i] = bills[i].ID
	}
	var usages []models.ServiceUsage
	if err := db.Where("membership_purchase_bill_id IN ?", ids).Find(&usages).Error; err != nil {
		return nil, err
	}

	var out []*accounting.Purchase
	for i := range bills {
		p, err := accounting.Summarize(&bills[i], plans, usages)
		if err != nil {
			continue
		}
		if p.Entitlement.Remaining > 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

// Run sends one reminder per purchase with sessions left, skipping those
// reminded within the interval. Every attempt is logged.
func (r *SessionReminder) Run(ctx context.Context) (RunResult, error) {
	var res RunResult

	purchases, err := r.pending(ctx)
	if err != nil {
		return res, err
	}
	now := r.now()
	recent, err := r.remindedSince(ctx, now.Add(-r.interval))
	if err != nil {
		return res, err
	}

	for _, p := range purchases {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if recent[p.Bill.ID] {
			res.Skipped++
			continue
		}

		phone := utils.NormalizePhone(p.Bill.ClientPhone)
		channel := ChannelFor(phone)
		entry := models.NotificationLog{
			ClientID:                 p.Bill.ClientID,
			MembershipPurchaseBillID: p.Bill.ID,
			Phone:                    phone,
			Message:                  reminderMessage(p),
			Channel:                  channel,
			Status:                   StatusSent,
			SentAt:                   now,
		}

		sid, err := r.sender.Send(ctx, channel, phone, entry.Message)
		if err != nil {
			entry.Status = StatusFailed
			entry.ErrorMessage = err.Error()
			res.Failed++
			log.Warn().Err(err).Str("phone", phone).Str("channel", channel).Msg("reminder not delivered")
		} else {
			res.Sent++
			log.Debug().Str("phone", phone).Str("sid", sid).Msg("reminder sent")
		}
		metrics.IncReminder(channel, entry.Status)

		if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
			log.Error().Err(err).Str("purchase", p.Bill.ID.String()).Msg("Failed to log reminder")
		}
	}
	return res, nil
}
