package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV"`
	Port            string        `mapstructure:"PORT"`
	DBURL           string        `mapstructure:"DB_URL"`
	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	JWTExpiryHours  int           `mapstructure:"JWT_EXPIRY_HOURS"`
	CORSOrigins     []string      `mapstructure:"-"`
	RefreshInterval time.Duration `mapstructure:"-"`
	MetricsEnabled  bool          `mapstructure:"METRICS_ENABLED"`

	ReminderSchedule     string `mapstructure:"REMINDER_SCHEDULE"`
	ReminderIntervalDays int    `mapstructure:"REMINDER_INTERVAL_DAYS"`

	TwilioAccountSID     string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken      string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioPhoneNumber    string `mapstructure:"TWILIO_PHONE_NUMBER"`
	TwilioWhatsAppNumber string `mapstructure:"TWILIO_WHATSAPP_NUMBER"`
}

// App holds the loaded configuration; handlers read it like DB.
var App = Defaults()

func (c Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpiryHours) * time.Hour
}

func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Defaults is the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		AppEnv:               "development",
		Port:                 "8080",
		JWTExpiryHours:       24,
		CORSOrigins:          []string{"http://localhost:3000"},
		RefreshInterval:      30 * time.Second,
		MetricsEnabled:       true,
		ReminderSchedule:     "0 10 * * *",
		ReminderIntervalDays: 7,
	}
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found")
	}

	d := Defaults()
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("APP_ENV", d.AppEnv)
	v.SetDefault("PORT", d.Port)
	v.SetDefault("DB_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRY_HOURS", d.JWTExpiryHours)
	v.SetDefault("CORS_ORIGINS", strings.Join(d.CORSOrigins, ","))
	v.SetDefault("REFRESH_INTERVAL_SECONDS", int(d.RefreshInterval/time.Second))
	v.SetDefault("METRICS_ENABLED", d.MetricsEnabled)
	v.SetDefault("REMINDER_SCHEDULE", d.ReminderSchedule)
	v.SetDefault("REMINDER_INTERVAL_DAYS", d.ReminderIntervalDays)
	for _, k := range []string{"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_PHONE_NUMBER", "TWILIO_WHATSAPP_NUMBER"} {
		v.SetDefault(k, "")
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	c.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	c.RefreshInterval = time.Duration(v.GetInt("REFRESH_INTERVAL_SECONDS")) * time.Second
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = d.RefreshInterval
	}
	return c, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
