package config

import (
	"embed"
	"fmt"

	"spa-backoffice/models"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Models lists every table owned by the service.
var Models = []interface{}{
	&models.User{},
	&models.Client{},
	&models.Staff{},
	&models.Service{},
	&models.MembershipPlan{},
	&models.Bill{},
	&models.BillItem{},
	&models.ServiceUsage{},
	&models.NotificationLog{},
}

// Migrate creates the tables and then applies the SQL migrations, which only
// hold Postgres indexes and constraints.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	log.Info().Msg("migrations applied")
	return nil
}
