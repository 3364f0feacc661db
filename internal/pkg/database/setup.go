package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/env"
	"github.com/ManuelReschke/CourseFox/internal/pkg/logger"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// Config returns the GORM configuration shared by production and tests.
// TranslateError turns driver specific unique violations into gorm.ErrDuplicatedKey.
func Config() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
	}
}

// Open connects to the configured database, retrying while the server comes up,
// and migrates the schema.
func Open(cfg *env.Config, log *logger.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(dialector(cfg), Config())
		if err == nil {
			if err = Migrate(db); err != nil {
				return nil, fmt.Errorf("auto migrate: %w", err)
			}
			return db, nil
		}

		log.Warn("failed to connect to database", "attempt", i+1, "max", maxRetries, "error", err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, err
}

func dialector(cfg *env.Config) gorm.Dialector {
	if cfg.DBDriver == "postgres" {
		return postgres.Open(cfg.DSN())
	}
	return mysql.New(mysql.Config{
		DSN:                       cfg.DSN(),
		DefaultStringSize:         256,
		SkipInitializeWithVersion: false,
	})
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}
