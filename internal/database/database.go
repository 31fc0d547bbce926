package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hi-events/hi-events-api/internal/config"
	"github.com/hi-events/hi-events-api/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func Connect(cfg *config.Config, logger zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseURL)
	case "sqlite":
		dialector = sqlite.Open(SQLiteDSN(cfg.DatabaseURL))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(cfg, logger)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.SeedCategories {
		if err := SeedCategories(db); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// SQLiteDSN adds the connection options concurrent writers need: a busy
// timeout, transactions that take the write lock on BEGIN, and WAL for file
// databases. Options already present in dsn are kept.
func SQLiteDSN(dsn string) string {
	opts := [][2]string{
		{"_busy_timeout", "5000"},
		{"_txlock", "immediate"},
	}
	if !strings.Contains(dsn, ":memory:") && !strings.Contains(dsn, "mode=memory") {
		opts = append(opts, [2]string{"_journal_mode", "WAL"})
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, o := range opts {
		if strings.Contains(dsn, o[0]+"=") {
			continue
		}
		dsn += sep + o[0] + "=" + o[1]
		sep = "&"
	}
	return dsn
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Event{},
		&models.Registration{},
		&models.RegistrationHistory{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return nil
}

// SeedCategories inserts the default categories that are not present yet.
func SeedCategories(db *gorm.DB) error {
	for _, c := range models.DefaultCategories {
		var existing models.Category
		err := db.Where("slug = ?", c.Slug).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up category %s: %w", c.Slug, err)
		}

		category := c
		if err := db.Create(&category).Error; err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c.Slug, err)
		}
	}
	return nil
}

// CheckConnection reports whether the database answers a trivial query.
func CheckConnection(ctx context.Context, db *gorm.DB) bool {
	if db == nil {
		return false
	}
	var one int
	if err := db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		return false
	}
	return one == 1
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// gormWriter forwards gorm's printf style output into zerolog.
type gormWriter struct {
	logger zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.logger.Debug().Str("component", "gorm").Msgf(format, args...)
}

// newGormLogger logs every query in development and only errors elsewhere.
func newGormLogger(cfg *config.Config, logger zerolog.Logger) gormlogger.Interface {
	level := gormlogger.Error
	if cfg.IsDevelopment() {
		level = gormlogger.Info
	}
	return gormlogger.New(gormWriter{logger: logger}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
