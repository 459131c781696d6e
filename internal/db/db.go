package db

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/oggyb/codev-api/internal/config"
)

// NewDB initializes the database connection using DSN from config.
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	lvl := logger.Warn
	if cfg.DB.LogSQL {
		lvl = logger.Info
	}

	db, err := Open(mysql.Open(cfg.DB.DSN), logger.Default.LogMode(lvl))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	if err := EnsureRoles(db, cfg.Roles.User, cfg.Roles.Admin); err != nil {
		return nil, err
	}

	return db, nil
}

// Open wraps gorm.Open with the settings every store shares: UTC millisecond
// timestamps and driver error translation (duplicate keys -> gorm.ErrDuplicatedKey).
func Open(dialector gorm.Dialector, l logger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 l,
		TranslateError:         true,
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return db, nil
}

// Migrate ensures schema is in sync with models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// EnsureRoles inserts the named roles when missing.
func EnsureRoles(db *gorm.DB, names ...string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		role := Role{Name: name}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&role).Error; err != nil {
			return fmt.Errorf("failed to ensure role %q: %w", name, err)
		}
	}
	return nil
}
