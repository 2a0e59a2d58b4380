package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/amoradev/amora-backend/internal/config"
)

// NewDB initializes the database connection using DSN from config.
// TranslateError is enabled so duplicate-key violations surface as
// gorm.ErrDuplicatedKey (the swipe and match paths rely on it).
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DB.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate ensures the schema is in sync with the models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{}, &Rating{}, &Swipe{}, &Match{}, &Message{}, &Block{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
