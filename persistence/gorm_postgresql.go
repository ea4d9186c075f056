// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/config"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/models"
)

// GormStore is the gorm-backed TierStore.
type GormStore struct {
	db *gorm.DB
}

// NewGormPostgreSQL opens postgres through gorm and migrates the schema.
func NewGormPostgreSQL(cfg config.PostgresConfig) (*GormStore, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return NewGormStore(db)
}

// NewGormStore wraps an open gorm connection of any dialect.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&models.GormEntitlement{}); err != nil {
		return nil, fmt.Errorf("migrate entitlements: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) GetEntitlement(ctx context.Context, userID string) (models.Entitlement, error) {
	var row models.GormEntitlement
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Entitlement{}, ErrRecordNotFound
	}
	if err != nil {
		return models.Entitlement{}, err
	}
	return row.ToEntitlement(), nil
}

// SetEntitlement upserts the user's tier.
func (s *GormStore) SetEntitlement(ctx context.Context, userID string, tier models.Tier, expiresAt *time.Time) error {
	if err := checkTier(tier); err != nil {
		return err
	}
	row := models.GormEntitlement{
		UserID:    userID,
		Tier:      string(tier),
		ExpiresAt: expiresAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tier", "expires_at", "updated_at"}),
	}).Create(&row).Error
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
