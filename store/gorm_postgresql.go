package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// KVEntry is the GORM model behind the GORM-backed KV.
type KVEntry struct {
	Key       string    `gorm:"primaryKey;size:255"`
	Value     []byte    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
}

// GormPostgreSQL is the KV backend on GORM, for deployments that already
// carry it for the rest of their schema.
type GormPostgreSQL struct {
	db *gorm.DB
}

func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
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

	if err := db.AutoMigrate(&KVEntry{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func (g *GormPostgreSQL) Get(ctx context.Context, key string) ([]byte, error) {
	var entry KVEntry
	err := g.db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, time.Now()).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry.Value, nil
}

func (g *GormPostgreSQL) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := KVEntry{Key: key, Value: value, ExpiresAt: time.Now().Add(ttl)}
	return g.db.WithContext(ctx).Save(&entry).Error
}

func (g *GormPostgreSQL) Delete(ctx context.Context, key string) error {
	return g.db.WithContext(ctx).Delete(&KVEntry{}, "key = ?", key).Error
}

func (g *GormPostgreSQL) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	if err := g.db.WithContext(ctx).
		Delete(&KVEntry{}, "expires_at <= ?", time.Now()).Error; err != nil {
		return nil, err
	}

	var keys []string
	err := g.db.WithContext(ctx).Model(&KVEntry{}).
		Where("key LIKE ? AND expires_at > ?", prefix+"%", time.Now()).
		Pluck("key", &keys).Error
	return keys, err
}

func (g *GormPostgreSQL) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
