package database

import (
	"time"

	"github.com/quocanhngo/lostfound/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table owned or read by this service, in dependency order
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Item{},
		&model.Match{},
		&model.Notification{},
		&model.DeviceToken{},
		&model.Chat{},
		&model.Message{},
		&model.OutboxEvent{},
	}
}

// Open connects to PostgreSQL. Timestamps are always written in UTC.
func Open(dsn string, production bool) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Info)
	if production {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  gormLogger,
		NowFunc: nowUTC,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// AutoMigrate is the fallback used when the SQL migrations cannot run
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
