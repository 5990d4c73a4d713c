package db

import (
	"fmt"

	"github.com/azattekce/redischat/config"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
	ModeMemory = "memory"
)

// Open returns a *gorm.DB for the configured database mode.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeSQLite:
		return openSQLite(cfg.SQLitePath)
	case ModeMemory:
		// Unique name per Open so independent callers (tests) get isolated
		// databases; cache=shared keeps gorm's pooled connections on one DB.
		dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
		return openSQLite(dsn)
	case ModeMySQL:
		return openMySQL(cfg)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}

func openSQLite(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func openMySQL(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQLDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MySQLMaxOpen)
	sqlDB.SetMaxIdleConns(cfg.MySQLMaxIdle)
	sqlDB.SetConnMaxLifetime(cfg.MySQLMaxLife)
	return db, nil
}
