package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/haulbase/haulbase/internal/config"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module provides the gorm handle and the underlying *sql.DB.
var Module = fx.Module("db",
	fx.Provide(NewGorm),
	fx.Provide(NewSQLDB),
)

func NewGorm(cfg config.Config) (*gorm.DB, error) {
	dialect, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialect, &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConn)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConn)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTime) * time.Second)

	return gdb, nil
}

func NewSQLDB(gdb *gorm.DB) (*sql.DB, error) {
	return gdb.DB()
}
