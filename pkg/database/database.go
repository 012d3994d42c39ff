package database

import (
	"fmt"
	"phish_trainer_backend/internal/config"
	"phish_trainer_backend/internal/model"
	"phish_trainer_backend/internal/util"
	"phish_trainer_backend/pkg/logger"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Models 参与自动迁移的全部表
var Models = []interface{}{
	&model.User{},
	&model.Quiz{},
	&model.Question{},
	&model.Attempt{},
	&model.Progress{},
}

// Dialector 按配置选择 MySQL 或 SQLite
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case util.DriverMySQL:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	case util.DriverSQLite, "":
		dsn := cfg.Path
		if !strings.Contains(dsn, "?") {
			dsn += "?_foreign_keys=on&_busy_timeout=5000"
		}
		return sqlite.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// Open 建立连接；TranslateError 让唯一键冲突以 gorm.ErrDuplicatedKey 返回
func Open(dialector gorm.Dialector, debug bool) (*gorm.DB, error) {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	})
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models...)
}

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(&cfg.Database)
	if err != nil {
		return nil, err
	}

	db, err := Open(dialector, cfg.Server.Mode == "debug")
	if err != nil {
		return nil, err
	}
	logger.Log.Info("Database connection established", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.Driver == util.DriverSQLite || cfg.Database.Driver == "" {
		// SQLite 单写者，避免 database is locked
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	logger.Log.Info("Database migration completed")

	if err := Seed(db, &cfg.Bootstrap); err != nil {
		return nil, err
	}
	return db, nil
}
