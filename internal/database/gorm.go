package database

import (
	"fmt"
	"strings"
	"time"

	"bugalou/internal/config"
	"bugalou/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var GormDB *gorm.DB

// InitGorm opens the configured database, migrates it and stores the handle
// in GormDB. It exits the process when either step fails.
func InitGorm(cfg *config.Config) {
	var err error
	GormDB, err = Open(cfg)
	if err != nil {
		zap.L().Fatal("database: failed to connect", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	zap.L().Info("database: connected", zap.String("driver", cfg.DBDriver))

	if err := Migrate(GormDB); err != nil {
		zap.L().Fatal("database: auto-migration failed", zap.Error(err))
	}
	zap.L().Info("database: migration completed")
}

// Open connects to PostgreSQL or SQLite depending on cfg.DBDriver.
func Open(cfg *config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger: newLogger(zapWriter{}, logLevel(cfg.DBLogLevel)),
	}

	switch strings.ToLower(cfg.DBDriver) {
	case "sqlite", "sqlite3":
		return gorm.Open(sqlite.Open(cfg.DBPath), gcfg)
	case "postgres", "postgresql", "":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		return gorm.Open(postgres.Open(dsn), gcfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// OpenSQLite opens a SQLite file, used as the source of data migrations.
func OpenSQLite(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: newLogger(zapWriter{}, logger.Warn),
	})
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

// newLogger is gorm's logger without "record not found" lines; first()
// reports a miss as found=false.
func newLogger(w logger.Writer, level logger.LogLevel) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// zapWriter sends gorm's log lines to the process logger.
type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	zap.L().Sugar().Infof(format, args...)
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
