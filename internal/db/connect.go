// Package db opens the journal database used by chatsync.
package db

import (
	"fmt"
	"net"
	"strconv"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/zulandar/chatsync/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN builds a MySQL DSN for the journal database.
func DSN(user, host string, port int, database string) string {
	c := mysqldrv.NewConfig()
	c.User = user
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	c.DBName = database
	c.ParseTime = true
	return c.FormatDSN()
}

// Open connects to the journal database described by cfg and migrates it.
func Open(cfg config.JournalConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	var where string
	switch cfg.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(cfg.Path)
		where = cfg.Path
	case "mysql":
		dialector = mysql.Open(DSN(cfg.User, cfg.Host, cfg.Port, cfg.Name))
		where = fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Name)
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", cfg.Driver)
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect to %s: %w", where, err)
	}
	if cfg.Driver != "mysql" {
		// SQLite allows a single writer, and each ":memory:" connection
		// would otherwise see its own empty database.
		sqlDB, err := gormDB.DB()
		if err != nil {
			return nil, fmt.Errorf("db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := AutoMigrate(gormDB); err != nil {
		return nil, err
	}
	return gormDB, nil
}

// OpenMemory opens a private in-memory SQLite journal.
func OpenMemory() (*gorm.DB, error) {
	return Open(config.JournalConfig{Driver: "sqlite", Path: ":memory:"})
}
