// Package db stores run history in SQLite, locally or on a libSQL server.
package db

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	libsql "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oxhq/rulefx/models"
)

// DefaultDSN is the history database used when RULEFX_DB is not set.
const DefaultDSN = ".rulefx/history.db"

// Connect opens the history database and migrates it. Remote libSQL
// servers are reached through http(s):// or libsql:// DSNs, authenticated
// by RULEFX_LIBSQL_AUTH_TOKEN when set.
func Connect(dsn string, debug bool) (*gorm.DB, error) {
	remote := isURL(dsn)
	if !remote && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	config := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if debug {
		config.Logger = logger.Default.LogMode(logger.Info)
	}

	var (
		dialector gorm.Dialector
		conn      *sql.DB
	)
	if remote {
		var (
			connector driver.Connector
			err       error
		)
		if token := os.Getenv("RULEFX_LIBSQL_AUTH_TOKEN"); token != "" {
			connector, err = libsql.NewConnector(dsn, libsql.WithAuthToken(token))
		} else {
			connector, err = libsql.NewConnector(dsn)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create libsql connector: %w", err)
		}
		conn = sql.OpenDB(connector)
		dialector = sqlite.New(sqlite.Config{
			DriverName: "libsql",
			Conn:       conn,
			DSN:        dsn,
		})
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if !remote {
		if sqlDB, err := db.DB(); err == nil {
			// An in-memory database lives only as long as its connection.
			if dsn == ":memory:" {
				sqlDB.SetMaxOpenConns(1)
			}
			sqlDB.Exec("PRAGMA foreign_keys = ON")
		}
	}

	if err := Migrate(db); err != nil {
		Close(db)
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isURL(dsn string) bool {
	for _, prefix := range []string{"http://", "https://", "libsql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return true
		}
	}
	return false
}

// Migrate creates or updates the history tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Run{},
		&models.FileResult{},
		&models.OffenseRecord{},
	)
}
