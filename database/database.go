package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Raytar/labhelp/models"
)

// DefaultPath keeps the journal in memory for the lifetime of the process.
const DefaultPath = "file::memory:?cache=shared"

type Database struct {
	conn *gorm.DB
	log  *logrus.Logger
	now  func() time.Time
}

func OpenDatabase(path string, logger *logrus.Logger) (*Database, error) {
	lgr, err := Zap()
	if err != nil {
		return nil, fmt.Errorf("failed to create GORM logger: %w", err)
	}
	defer func() { _ = lgr.Sync() }()
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:                 NewGORMLogger(lgr),
		SkipDefaultTransaction: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&models.HelpRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Database{conn: db, log: logger, now: time.Now}, nil
}

func (db *Database) Close() error {
	conn, err := db.conn.DB()
	if err != nil {
		return err
	}
	return conn.Close()
}
