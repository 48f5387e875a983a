// Package database opens the sqlite database behind the local workbook
// backend and seeds a fresh workbook with its standard worksheets.
package database

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path"

	"github.com/goccy/go-json"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pricedesk/pricedesk/config"
	"github.com/pricedesk/pricedesk/database/model"
)

var db *gorm.DB

func initModels(conn *gorm.DB) error {
	models := []any{
		&model.Worksheet{},
		&model.SheetRow{},
	}
	for _, m := range models {
		if err := conn.AutoMigrate(m); err != nil {
			log.Printf("Error auto migrating model: %v", err)
			return err
		}
	}
	return nil
}

// SeedWorkbook creates the price, Users and Logs worksheets with their header
// rows when the workbook has no worksheets yet.
func SeedWorkbook(conn *gorm.DB, workbook string) error {
	var count int64
	if err := conn.Model(&model.Worksheet{}).Where("workbook = ?", workbook).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	tabs := []struct {
		title  string
		header []string
	}{
		{model.PriceSheet, model.PriceHeader},
		{model.UsersSheet, model.UserHeader},
		{model.LogsSheet, model.LogHeader},
	}
	return conn.Transaction(func(tx *gorm.DB) error {
		for i, tab := range tabs {
			ws := &model.Worksheet{Workbook: workbook, Title: tab.title, SortOrder: i}
			if err := tx.Create(ws).Error; err != nil {
				return err
			}
			cells, err := json.Marshal(tab.header)
			if err != nil {
				return err
			}
			row := &model.SheetRow{WorksheetId: ws.Id, Position: 1, Cells: string(cells)}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Open opens (creating if needed) the sqlite database at dbPath and migrates it.
func Open(dbPath string) (*gorm.DB, error) {
	dir := path.Dir(dbPath)
	if err := os.MkdirAll(dir, fs.ModePerm); err != nil {
		return nil, err
	}

	var gormLogger logger.Interface
	if config.IsDebug() {
		gormLogger = logger.Default
	} else {
		gormLogger = logger.Discard
	}

	c := &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	}

	dsn := dbPath + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), c)
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if _, err = sqlDB.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, err
	}

	if err := initModels(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// InitDB opens the process-wide database and seeds the named workbook.
func InitDB(dbPath string, workbook string) error {
	conn, err := Open(dbPath)
	if err != nil {
		return err
	}
	if err := SeedWorkbook(conn, workbook); err != nil {
		return err
	}
	db = conn
	return nil
}

// CloseDB checkpoints the WAL and closes the process-wide database.
func CloseDB() error {
	if db != nil {
		if err := Checkpoint(); err != nil {
			log.Printf("error executing checkpoint: %v", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		db = nil
		return sqlDB.Close()
	}
	return nil
}

func GetDB() *gorm.DB {
	return db
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func Checkpoint() error {
	return db.Exec("PRAGMA wal_checkpoint;").Error
}
