package data

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aletheia-protocol/aletheia-dow/src/dow/types"
)

var allModels = []interface{}{
	&types.Verdict{}, &types.Challenge{}, &types.Vote{},
	&types.Treasury{}, &types.TreasuryTransaction{}, &types.VoterReputation{},
}

// MustDatabase opens the challenge store. A DSN containing "@tcp(" selects
// MySQL; anything else is treated as a SQLite file path (":memory:" included).
func MustDatabase(dsn string) *gorm.DB {
	cfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true, // surface duplicate-key as gorm.ErrDuplicatedKey
	}

	var (
		db  *gorm.DB
		err error
	)
	if strings.Contains(dsn, "@tcp(") {
		db, err = gorm.Open(mysql.Open(dsn), cfg)
	} else {
		if dir := filepath.Dir(dsn); dir != "." && dsn != ":memory:" {
			_ = os.MkdirAll(dir, 0o755)
		}
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
		if err == nil {
			// One connection keeps sqlite serialised and keeps :memory:
			// pointing at a single database across the pool.
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				sqlDB.SetMaxOpenConns(1)
			}
		}
	}
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	return db
}

// Migrate creates or updates the schema for all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(allModels...)
}

// SeedTreasury inserts the singleton treasury row if absent.
func SeedTreasury(db *gorm.DB, initialBalance float64) error {
	return db.Where(types.Treasury{ID: 1}).
		Attrs(types.Treasury{TotalBalance: initialBalance}).
		FirstOrCreate(&types.Treasury{}).Error
}
