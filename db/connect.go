package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Connect opens the primary MySQL store. Tests swap DB for an in-memory
// sqlite handle instead of calling this.
func Connect(dsn string) error {
	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	return nil
}

// Sync migrates the schema.
func Sync() error {
	return DB.AutoMigrate(
		&User{},
		&Product{},
		&Review{},
		&Order{},
		&OrderItem{},
		&TimelineEvent{},
		&Payment{},
		&Voucher{},
	)
}
