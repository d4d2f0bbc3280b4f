package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnOpts holds MySQL connection settings.
type ConnOpts struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// DSN builds a MySQL DSN from connection options.
func DSN(o ConnOpts) string {
	cred := o.User
	if o.Password != "" {
		cred += ":" + o.Password
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true", cred, o.Host, o.Port, o.Database)
}

// Connect opens a GORM connection to the Deskline database. TranslateError is
// enabled so unique-key violations surface as gorm.ErrDuplicatedKey, which the
// assignment layer relies on for duplicate detection.
func Connect(o ConnOpts) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(DSN(o)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", o.Host, o.Port, o.Database, err)
	}
	return db, nil
}

// ConnectAdmin opens a GORM connection without selecting a database, used for
// CREATE/DROP DATABASE operations.
func ConnectAdmin(o ConnOpts) (*gorm.DB, error) {
	admin := o
	admin.Database = ""
	db, err := gorm.Open(mysql.Open(DSN(admin)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: admin connect to %s:%d: %w", o.Host, o.Port, err)
	}
	return db, nil
}

// DropDatabase drops the named database if it exists.
func DropDatabase(adminDB *gorm.DB, name string) error {
	sql := fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", name)
	if err := adminDB.Exec(sql).Error; err != nil {
		return fmt.Errorf("db: drop database %s: %w", name, err)
	}
	return nil
}

// CreateDatabase creates the named database if it doesn't already exist.
func CreateDatabase(adminDB *gorm.DB, name string) error {
	sql := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)
	if err := adminDB.Exec(sql).Error; err != nil {
		return fmt.Errorf("db: create database %s: %w", name, err)
	}
	return nil
}
