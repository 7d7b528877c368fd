/* Copyright 2025 BobbySync Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package database persists the operation log in a SQL database through gorm
package database

import (
	"os"
	"path/filepath"

	"github.com/bobbysync/bobbysync/pkg/server/log"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	// DriverSQLite selects the sqlite driver
	DriverSQLite = "sqlite"
	// DriverPostgres selects the postgres driver
	DriverPostgres = "postgres"
)

// ErrUnknownDriver is returned for an unsupported driver name
var ErrUnknownDriver = errors.New("unknown database driver")

// InitSchema migrates database schema to reflect the latest model definition
func InitSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&LogMeta{},
		&OpRecord{},
		&SnapshotRecord{},
	); err != nil {
		return errors.Wrap(err, "auto-migrating schema")
	}

	return nil
}

// getDBLogLevel maps the server log level to the gorm log level
func getDBLogLevel(level string) logger.LogLevel {
	switch level {
	case log.LevelDebug:
		return logger.Info
	case log.LevelWarn:
		return logger.Warn
	case log.LevelError:
		return logger.Error
	default:
		return logger.Silent
	}
}

// Open initializes the database connection. For sqlite the dsn is a file
// path, whose directory is created if needed.
func Open(driver, dsn, logLevel string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case DriverSQLite:
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "creating database directory at %s", dir)
		}

		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, errors.Wrapf(ErrUnknownDriver, "'%s'", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(getDBLogLevel(logLevel)),
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening database connection")
	}

	return db, nil
}

// Prepare brings the schema of the given database up to date
func Prepare(db *gorm.DB) error {
	if err := InitSchema(db); err != nil {
		return err
	}
	if err := Migrate(db); err != nil {
		return errors.Wrap(err, "running migrations")
	}

	return nil
}
