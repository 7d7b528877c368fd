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

package database

import (
	"embed"

	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migrationTable records the applied schema migrations
const migrationTable = "schema_migrations"

func migrationSet() migrate.MigrationSet {
	return migrate.MigrationSet{TableName: migrationTable}
}

func migrationSource() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationFiles,
		Root:       "migrations",
	}
}

// Migrate brings the schema up to date. It returns the number of
// migrations applied.
func Migrate(db *DB) (int, error) {
	sqlDB, err := db.SQLDB()
	if err != nil {
		return 0, errors.Wrap(err, "getting connection pool")
	}

	ms := migrationSet()
	n, err := ms.Exec(sqlDB, "sqlite3", migrationSource(), migrate.Up)
	if err != nil {
		return n, errors.Wrap(err, "running migrations")
	}

	return n, nil
}

// PendingMigrations returns the ids of the migrations not applied yet
func PendingMigrations(db *DB) ([]string, error) {
	sqlDB, err := db.SQLDB()
	if err != nil {
		return nil, errors.Wrap(err, "getting connection pool")
	}

	ms := migrationSet()
	planned, _, err := ms.PlanMigration(sqlDB, "sqlite3", migrationSource(), migrate.Up, 0)
	if err != nil {
		return nil, errors.Wrap(err, "planning migrations")
	}

	ret := make([]string, 0, len(planned))
	for _, m := range planned {
		ret = append(ret, m.Id)
	}

	return ret, nil
}
