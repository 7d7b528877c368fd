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
	"database/sql"

	"github.com/pkg/errors"
)

// ErrSystemKeyMissing is returned when a system key has never been written
var ErrSystemKeyMissing = errors.New("system key not found")

// GetSystem scans the value of the given system key into dest
func GetSystem(db *DB, key string, dest interface{}) error {
	err := db.QueryRow("SELECT value FROM system WHERE key = ?", key).Scan(dest)
	if err == sql.ErrNoRows {
		return errors.Wrap(ErrSystemKeyMissing, key)
	}
	if err != nil {
		return errors.Wrapf(err, "finding system configuration record '%s'", key)
	}

	return nil
}

// UpdateSystem writes the value of the given system key, inserting the
// key if it does not exist
func UpdateSystem(db *DB, key string, val interface{}) error {
	if _, err := db.Exec(`INSERT INTO system (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, val); err != nil {
		return errors.Wrapf(err, "updating system config for %s", key)
	}

	return nil
}

// InitSystemKV inserts the key with the given value unless it already exists
func InitSystemKV(db *DB, key string, val string) error {
	if _, err := db.Exec("INSERT OR IGNORE INTO system (key, value) VALUES (?, ?)", key, val); err != nil {
		return errors.Wrapf(err, "inserting %s %s", key, val)
	}

	return nil
}
