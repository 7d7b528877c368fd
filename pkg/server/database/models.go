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
	"time"
)

// Model is the base model definition
type Model struct {
	ID        int       `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// LogMeta holds the version counter of the operation log. The table has a
// single row.
type LogMeta struct {
	Model
	Version int64 `gorm:"not null;default:0"`
}

// OpRecord is a model for a retained operation
type OpRecord struct {
	Model
	Version   int64   `gorm:"uniqueIndex;not null"`
	OpID      string  `gorm:"uniqueIndex;type:text;not null"`
	Kind      string  `gorm:"type:text;not null"`
	UID       string  `gorm:"index;type:text;not null"`
	ParentUID *string `gorm:"type:text"`
	Idx       *int
	Title     *string `gorm:"type:text"`
	Content   *string `gorm:"type:text"`
	NodeType  string  `gorm:"type:text"`
	Timestamp int64
	DeviceID  string `gorm:"index;type:text"`
}

// SnapshotRecord is a model for the published snapshot. The table has at
// most one row.
type SnapshotRecord struct {
	Model
	Version int64
	TakenAt string `gorm:"type:text"`
	Data    string `gorm:"type:text"`
}

// TableName overrides the table name used by LogMeta
func (LogMeta) TableName() string {
	return "log_meta"
}

// TableName overrides the table name used by OpRecord
func (OpRecord) TableName() string {
	return "op_records"
}

// TableName overrides the table name used by SnapshotRecord
func (SnapshotRecord) TableName() string {
	return "snapshots"
}
