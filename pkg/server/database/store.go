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
	"encoding/json"
	"sync"

	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/bobbysync/bobbysync/pkg/server/oplog"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	metaRowID     = 1
	snapshotRowID = 1
	insertBatch   = 500
)

// Store persists the operation log in SQL tables. The log hands it the full
// state on every save and the store writes only the difference against what
// is already stored.
type Store struct {
	db *gorm.DB

	mu sync.Mutex
	// savedSnapshot is the snapshot value last written, compared by identity
	savedSnapshot *ops.Snapshot
	loaded        bool
}

// NewStore returns a store using the given database. The schema must
// already be prepared.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Load reads the full state from the database
func (s *Store) Load() (oplog.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state oplog.State

	var meta LogMeta
	err := s.db.Where("id = ?", metaRowID).Limit(1).Find(&meta).Error
	if err != nil {
		return state, errors.Wrap(err, "reading log meta")
	}
	state.Version = meta.Version

	var records []OpRecord
	if err := s.db.Order("version ASC").Find(&records).Error; err != nil {
		return state, errors.Wrap(err, "reading operations")
	}
	state.Ops = make([]ops.Operation, 0, len(records))
	for _, r := range records {
		state.Ops = append(state.Ops, r.toOperation())
	}

	var snaps []SnapshotRecord
	if err := s.db.Where("id = ?", snapshotRowID).Limit(1).Find(&snaps).Error; err != nil {
		return state, errors.Wrap(err, "reading snapshot")
	}
	if len(snaps) > 0 {
		state.Snapshot = &ops.Snapshot{
			Version: snaps[0].Version,
			TakenAt: snaps[0].TakenAt,
			Data:    json.RawMessage(snaps[0].Data),
		}
	}

	s.savedSnapshot = state.Snapshot
	s.loaded = true

	return state, nil
}

// Save writes the given state in a single transaction
func (s *Store) Save(state oplog.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshotChanged := !s.loaded || state.Snapshot != s.savedSnapshot

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := saveMeta(tx, state.Version); err != nil {
			return err
		}
		if err := saveOps(tx, state.Ops); err != nil {
			return err
		}
		if snapshotChanged {
			if err := saveSnapshot(tx, state.Snapshot); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.savedSnapshot = state.Snapshot
	s.loaded = true

	return nil
}

func saveMeta(tx *gorm.DB, version int64) error {
	res := tx.Model(&LogMeta{}).Where("id = ?", metaRowID).Update("version", version)
	if res.Error != nil {
		return errors.Wrap(res.Error, "updating log version")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	meta := LogMeta{Model: Model{ID: metaRowID}, Version: version}
	if err := tx.Create(&meta).Error; err != nil {
		return errors.Wrap(err, "inserting log version")
	}

	return nil
}

// saveOps makes the stored rows match the retained operations: rows older
// than the oldest retained version are pruned and rows past the newest
// stored version are inserted.
func saveOps(tx *gorm.DB, retained []ops.Operation) error {
	if len(retained) == 0 {
		if err := tx.Where("1 = 1").Delete(&OpRecord{}).Error; err != nil {
			return errors.Wrap(err, "clearing operations")
		}

		return nil
	}

	oldest := retained[0].Version
	if err := tx.Where("version < ?", oldest).Delete(&OpRecord{}).Error; err != nil {
		return errors.Wrap(err, "pruning operations")
	}

	var newest int64
	if err := tx.Model(&OpRecord{}).Select("COALESCE(MAX(version), 0)").Scan(&newest).Error; err != nil {
		return errors.Wrap(err, "reading the newest stored version")
	}

	var records []OpRecord
	for _, op := range retained {
		if op.Version > newest {
			records = append(records, newOpRecord(op))
		}
	}
	if len(records) == 0 {
		return nil
	}

	if err := tx.CreateInBatches(records, insertBatch).Error; err != nil {
		return errors.Wrap(err, "inserting operations")
	}

	return nil
}

func saveSnapshot(tx *gorm.DB, snap *ops.Snapshot) error {
	if err := tx.Where("id = ?", snapshotRowID).Delete(&SnapshotRecord{}).Error; err != nil {
		return errors.Wrap(err, "deleting snapshot")
	}
	if snap == nil {
		return nil
	}

	record := SnapshotRecord{
		Model:   Model{ID: snapshotRowID},
		Version: snap.Version,
		TakenAt: snap.TakenAt,
		Data:    string(snap.Data),
	}
	if err := tx.Create(&record).Error; err != nil {
		return errors.Wrap(err, "inserting snapshot")
	}

	return nil
}

func newOpRecord(op ops.Operation) OpRecord {
	return OpRecord{
		Version:   op.Version,
		OpID:      op.OpID,
		Kind:      string(op.Op),
		UID:       op.UID,
		ParentUID: op.ParentUID,
		Idx:       op.Index,
		Title:     op.Title,
		Content:   op.Content,
		NodeType:  string(op.Type),
		Timestamp: op.Timestamp,
		DeviceID:  op.DeviceID,
	}
}

func (r OpRecord) toOperation() ops.Operation {
	return ops.Operation{
		Op:        ops.Kind(r.Kind),
		UID:       r.UID,
		ParentUID: r.ParentUID,
		Index:     r.Idx,
		Title:     r.Title,
		Content:   r.Content,
		Type:      ops.NodeType(r.NodeType),
		Timestamp: r.Timestamp,
		DeviceID:  r.DeviceID,
		OpID:      r.OpID,
		Version:   r.Version,
	}
}
