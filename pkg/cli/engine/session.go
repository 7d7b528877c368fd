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

// Package engine turns local tree changes into operations and applies
// remote operations to the local tree
package engine

import (
	"sync"
	"sync/atomic"

	"github.com/bobbysync/bobbysync/pkg/cli/consts"
	"github.com/bobbysync/bobbysync/pkg/cli/database"
	"github.com/bobbysync/bobbysync/pkg/cli/identity"
	"github.com/bobbysync/bobbysync/pkg/cli/log"
	"github.com/bobbysync/bobbysync/pkg/cli/queue"
	"github.com/bobbysync/bobbysync/pkg/cli/tree"
	"github.com/bobbysync/bobbysync/pkg/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Session holds the sync state of one device: its id, cursor, identity
// map and outbound queue. It subscribes to the local tree while open.
type Session struct {
	db    *database.DB
	tree  tree.Tree
	ids   *identity.Mapper
	queue *queue.Queue
	clock clock.Clock

	deviceID string

	// replayDepth is positive while remote operations are being applied.
	// Tree events seen in that window are not captured.
	replayDepth atomic.Int32
	// applyMu serializes applies and hydration
	applyMu sync.Mutex

	cancel func()
}

// Open loads the device state, maps every node of the tree and starts
// capturing local changes
func Open(db *database.DB, t tree.Tree, c clock.Clock) (*Session, error) {
	s := &Session{
		db:    db,
		tree:  t,
		ids:   identity.New(db),
		queue: queue.New(db),
		clock: c,
	}

	deviceID, err := loadDeviceID(db)
	if err != nil {
		return nil, errors.Wrap(err, "loading the device id")
	}
	s.deviceID = deviceID

	if err := s.ids.Load(); err != nil {
		return nil, errors.Wrap(err, "loading the identity map")
	}

	n, err := s.IndexTree()
	if err != nil {
		return nil, errors.Wrap(err, "indexing the tree")
	}
	log.Debug("indexed %d nodes, device %s\n", n, deviceID)

	s.cancel = t.Subscribe(s.capture)

	return s, nil
}

func loadDeviceID(db *database.DB) (string, error) {
	var deviceID string
	err := database.GetSystem(db, consts.SystemDeviceID, &deviceID)
	if err == nil && deviceID != "" {
		return deviceID, nil
	}
	if err != nil && errors.Cause(err) != database.ErrSystemKeyMissing {
		return "", err
	}

	deviceID = uuid.NewString()
	if err := database.UpdateSystem(db, consts.SystemDeviceID, deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

// Close stops capturing local changes and writes the identity map
func (s *Session) Close() error {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	return s.ids.Flush()
}

// DeviceID returns the id stamped on operations created by this device
func (s *Session) DeviceID() string {
	return s.deviceID
}

// Tree returns the local tree
func (s *Session) Tree() tree.Tree {
	return s.tree
}

// Queue returns the outbound operation queue
func (s *Session) Queue() *queue.Queue {
	return s.queue
}

// IDs returns the identity map
func (s *Session) IDs() *identity.Mapper {
	return s.ids
}

// Refresh writes pending identity changes and reloads the identity map so
// mappings written by other processes are visible
func (s *Session) Refresh() error {
	return s.ids.Load()
}

func (s *Session) getInt(key string) (int64, error) {
	var v int64
	err := database.GetSystem(s.db, key, &v)
	if errors.Cause(err) == database.ErrSystemKeyMissing {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return v, nil
}

// Cursor returns the highest log version applied locally
func (s *Session) Cursor() (int64, error) {
	return s.getInt(consts.SystemLastVersion)
}

// AdvanceCursor moves the cursor to v if v is ahead of it. It reports
// whether the cursor moved.
func (s *Session) AdvanceCursor(v int64) (bool, error) {
	res, err := s.db.Exec(`INSERT INTO system (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
		WHERE CAST(system.value AS INTEGER) < CAST(excluded.value AS INTEGER)`, consts.SystemLastVersion, v)
	if err != nil {
		return false, errors.Wrap(err, "advancing the cursor")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "checking the cursor")
	}

	return n > 0, nil
}

// Hydrated reports whether the tree was already hydrated from a snapshot
func (s *Session) Hydrated() (bool, error) {
	v, err := s.getInt(consts.SystemSnapshotHydrated)
	if err != nil {
		return false, err
	}

	return v == 1, nil
}

// NeedsBootstrap reports whether the device has never pulled nor hydrated
func (s *Session) NeedsBootstrap() (bool, error) {
	cursor, err := s.Cursor()
	if err != nil {
		return false, errors.Wrap(err, "getting the cursor")
	}
	hydrated, err := s.Hydrated()
	if err != nil {
		return false, errors.Wrap(err, "checking hydration")
	}

	return cursor == 0 && !hydrated, nil
}

// Status summarizes the sync state of the device
type Status struct {
	DeviceID            string
	Cursor              int64
	QueueSize           int
	Hydrated            bool
	Mappings            int
	ConflictContainerID string
}

// Status returns the current sync state
func (s *Session) Status() (Status, error) {
	ret := Status{
		DeviceID: s.deviceID,
		Mappings: s.ids.Len(),
	}

	var err error
	if ret.Cursor, err = s.Cursor(); err != nil {
		return ret, errors.Wrap(err, "getting the cursor")
	}
	if ret.QueueSize, err = s.queue.Len(); err != nil {
		return ret, errors.Wrap(err, "getting the queue size")
	}
	if ret.Hydrated, err = s.Hydrated(); err != nil {
		return ret, errors.Wrap(err, "checking hydration")
	}

	err = database.GetSystem(s.db, consts.SystemConflictContainerID, &ret.ConflictContainerID)
	if err != nil && errors.Cause(err) != database.ErrSystemKeyMissing {
		return ret, errors.Wrap(err, "getting the conflict container")
	}

	return ret, nil
}

// IndexTree maps every node of the local tree, minting uids for nodes
// that have none. It returns the number of nodes visited.
func (s *Session) IndexTree() (int, error) {
	roots, err := s.tree.Roots()
	if err != nil {
		return 0, errors.Wrap(err, "listing roots")
	}

	var count int
	for _, r := range roots {
		sub, err := s.tree.SubTree(r.ID)
		if err != nil {
			return count, errors.Wrapf(err, "loading root %s", r.ID)
		}

		sub.Walk(func(n tree.Node) {
			s.ids.EnsureUID(n.ID)
			count++
		})
	}

	if err := s.ids.Flush(); err != nil {
		return count, errors.Wrap(err, "writing the identity map")
	}

	return count, nil
}

func (s *Session) withReplay(fn func()) {
	s.replayDepth.Add(1)
	defer s.replayDepth.Add(-1)

	fn()
}

// Replaying reports whether remote operations are being applied
func (s *Session) Replaying() bool {
	return s.replayDepth.Load() > 0
}
