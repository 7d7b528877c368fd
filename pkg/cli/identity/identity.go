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

// Package identity maps local node ids to the global uids shared by all
// devices
package identity

import (
	"sync"

	"github.com/bobbysync/bobbysync/pkg/cli/database"
	"github.com/bobbysync/bobbysync/pkg/cli/tree"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultRootID is the local id of the container that receives nodes
// without a parent
const DefaultRootID = "1"

// rootUIDs are the fixed uids of the root containers. Every device uses
// the same values so top-level placement needs no negotiation.
var rootUIDs = map[string]string{
	"1": "root-bookmarks-bar",
	"2": "root-other-bookmarks",
	"3": "root-mobile-bookmarks",
}

var rootLocalIDs = func() map[string]string {
	ret := map[string]string{}
	for localID, uid := range rootUIDs {
		ret[uid] = localID
	}
	return ret
}()

// RootUID returns the fixed uid of a root container
func RootUID(localID string) (string, bool) {
	uid, ok := rootUIDs[localID]
	return uid, ok
}

// IsRootUID reports whether uid belongs to a root container
func IsRootUID(uid string) bool {
	_, ok := rootLocalIDs[uid]
	return ok
}

// Mapper is a bidirectional local id to uid map cached in memory.
// Mutations are kept pending until Flush writes them in one transaction.
type Mapper struct {
	db *database.DB

	mu         sync.Mutex
	localToUID map[string]string
	uidToLocal map[string]string
	// pending holds the local ids whose mapping changed since the last flush
	pending map[string]struct{}
}

// New returns an empty mapper. Call Load to read the stored mappings.
func New(db *database.DB) *Mapper {
	return &Mapper{
		db:         db,
		localToUID: map[string]string{},
		uidToLocal: map[string]string{},
		pending:    map[string]struct{}{},
	}
}

// Load flushes pending changes and replaces the cache with the stored
// mappings, picking up changes written by other processes
func (m *Mapper) Load() error {
	if err := m.Flush(); err != nil {
		return err
	}

	rows, err := m.db.Query("SELECT local_id, uid FROM identity_map")
	if err != nil {
		return errors.Wrap(err, "querying identity map")
	}
	defer rows.Close()

	localToUID := map[string]string{}
	uidToLocal := map[string]string{}
	for rows.Next() {
		var localID, uid string
		if err := rows.Scan(&localID, &uid); err != nil {
			return errors.Wrap(err, "scanning identity map")
		}

		localToUID[localID] = uid
		uidToLocal[uid] = localID
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterating identity map")
	}

	m.mu.Lock()
	m.localToUID = localToUID
	m.uidToLocal = uidToLocal
	m.mu.Unlock()

	return nil
}

// set records the mapping, removing any mapping that conflicts with it.
// Callers hold the lock.
func (m *Mapper) set(localID, uid string) {
	if prev, ok := m.localToUID[localID]; ok && prev != uid {
		delete(m.uidToLocal, prev)
	}
	if prev, ok := m.uidToLocal[uid]; ok && prev != localID {
		delete(m.localToUID, prev)
		m.pending[prev] = struct{}{}
	}

	m.localToUID[localID] = uid
	m.uidToLocal[uid] = localID
	m.pending[localID] = struct{}{}
}

// EnsureUID returns the uid of a local node, minting and recording a new
// one if the node has none. Root containers always get their fixed uid.
// An empty local id yields an empty uid.
func (m *Mapper) EnsureUID(localID string) string {
	if localID == "" {
		return ""
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if fixed, ok := rootUIDs[localID]; ok {
		if m.localToUID[localID] != fixed || m.uidToLocal[fixed] != localID {
			m.set(localID, fixed)
		}
		return fixed
	}

	if uid, ok := m.localToUID[localID]; ok {
		return uid
	}

	uid := uuid.NewString()
	m.set(localID, uid)

	return uid
}

// LookupUID returns the uid mapped to a local id
func (m *Mapper) LookupUID(localID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fixed, ok := rootUIDs[localID]; ok {
		return fixed, true
	}

	uid, ok := m.localToUID[localID]
	return uid, ok
}

// LookupLocalID returns the local id mapped to a uid
func (m *Mapper) LookupLocalID(uid string) (string, bool) {
	if uid == "" {
		return "", false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if localID, ok := m.uidToLocal[uid]; ok {
		return localID, true
	}

	localID, ok := rootLocalIDs[uid]
	return localID, ok
}

// Set records that a local node carries the given uid
func (m *Mapper) Set(localID, uid string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.set(localID, uid)
}

// Drop removes the mapping of a local id. Root mappings are never dropped.
func (m *Mapper) Drop(localID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.drop(localID)
}

func (m *Mapper) drop(localID string) {
	if _, ok := rootUIDs[localID]; ok {
		return
	}

	uid, ok := m.localToUID[localID]
	if !ok {
		return
	}

	delete(m.localToUID, localID)
	if m.uidToLocal[uid] == localID {
		delete(m.uidToLocal, uid)
	}
	m.pending[localID] = struct{}{}
}

// DropTree removes the mappings of a node and of every loaded descendant
func (m *Mapper) DropTree(n tree.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n.Walk(func(d tree.Node) {
		m.drop(d.ID)
	})
}

// Dirty reports whether there are changes not yet written
func (m *Mapper) Dirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.pending) > 0
}

// Len returns the number of mappings
func (m *Mapper) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.localToUID)
}

// Flush writes pending changes. It does nothing when the map is clean.
func (m *Mapper) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.pending) == 0 {
		return nil
	}

	tx, err := m.db.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning a transaction")
	}

	// Delete every affected row before inserting so that a uid moving
	// between local ids never trips the unique index.
	for localID := range m.pending {
		if _, err := tx.Exec("DELETE FROM identity_map WHERE local_id = ?", localID); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "deleting mapping of %s", localID)
		}

		if uid, ok := m.localToUID[localID]; ok {
			if _, err := tx.Exec("DELETE FROM identity_map WHERE uid = ?", uid); err != nil {
				tx.Rollback()
				return errors.Wrapf(err, "deleting mapping of %s", uid)
			}
		}
	}

	for localID := range m.pending {
		uid, ok := m.localToUID[localID]
		if !ok {
			continue
		}

		if _, err := tx.Exec("INSERT INTO identity_map (local_id, uid) VALUES (?, ?)", localID, uid); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "inserting mapping of %s", localID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing a transaction")
	}

	m.pending = map[string]struct{}{}

	return nil
}
