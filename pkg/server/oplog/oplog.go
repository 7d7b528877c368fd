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

// Package oplog implements the server side operation log. The log assigns
// every accepted operation a gapless, strictly increasing version, drops
// retried operations by their opId and keeps at most a bounded number of
// entries.
package oplog

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/bobbysync/bobbysync/pkg/clock"
	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/bobbysync/bobbysync/pkg/server/helpers"
	"github.com/bobbysync/bobbysync/pkg/server/log"
	"github.com/pkg/errors"
)

const (
	// DefaultMaxLogOps is the default number of retained operations
	DefaultMaxLogOps = 50000
	// DefaultMaxPullLimit is the default page size cap for pulls
	DefaultMaxPullLimit = 1000
)

var (
	// ErrSnapshotNotFound is returned when no snapshot has been published
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrEmptyStore is returned when a log is opened without a store
	ErrEmptyStore = errors.New("no store was provided")
)

// State is the durable state of the log
type State struct {
	Version  int64           `json:"version"`
	Ops      []ops.Operation `json:"ops"`
	Snapshot *ops.Snapshot   `json:"snapshot"`
}

// Store persists the log state. Save must not return before the state is
// durable.
type Store interface {
	Load() (State, error)
	Save(State) error
}

// Options configures a Log
type Options struct {
	MaxLogOps    int
	MaxPullLimit int
	Clock        clock.Clock
}

// Log is the authoritative operation log
type Log struct {
	mu    sync.RWMutex
	store Store
	clock clock.Clock

	maxLogOps    int
	maxPullLimit int

	version  int64
	ops      []ops.Operation
	seen     map[string]struct{}
	snapshot *ops.Snapshot
}

// PushResult is the outcome of a push
type PushResult struct {
	Accepted   int
	NewVersion int64
}

// PullResult is a page of operations
type PullResult struct {
	Ops    []ops.Operation
	Latest int64
}

// SnapshotParams are the parameters for publishing a snapshot
type SnapshotParams struct {
	Version *int64
	TakenAt string
	Data    json.RawMessage
}

// Open loads the persisted state from the store and returns a log serving it
func Open(store Store, opts Options) (*Log, error) {
	if store == nil {
		return nil, ErrEmptyStore
	}

	if opts.MaxLogOps <= 0 {
		opts.MaxLogOps = DefaultMaxLogOps
	}
	if opts.MaxPullLimit <= 0 {
		opts.MaxPullLimit = DefaultMaxPullLimit
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	state, err := store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "loading the log state")
	}

	l := &Log{
		store:        store,
		clock:        opts.Clock,
		maxLogOps:    opts.MaxLogOps,
		maxPullLimit: opts.MaxPullLimit,
		version:      state.Version,
		ops:          state.Ops,
		seen:         map[string]struct{}{},
		snapshot:     state.Snapshot,
	}

	for _, op := range l.ops {
		if op.OpID != "" {
			l.seen[op.OpID] = struct{}{}
		}
	}

	// A store written by an older server may hold ops beyond its version.
	if n := len(l.ops); n > 0 && l.ops[n-1].Version > l.version {
		l.version = l.ops[n-1].Version
	}

	log.WithFields(log.Fields{
		"version":  l.version,
		"ops":      len(l.ops),
		"snapshot": l.snapshot != nil,
	}).Info("Operation log loaded.")

	return l, nil
}

// normalize fills in the opId and timestamp of an incoming operation. It
// returns false if the operation cannot be stored.
func (l *Log) normalize(op ops.Operation) (ops.Operation, bool, error) {
	if !op.Valid() {
		return op, false, nil
	}

	if op.OpID == "" {
		id, err := helpers.NewOpID()
		if err != nil {
			return op, false, err
		}
		op.OpID = id
	}
	if op.Timestamp == 0 {
		op.Timestamp = clock.NowMillis(l.clock)
	}

	return op, true, nil
}

// Push appends the given operations to the log. Operations whose opId has
// been accepted before and operations lacking a kind or a uid are skipped.
// The after value reported by the client is informational only.
func (l *Log) Push(after int64, incoming []ops.Operation) (PushResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prevVersion := l.version
	prevOps := l.ops
	var added []string

	for _, in := range incoming {
		op, ok, err := l.normalize(in)
		if err != nil {
			l.rollback(prevVersion, prevOps, added, nil)
			return PushResult{}, errors.Wrap(err, "normalizing operation")
		}
		if !ok {
			continue
		}
		if _, dup := l.seen[op.OpID]; dup {
			continue
		}

		l.version++
		op.Version = l.version
		l.ops = append(l.ops, op)
		l.seen[op.OpID] = struct{}{}
		added = append(added, op.OpID)
	}

	if len(added) == 0 {
		return PushResult{Accepted: 0, NewVersion: l.version}, nil
	}

	pruned := l.prune()

	if err := l.persist(); err != nil {
		l.rollback(prevVersion, prevOps, added, pruned)
		return PushResult{}, errors.Wrap(err, "persisting the log")
	}

	log.WithFields(log.Fields{
		"after":      after,
		"received":   len(incoming),
		"accepted":   len(added),
		"newVersion": l.version,
	}).Debug("Push accepted.")

	return PushResult{Accepted: len(added), NewVersion: l.version}, nil
}

// prune drops the oldest operations past the retention cap and returns them.
// Pruned opIds are forgotten, so a very late retry of a pruned operation is
// accepted again.
func (l *Log) prune() []ops.Operation {
	overflow := len(l.ops) - l.maxLogOps
	if overflow <= 0 {
		return nil
	}

	pruned := l.ops[:overflow]
	for _, op := range pruned {
		delete(l.seen, op.OpID)
	}

	kept := make([]ops.Operation, len(l.ops)-overflow)
	copy(kept, l.ops[overflow:])
	l.ops = kept

	return pruned
}

func (l *Log) rollback(version int64, prevOps []ops.Operation, added []string, pruned []ops.Operation) {
	for _, id := range added {
		delete(l.seen, id)
	}
	for _, op := range pruned {
		l.seen[op.OpID] = struct{}{}
	}

	l.version = version
	l.ops = prevOps
}

func (l *Log) persist() error {
	return l.store.Save(State{
		Version:  l.version,
		Ops:      l.ops,
		Snapshot: l.snapshot,
	})
}

// Pull returns the retained operations with a version greater than after,
// oldest first. The limit is clamped to [1, MaxPullLimit] and zero selects
// the maximum.
func (l *Log) Pull(after int64, limit int) PullResult {
	l.mu.RLock()
	defer l.mu.RUnlock()

	limit = l.clampLimit(limit)

	start := sort.Search(len(l.ops), func(i int) bool {
		return l.ops[i].Version > after
	})
	end := start + limit
	if end > len(l.ops) {
		end = len(l.ops)
	}

	page := make([]ops.Operation, end-start)
	copy(page, l.ops[start:end])

	return PullResult{Ops: page, Latest: l.version}
}

func (l *Log) clampLimit(limit int) int {
	if limit == 0 {
		return l.maxPullLimit
	}
	if limit < 1 {
		return 1
	}
	if limit > l.maxPullLimit {
		return l.maxPullLimit
	}

	return limit
}

// Snapshot returns the most recently published snapshot
func (l *Log) Snapshot() (ops.Snapshot, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.snapshot == nil {
		return ops.Snapshot{}, ErrSnapshotNotFound
	}

	return *l.snapshot, nil
}

// PutSnapshot replaces the stored snapshot. The version defaults to the
// current log version and takenAt defaults to the current time.
func (l *Log) PutSnapshot(p SnapshotParams) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := &ops.Snapshot{
		Version: l.version,
		TakenAt: p.TakenAt,
		Data:    p.Data,
	}
	if p.Version != nil {
		s.Version = *p.Version
	}
	if s.TakenAt == "" {
		s.TakenAt = l.clock.Now().UTC().Format(time.RFC3339Nano)
	}
	if len(s.Data) == 0 {
		s.Data = json.RawMessage("null")
	}

	prev := l.snapshot
	l.snapshot = s

	if err := l.persist(); err != nil {
		l.snapshot = prev
		return 0, errors.Wrap(err, "persisting the snapshot")
	}

	log.WithFields(log.Fields{
		"version": s.Version,
		"takenAt": s.TakenAt,
	}).Info("Snapshot stored.")

	return s.Version, nil
}

// Stats returns the current version and the number of retained operations
func (l *Log) Stats() (int64, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.version, len(l.ops)
}

// MaxPullLimit returns the largest page size served by Pull
func (l *Log) MaxPullLimit() int {
	return l.maxPullLimit
}
