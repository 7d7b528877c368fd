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

// Package syncer runs the push, pull and bootstrap cycles of a device
package syncer

import (
	"sync/atomic"

	"github.com/bobbysync/bobbysync/pkg/cli/consts"
	"github.com/bobbysync/bobbysync/pkg/cli/database"
	"github.com/bobbysync/bobbysync/pkg/cli/engine"
	"github.com/bobbysync/bobbysync/pkg/cli/log"
	"github.com/bobbysync/bobbysync/pkg/cli/queue"
	"github.com/bobbysync/bobbysync/pkg/clock"
	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/pkg/errors"
)

// DefaultPageSize is the pull page size used when none is configured
const DefaultPageSize = 200

// ErrInFlight is returned when a cycle is triggered while the same cycle
// is still running
var ErrInFlight = errors.New("cycle already in flight")

// Remote is the server side of the sync protocol
type Remote interface {
	Push(after int64, batch []ops.Operation) (ops.PushResponse, error)
	Pull(after int64, limit int) (ops.PullResponse, error)
	GetSnapshot() (*ops.Snapshot, error)
}

// Driver moves operations between a session and a remote. Each cycle is
// guarded so that overlapping triggers collapse into the running one.
type Driver struct {
	session  *engine.Session
	remote   Remote
	db       *database.DB
	clock    clock.Clock
	pageSize int

	pushing atomic.Bool
	pulling atomic.Bool
}

// Params are the parameters of a driver
type Params struct {
	Session  *engine.Session
	Remote   Remote
	DB       *database.DB
	Clock    clock.Clock
	PageSize int
}

// New returns a driver
func New(p Params) *Driver {
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Driver{
		session:  p.Session,
		remote:   p.Remote,
		db:       p.DB,
		clock:    p.Clock,
		pageSize: pageSize,
	}
}

// PushResult describes a push cycle
type PushResult struct {
	Sent      int
	Accepted  int
	Confirmed int
	Cursor    int64
}

// Push sends the queued operations. The queue and the cursor are left
// untouched when the server does not acknowledge the batch.
func (d *Driver) Push() (PushResult, error) {
	var ret PushResult

	if !d.pushing.CompareAndSwap(false, true) {
		return ret, ErrInFlight
	}
	defer d.pushing.Store(false)

	q := d.session.Queue()
	entries, err := q.Snapshot()
	if err != nil {
		return ret, errors.Wrap(err, "reading the queue")
	}
	if len(entries) == 0 {
		return ret, nil
	}

	cursor, err := d.session.Cursor()
	if err != nil {
		return ret, errors.Wrap(err, "getting the cursor")
	}

	res, err := d.remote.Push(cursor, queue.Operations(entries))
	if err != nil {
		return ret, errors.Wrap(err, "sending the queue")
	}
	ret.Sent = len(entries)
	ret.Accepted = res.Accepted

	if ret.Confirmed, err = q.Confirm(entries); err != nil {
		return ret, errors.Wrap(err, "confirming the batch")
	}
	if _, err := d.session.AdvanceCursor(res.NewVersion); err != nil {
		return ret, err
	}
	if ret.Cursor, err = d.session.Cursor(); err != nil {
		return ret, errors.Wrap(err, "getting the cursor")
	}

	log.Debug("pushed %d operations, %d accepted, cursor %d\n", ret.Sent, ret.Accepted, ret.Cursor)

	return ret, nil
}

// PullResult describes a pull cycle
type PullResult struct {
	Pages   int
	Summary engine.Summary
	Cursor  int64
	Latest  int64
}

// Pull applies remote operations page by page. The cursor advances after
// each page, so a failure leaves it at the last applied page.
func (d *Driver) Pull() (PullResult, error) {
	var ret PullResult

	if !d.pulling.CompareAndSwap(false, true) {
		return ret, ErrInFlight
	}
	defer d.pulling.Store(false)

	if err := d.session.Refresh(); err != nil {
		return ret, errors.Wrap(err, "refreshing the identity map")
	}

	for {
		cursor, err := d.session.Cursor()
		if err != nil {
			return ret, errors.Wrap(err, "getting the cursor")
		}
		ret.Cursor = cursor

		page, err := d.remote.Pull(cursor, d.pageSize)
		if err != nil {
			return ret, errors.Wrapf(err, "pulling after %d", cursor)
		}
		ret.Pages++
		ret.Latest = page.Latest

		sum, err := d.session.ApplyAll(page.Ops)
		ret.Summary.Applied += sum.Applied
		ret.Summary.Skipped += sum.Skipped
		ret.Summary.Failed += sum.Failed
		if err != nil {
			return ret, errors.Wrap(err, "applying the page")
		}
		ret.Summary.Skipped += page.Malformed

		// the server may cap the page below the requested size, so only
		// reaching latest ends the cycle
		next := maxVersion(page.Ops)
		if page.Through > next {
			next = page.Through
		}
		empty := len(page.Ops) == 0 && page.Malformed == 0
		done := empty || next >= page.Latest
		if empty && page.Latest > next {
			next = page.Latest
		}
		if _, err := d.session.AdvanceCursor(next); err != nil {
			return ret, err
		}
		ret.Cursor, err = d.session.Cursor()
		if err != nil {
			return ret, errors.Wrap(err, "getting the cursor")
		}

		// a full page that does not move the cursor would loop forever
		if done || ret.Cursor <= cursor {
			break
		}
	}

	log.Debug("pulled %d pages, applied %d, cursor %d\n", ret.Pages, ret.Summary.Applied, ret.Cursor)

	return ret, nil
}

func maxVersion(batch []ops.Operation) int64 {
	var ret int64
	for _, op := range batch {
		if op.Version > ret {
			ret = op.Version
		}
	}

	return ret
}

// BootstrapResult describes a bootstrap
type BootstrapResult struct {
	// Ran is false when the device did not need a bootstrap or the server
	// had no usable snapshot
	Ran     bool
	Hydrate engine.HydrateResult
}

// Bootstrap hydrates the tree from the server snapshot when the device
// has never pulled nor hydrated
func (d *Driver) Bootstrap() (BootstrapResult, error) {
	var ret BootstrapResult

	if !d.pulling.CompareAndSwap(false, true) {
		return ret, ErrInFlight
	}
	defer d.pulling.Store(false)

	needed, err := d.session.NeedsBootstrap()
	if err != nil {
		return ret, err
	}
	if !needed {
		return ret, nil
	}

	snap, err := d.remote.GetSnapshot()
	if err != nil {
		return ret, errors.Wrap(err, "fetching the snapshot")
	}
	if snap == nil {
		log.Debug("no snapshot on the server\n")
		return ret, nil
	}

	if err := d.session.Refresh(); err != nil {
		return ret, errors.Wrap(err, "refreshing the identity map")
	}

	ret.Hydrate, err = d.session.Hydrate(*snap)
	if err != nil {
		return ret, errors.Wrap(err, "hydrating")
	}
	ret.Ran = !ret.Hydrate.Skipped

	return ret, nil
}

// SyncResult describes a full sync
type SyncResult struct {
	Bootstrap BootstrapResult
	Pull      PullResult
	Push      PushResult
}

// Sync bootstraps if needed, pulls and then pushes
func (d *Driver) Sync() (SyncResult, error) {
	var ret SyncResult
	var err error

	if ret.Bootstrap, err = d.Bootstrap(); err != nil {
		return ret, errors.Wrap(err, "bootstrapping")
	}
	if ret.Pull, err = d.Pull(); err != nil {
		return ret, errors.Wrap(err, "pulling")
	}
	if ret.Push, err = d.Push(); err != nil {
		return ret, errors.Wrap(err, "pushing")
	}

	if d.db != nil && d.clock != nil {
		if err := database.UpdateSystem(d.db, consts.SystemLastSyncAt, d.clock.Now().Unix()); err != nil {
			return ret, errors.Wrap(err, "updating last sync at")
		}
	}

	return ret, nil
}
