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

package engine

import (
	"github.com/bobbysync/bobbysync/pkg/cli/consts"
	"github.com/bobbysync/bobbysync/pkg/cli/database"
	"github.com/bobbysync/bobbysync/pkg/cli/identity"
	"github.com/bobbysync/bobbysync/pkg/cli/log"
	"github.com/bobbysync/bobbysync/pkg/cli/tree"
	"github.com/bobbysync/bobbysync/pkg/clock"
	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/pkg/errors"
)

// passFactor bounds the hydration work list to this many visits per node
const passFactor = 3

// HydrateResult describes a snapshot replay
type HydrateResult struct {
	// Nodes is the number of usable nodes in the snapshot
	Nodes int
	// Forced is the number of nodes whose parent never resolved
	Forced int
	// Malformed is the number of snapshot entries that could not be decoded
	Malformed int
	Summary   Summary
	// Skipped is true when the snapshot carried nothing to replay
	Skipped bool
}

// Hydrate replays a snapshot into the local tree. Nodes are created once
// their parent is known. Nodes still waiting when the work list is
// exhausted are created anyway and land in the conflict container. The
// cursor moves to the snapshot version.
func (s *Session) Hydrate(snap ops.Snapshot) (HydrateResult, error) {
	var ret HydrateResult

	work, malformed, err := snap.DecodeNodes()
	if err != nil {
		log.Debug("snapshot unusable: %s\n", err.Error())
		ret.Skipped = true
		return ret, nil
	}
	if malformed > 0 {
		log.Debug("skipping %d malformed snapshot nodes\n", malformed)
	}
	ret.Malformed = malformed
	ret.Nodes = len(work)
	if len(work) == 0 {
		ret.Skipped = true
		return ret, nil
	}

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	ts := clock.NowMillis(s.clock)
	s.withReplay(func() {
		budget := passFactor * len(work)
		for len(work) > 0 && budget > 0 {
			budget--

			n := work[0]
			work = work[1:]

			if !s.parentResolvable(n.ParentUID) {
				work = append(work, n)
				continue
			}

			ret.Summary.add(s.apply(n.CreateOperation(ops.OriginSnapshot, ts)))
		}

		ret.Forced = len(work)
		for _, n := range work {
			ret.Summary.add(s.apply(n.CreateOperation(ops.OriginSnapshot, ts)))
		}
	})

	if err := s.ids.Flush(); err != nil {
		return ret, errors.Wrap(err, "writing the identity map")
	}
	if _, err := s.AdvanceCursor(snap.Version); err != nil {
		return ret, err
	}
	if err := database.UpdateSystem(s.db, consts.SystemSnapshotHydrated, 1); err != nil {
		return ret, errors.Wrap(err, "marking hydration")
	}

	return ret, nil
}

func (s *Session) parentResolvable(parentUID *string) bool {
	uid := ops.StringValue(parentUID)
	if uid == "" || identity.IsRootUID(uid) {
		return true
	}

	_, ok := s.ids.LookupLocalID(uid)

	return ok
}

// BuildSnapshot describes every non-root node of the local tree
func (s *Session) BuildSnapshot() (ops.SnapshotData, error) {
	ret := ops.SnapshotData{Nodes: []ops.SnapshotNode{}}

	roots, err := s.tree.Roots()
	if err != nil {
		return ret, errors.Wrap(err, "listing roots")
	}

	for _, r := range roots {
		sub, err := s.tree.SubTree(r.ID)
		if err != nil {
			return ret, errors.Wrapf(err, "loading root %s", r.ID)
		}

		sub.Walk(func(n tree.Node) {
			if n.IsRoot() {
				return
			}

			ret.Nodes = append(ret.Nodes, ops.SnapshotNode{
				UID:       s.ids.EnsureUID(n.ID),
				ParentUID: ops.String(s.ids.EnsureUID(n.ParentID)),
				Index:     ops.Int(n.Index),
				Title:     ops.String(n.Title),
				Content:   n.Content,
				Type:      n.Type,
			})
		})
	}

	if err := s.ids.Flush(); err != nil {
		return ret, errors.Wrap(err, "writing the identity map")
	}

	return ret, nil
}
