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
	"github.com/bobbysync/bobbysync/pkg/cli/log"
	"github.com/bobbysync/bobbysync/pkg/cli/tree"
	"github.com/bobbysync/bobbysync/pkg/clock"
	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// capture turns a local tree event into a queued operation. Events raised
// while remote operations are replayed are ignored.
func (s *Session) capture(e tree.Event) {
	if s.Replaying() {
		return
	}

	op, ok := s.operationFor(e)
	if !ok {
		return
	}

	if err := s.record(op); err != nil {
		log.Errorf("recording %s %s: %s\n", op.Op, op.UID, err.Error())
	}
}

func (s *Session) operationFor(e tree.Event) (ops.Operation, bool) {
	n := e.Node
	if n.IsRoot() {
		return ops.Operation{}, false
	}

	op := ops.Operation{
		UID:       s.ids.EnsureUID(n.ID),
		Timestamp: clock.NowMillis(s.clock),
		DeviceID:  s.deviceID,
		OpID:      uuid.NewString(),
	}

	switch e.Kind {
	case tree.EventCreated:
		op.Op = ops.KindCreate
		op.ParentUID = s.parentUID(n.ParentID)
		op.Index = ops.Int(n.Index)
		op.Title = ops.String(n.Title)
		op.Content = n.Content
		op.Type = n.Type
	case tree.EventChanged:
		op.Op = ops.KindUpdate
		op.Title = ops.String(n.Title)
		op.Content = n.Content
		op.Type = n.Type
	case tree.EventMoved:
		op.Op = ops.KindMove
		op.ParentUID = s.parentUID(n.ParentID)
		op.Index = ops.Int(n.Index)
	case tree.EventRemoved:
		op.Op = ops.KindRemove
		op.Type = n.Type
		s.ids.DropTree(n)
	default:
		return ops.Operation{}, false
	}

	return op, true
}

func (s *Session) parentUID(parentID string) *string {
	if parentID == "" {
		return nil
	}

	return ops.String(s.ids.EnsureUID(parentID))
}

// record writes pending identity changes and then queues the operation
func (s *Session) record(op ops.Operation) error {
	if err := s.ids.Flush(); err != nil {
		return errors.Wrap(err, "writing the identity map")
	}
	if err := s.queue.Enqueue(op); err != nil {
		return errors.Wrap(err, "queueing")
	}

	log.Debug("queued %s %s (%s)\n", op.Op, op.UID, op.OpID)

	return nil
}
