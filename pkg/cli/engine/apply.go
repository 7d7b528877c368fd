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
	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/pkg/errors"
)

// ConflictContainerTitle is the title of the container that receives
// nodes whose parent is not known locally
const ConflictContainerTitle = "BobbySync Conflicts"

// Outcome is the result of applying one operation
type Outcome int

const (
	// OutcomeApplied means the operation was applied, or was already reflected
	OutcomeApplied Outcome = iota
	// OutcomeSelf means the operation came from this device
	OutcomeSelf
	// OutcomeMalformed means the operation lacks a uid or a known kind
	OutcomeMalformed
	// OutcomeUnmapped means the operation targets a node not present locally
	OutcomeUnmapped
	// OutcomeRoot means the operation targets a root container
	OutcomeRoot
	// OutcomeFailed means the local tree rejected the change
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeSelf:
		return "self"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeUnmapped:
		return "unmapped"
	case OutcomeRoot:
		return "root"
	case OutcomeFailed:
		return "failed"
	}

	return "unknown"
}

// Summary counts the outcomes of a batch
type Summary struct {
	Applied int
	Skipped int
	Failed  int
}

func (s *Summary) add(o Outcome) {
	switch o {
	case OutcomeApplied:
		s.Applied++
	case OutcomeFailed:
		s.Failed++
	default:
		s.Skipped++
	}
}

// Apply applies one remote operation to the local tree. Identity changes
// stay pending until the next flush.
func (s *Session) Apply(op ops.Operation) Outcome {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	return s.apply(op)
}

// ApplyAll applies the operations in order and writes the identity map.
// Individual failures are logged and skipped.
func (s *Session) ApplyAll(batch []ops.Operation) (Summary, error) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	var sum Summary
	for _, op := range batch {
		sum.add(s.apply(op))
	}

	if err := s.ids.Flush(); err != nil {
		return sum, errors.Wrap(err, "writing the identity map")
	}

	return sum, nil
}

func (s *Session) apply(op ops.Operation) Outcome {
	if !op.Valid() {
		log.Debug("skipping malformed operation %s\n", op.OpID)
		return OutcomeMalformed
	}
	if op.DeviceID != "" && op.DeviceID == s.deviceID {
		return OutcomeSelf
	}
	if identity.IsRootUID(op.UID) {
		return OutcomeRoot
	}

	var out Outcome
	var err error
	s.withReplay(func() {
		switch op.Op {
		case ops.KindCreate:
			out, err = s.applyCreate(op)
		case ops.KindUpdate:
			out, err = s.applyUpdate(op)
		case ops.KindMove:
			out, err = s.applyMove(op)
		case ops.KindRemove:
			out, err = s.applyRemove(op)
		}
	})

	if err != nil {
		log.Warnf("%s %s failed: %s\n", op.Op, op.UID, err.Error())
		return OutcomeFailed
	}

	return out
}

// existingLocalID returns the local id of a uid whose node still exists.
// A mapping that points to a missing node is dropped.
func (s *Session) existingLocalID(uid string) (tree.Node, bool, error) {
	localID, ok := s.ids.LookupLocalID(uid)
	if !ok {
		return tree.Node{}, false, nil
	}

	n, err := s.tree.Get(localID)
	if errors.Cause(err) == tree.ErrNotFound {
		s.ids.Drop(localID)
		return tree.Node{}, false, nil
	}
	if err != nil {
		return tree.Node{}, false, errors.Wrapf(err, "finding node %s", localID)
	}

	return n, true, nil
}

func (s *Session) applyCreate(op ops.Operation) (Outcome, error) {
	isContainer := op.IsContainer()

	parentID, err := s.resolveParent(op.ParentUID)
	if err != nil {
		return OutcomeFailed, err
	}

	n, ok, err := s.existingLocalID(op.UID)
	if err != nil {
		return OutcomeFailed, err
	}
	if ok {
		if err := s.updateNode(n, op, isContainer); err != nil {
			return OutcomeFailed, err
		}
		if err := s.moveNode(n.ID, parentID, op.Index); err != nil {
			return OutcomeFailed, err
		}

		return OutcomeApplied, nil
	}

	p := tree.CreateParams{
		ParentID: parentID,
		Index:    op.Index,
		Title:    ops.StringValue(op.Title),
		Type:     ops.TypeContainer,
	}
	if !isContainer {
		p.Type = ops.TypeLeaf
		p.Content = op.Content
	}

	created, err := s.tree.Create(p)
	if err != nil {
		return OutcomeFailed, errors.Wrap(err, "creating the node")
	}
	s.ids.Set(created.ID, op.UID)

	return OutcomeApplied, nil
}

func (s *Session) applyUpdate(op ops.Operation) (Outcome, error) {
	n, ok, err := s.existingLocalID(op.UID)
	if err != nil {
		return OutcomeFailed, err
	}
	if !ok {
		return OutcomeUnmapped, nil
	}

	if err := s.updateNode(n, op, op.IsContainer()); err != nil {
		return OutcomeFailed, err
	}

	return OutcomeApplied, nil
}

func (s *Session) applyMove(op ops.Operation) (Outcome, error) {
	n, ok, err := s.existingLocalID(op.UID)
	if err != nil {
		return OutcomeFailed, err
	}
	if !ok {
		return OutcomeUnmapped, nil
	}

	parentID, err := s.resolveParent(op.ParentUID)
	if err != nil {
		return OutcomeFailed, err
	}
	if err := s.moveNode(n.ID, parentID, op.Index); err != nil {
		return OutcomeFailed, err
	}

	return OutcomeApplied, nil
}

func (s *Session) applyRemove(op ops.Operation) (Outcome, error) {
	n, ok, err := s.existingLocalID(op.UID)
	if err != nil {
		return OutcomeFailed, err
	}
	if !ok {
		return OutcomeUnmapped, nil
	}

	sub, err := s.tree.SubTree(n.ID)
	if err != nil {
		return OutcomeFailed, errors.Wrap(err, "loading the subtree")
	}

	if sub.IsContainer() {
		err = s.tree.RemoveTree(sub.ID)
	} else {
		err = s.tree.Remove(sub.ID)
	}
	if err != nil {
		return OutcomeFailed, errors.Wrap(err, "removing the node")
	}
	s.ids.DropTree(sub)

	return OutcomeApplied, nil
}

// updateNode writes the title and content carried by op. Content is only
// written when both the operation and the local node are leaves.
func (s *Session) updateNode(n tree.Node, op ops.Operation, isContainer bool) error {
	p := tree.UpdateParams{Title: op.Title}
	if !isContainer && !n.IsContainer() {
		p.Content = op.Content
	}
	if p.Title == nil && p.Content == nil {
		return nil
	}

	if _, err := s.tree.Update(n.ID, p); err != nil {
		return errors.Wrap(err, "updating the node")
	}

	return nil
}

// moveNode repositions a node unless it already sits at the target
func (s *Session) moveNode(localID, parentID string, index *int) error {
	n, err := s.tree.Get(localID)
	if err != nil {
		return errors.Wrap(err, "finding the node")
	}

	needsParent := parentID != "" && n.ParentID != parentID
	needsIndex := index != nil && n.Index != *index
	if !needsParent && !needsIndex {
		return nil
	}

	if _, err := s.tree.Move(localID, parentID, index); err != nil {
		return errors.Wrap(err, "moving the node")
	}

	return nil
}

// resolveParent returns the local container for a parent uid. A null uid
// means the default root. A uid that is unknown locally, or that points to
// a leaf, resolves to the conflict container.
func (s *Session) resolveParent(parentUID *string) (string, error) {
	uid := ops.StringValue(parentUID)
	if uid == "" {
		return identity.DefaultRootID, nil
	}

	n, ok, err := s.existingLocalID(uid)
	if err != nil {
		return "", err
	}
	if ok && n.IsContainer() {
		return n.ID, nil
	}

	log.Debug("parent %s is not available, using the conflict container\n", uid)

	return s.ensureConflictContainer()
}

// ensureConflictContainer returns the conflict container, creating it
// under the default root if the cached one no longer exists
func (s *Session) ensureConflictContainer() (string, error) {
	var cached string
	err := database.GetSystem(s.db, consts.SystemConflictContainerID, &cached)
	if err != nil && errors.Cause(err) != database.ErrSystemKeyMissing {
		return "", errors.Wrap(err, "getting the conflict container")
	}

	if cached != "" {
		n, err := s.tree.Get(cached)
		if err == nil && n.IsContainer() {
			return cached, nil
		}
		if err != nil && errors.Cause(err) != tree.ErrNotFound {
			return "", errors.Wrap(err, "finding the conflict container")
		}
	}

	n, err := s.tree.Create(tree.CreateParams{
		ParentID: identity.DefaultRootID,
		Title:    ConflictContainerTitle,
		Type:     ops.TypeContainer,
	})
	if err != nil {
		return "", errors.Wrap(err, "creating the conflict container")
	}

	if err := database.UpdateSystem(s.db, consts.SystemConflictContainerID, n.ID); err != nil {
		return "", errors.Wrap(err, "saving the conflict container")
	}

	return n.ID, nil
}
