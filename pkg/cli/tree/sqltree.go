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

package tree

import (
	"database/sql"
	"sort"
	"strconv"
	"sync"

	"github.com/bobbysync/bobbysync/pkg/cli/database"
	"github.com/bobbysync/bobbysync/pkg/clock"
	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/pkg/errors"
)

const nodeColumns = "id, parent_id, idx, title, content, type"

// SQLTree is a Tree stored in the nodes table of the local database.
// Listeners are notified synchronously after each mutation commits.
type SQLTree struct {
	db    *database.DB
	clock clock.Clock

	mu           sync.Mutex
	listeners    map[int]Listener
	nextListener int
}

var _ Tree = (*SQLTree)(nil)

// NewSQLTree returns a tree backed by the given database
func NewSQLTree(db *database.DB, c clock.Clock) *SQLTree {
	return &SQLTree{
		db:        db,
		clock:     c,
		listeners: map[int]Listener{},
	}
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrNotFound, "'%s'", id)
	}

	return n, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanNode(s scanner) (Node, error) {
	var id int64
	var parentID sql.NullInt64
	var content sql.NullString
	var n Node

	if err := s.Scan(&id, &parentID, &n.Index, &n.Title, &content, &n.Type); err != nil {
		return n, err
	}

	n.ID = formatID(id)
	if parentID.Valid {
		n.ParentID = formatID(parentID.Int64)
	}
	if content.Valid {
		n.Content = ops.String(content.String)
	}

	return n, nil
}

func getNode(db *database.DB, id string) (Node, error) {
	rowID, err := parseID(id)
	if err != nil {
		return Node{}, err
	}

	n, err := scanNode(db.QueryRow("SELECT "+nodeColumns+" FROM nodes WHERE id = ?", rowID))
	if err == sql.ErrNoRows {
		return Node{}, errors.Wrapf(ErrNotFound, "'%s'", id)
	}
	if err != nil {
		return Node{}, errors.Wrapf(err, "finding node %s", id)
	}

	return n, nil
}

// queryNodes reads every row before returning so the single connection is
// free for the next query
func queryNodes(db *database.DB, query string, args ...interface{}) ([]Node, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying nodes")
	}
	defer rows.Close()

	ret := []Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning node")
		}
		ret = append(ret, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating nodes")
	}

	return ret, nil
}

func countChildren(db *database.DB, parentID, exceptID int64) (int, error) {
	var n int
	if err := db.QueryRow("SELECT count(*) FROM nodes WHERE parent_id = ? AND id != ?", parentID, exceptID).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "counting children")
	}

	return n, nil
}

func (t *SQLTree) withTx(fn func(tx *database.DB) error) error {
	tx, err := t.db.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning a transaction")
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing a transaction")
	}

	return nil
}

// Subscribe registers a listener and returns a function that removes it
func (t *SQLTree) Subscribe(l Listener) func() {
	t.mu.Lock()
	id := t.nextListener
	t.nextListener++
	t.listeners[id] = l
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

func (t *SQLTree) notify(e Event) {
	t.mu.Lock()
	ids := make([]int, 0, len(t.listeners))
	for id := range t.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	ls := make([]Listener, 0, len(ids))
	for _, id := range ids {
		ls = append(ls, t.listeners[id])
	}
	t.mu.Unlock()

	for _, l := range ls {
		l(e)
	}
}

// Roots returns the top-level containers in order
func (t *SQLTree) Roots() ([]Node, error) {
	return queryNodes(t.db, "SELECT "+nodeColumns+" FROM nodes WHERE parent_id IS NULL ORDER BY idx")
}

// Get returns the node with the given id
func (t *SQLTree) Get(id string) (Node, error) {
	return getNode(t.db, id)
}

// Children returns the direct children of a node in order
func (t *SQLTree) Children(id string) ([]Node, error) {
	rowID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	return queryNodes(t.db, "SELECT "+nodeColumns+" FROM nodes WHERE parent_id = ? ORDER BY idx", rowID)
}

// SubTree returns the node with all of its descendants loaded
func (t *SQLTree) SubTree(id string) (Node, error) {
	n, err := getNode(t.db, id)
	if err != nil {
		return Node{}, err
	}

	if err := t.loadChildren(&n); err != nil {
		return Node{}, err
	}

	return n, nil
}

func (t *SQLTree) loadChildren(n *Node) error {
	if !n.IsContainer() {
		return nil
	}

	children, err := t.Children(n.ID)
	if err != nil {
		return errors.Wrapf(err, "loading children of %s", n.ID)
	}

	for i := range children {
		if err := t.loadChildren(&children[i]); err != nil {
			return err
		}
	}
	n.Children = children

	return nil
}

// Create inserts a node under the given parent
func (t *SQLTree) Create(p CreateParams) (Node, error) {
	n := Node{
		ParentID: p.ParentID,
		Title:    p.Title,
		Content:  p.Content,
		Type:     p.Type,
	}
	if n.Type == "" {
		if n.Content != nil {
			n.Type = ops.TypeLeaf
		} else {
			n.Type = ops.TypeContainer
		}
	}
	if n.IsContainer() {
		n.Content = nil
	} else if n.Content == nil {
		n.Content = ops.String("")
	}

	err := t.withTx(func(tx *database.DB) error {
		parent, err := getNode(tx, p.ParentID)
		if err != nil {
			return errors.Wrap(err, "finding the parent")
		}
		if !parent.IsContainer() {
			return ErrLeafParent
		}

		parentRowID, _ := parseID(parent.ID)
		count, err := countChildren(tx, parentRowID, 0)
		if err != nil {
			return err
		}
		n.Index = clampIndex(p.Index, count)

		if _, err := tx.Exec("UPDATE nodes SET idx = idx + 1 WHERE parent_id = ? AND idx >= ?", parentRowID, n.Index); err != nil {
			return errors.Wrap(err, "shifting siblings")
		}

		now := t.clock.Now().UnixMilli()
		res, err := tx.Exec(`INSERT INTO nodes (parent_id, idx, title, content, type, added_on, edited_on)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, parentRowID, n.Index, n.Title, n.Content, n.Type, now, now)
		if err != nil {
			return errors.Wrap(err, "inserting the node")
		}

		id, err := res.LastInsertId()
		if err != nil {
			return errors.Wrap(err, "getting the node id")
		}
		n.ID = formatID(id)

		return nil
	})
	if err != nil {
		return Node{}, err
	}

	t.notify(Event{Kind: EventCreated, Node: n})

	return n, nil
}

// Update changes the title or content of a node. No event is sent when
// nothing changes.
func (t *SQLTree) Update(id string, p UpdateParams) (Node, error) {
	n, err := getNode(t.db, id)
	if err != nil {
		return Node{}, err
	}
	if n.IsRoot() {
		return Node{}, ErrRootImmutable
	}
	if p.Content != nil && n.IsContainer() {
		return Node{}, ErrContainerContent
	}

	var changed bool
	if p.Title != nil && *p.Title != n.Title {
		n.Title = *p.Title
		changed = true
	}
	if p.Content != nil && ops.StringValue(n.Content) != *p.Content {
		n.Content = ops.String(*p.Content)
		changed = true
	}
	if !changed {
		return n, nil
	}

	rowID, _ := parseID(n.ID)
	if _, err := t.db.Exec("UPDATE nodes SET title = ?, content = ?, edited_on = ? WHERE id = ?",
		n.Title, n.Content, t.clock.Now().UnixMilli(), rowID); err != nil {
		return Node{}, errors.Wrapf(err, "updating node %s", id)
	}

	t.notify(Event{Kind: EventChanged, Node: n})

	return n, nil
}

// isAncestor reports whether ancestorID is id or one of its ancestors
func isAncestor(db *database.DB, ancestorID, id string) (bool, error) {
	cur := id
	for cur != "" {
		if cur == ancestorID {
			return true, nil
		}

		n, err := getNode(db, cur)
		if err != nil {
			return false, err
		}
		cur = n.ParentID
	}

	return false, nil
}

// Move places a node under parentID at the given position. An empty
// parentID keeps the current parent. The index is the final position among
// the new siblings. No event is sent when the node is already there.
func (t *SQLTree) Move(id, parentID string, index *int) (Node, error) {
	var n Node
	var oldParentID string
	var oldIndex int
	var moved bool

	err := t.withTx(func(tx *database.DB) error {
		var err error
		n, err = getNode(tx, id)
		if err != nil {
			return err
		}
		if n.IsRoot() {
			return ErrRootImmutable
		}
		if parentID == "" {
			parentID = n.ParentID
		}

		parent, err := getNode(tx, parentID)
		if err != nil {
			return errors.Wrap(err, "finding the parent")
		}
		if !parent.IsContainer() {
			return ErrLeafParent
		}

		cycle, err := isAncestor(tx, n.ID, parent.ID)
		if err != nil {
			return errors.Wrap(err, "checking ancestors")
		}
		if cycle {
			return ErrCycle
		}

		rowID, _ := parseID(n.ID)
		oldParentRowID, _ := parseID(n.ParentID)
		parentRowID, _ := parseID(parent.ID)

		count, err := countChildren(tx, parentRowID, rowID)
		if err != nil {
			return err
		}
		target := clampIndex(index, count)
		if parent.ID == n.ParentID && target == n.Index {
			return nil
		}

		if _, err := tx.Exec("UPDATE nodes SET idx = idx - 1 WHERE parent_id = ? AND idx > ?", oldParentRowID, n.Index); err != nil {
			return errors.Wrap(err, "closing the gap")
		}
		if _, err := tx.Exec("UPDATE nodes SET idx = idx + 1 WHERE parent_id = ? AND idx >= ? AND id != ?", parentRowID, target, rowID); err != nil {
			return errors.Wrap(err, "shifting siblings")
		}
		if _, err := tx.Exec("UPDATE nodes SET parent_id = ?, idx = ?, edited_on = ? WHERE id = ?",
			parentRowID, target, t.clock.Now().UnixMilli(), rowID); err != nil {
			return errors.Wrap(err, "moving the node")
		}

		oldParentID, oldIndex = n.ParentID, n.Index
		n.ParentID, n.Index = parent.ID, target
		moved = true

		return nil
	})
	if err != nil {
		return Node{}, err
	}

	if moved {
		t.notify(Event{Kind: EventMoved, Node: n, OldParentID: oldParentID, OldIndex: oldIndex})
	}

	return n, nil
}

func (t *SQLTree) remove(n Node) error {
	if n.IsRoot() {
		return ErrRootImmutable
	}

	err := t.withTx(func(tx *database.DB) error {
		var rowIDs []int64
		n.Walk(func(d Node) {
			id, _ := parseID(d.ID)
			rowIDs = append(rowIDs, id)
		})

		for _, id := range rowIDs {
			if _, err := tx.Exec("DELETE FROM nodes WHERE id = ?", id); err != nil {
				return errors.Wrapf(err, "deleting node %d", id)
			}
		}

		parentRowID, _ := parseID(n.ParentID)
		if _, err := tx.Exec("UPDATE nodes SET idx = idx - 1 WHERE parent_id = ? AND idx > ?", parentRowID, n.Index); err != nil {
			return errors.Wrap(err, "closing the gap")
		}

		return nil
	})
	if err != nil {
		return err
	}

	t.notify(Event{Kind: EventRemoved, Node: n, OldParentID: n.ParentID, OldIndex: n.Index})

	return nil
}

// Remove deletes a leaf or an empty container
func (t *SQLTree) Remove(id string) error {
	n, err := t.SubTree(id)
	if err != nil {
		return err
	}
	if n.IsRoot() {
		return ErrRootImmutable
	}
	if len(n.Children) > 0 {
		return ErrNotEmpty
	}

	return t.remove(n)
}

// RemoveTree deletes a node and its whole subtree
func (t *SQLTree) RemoveTree(id string) error {
	n, err := t.SubTree(id)
	if err != nil {
		return err
	}

	return t.remove(n)
}
