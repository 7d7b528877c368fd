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

// Package tree defines the local bookmark tree that the sync engine
// replicates, together with a sqlite-backed implementation.
package tree

import (
	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a node does not exist
	ErrNotFound = errors.New("node not found")
	// ErrRootImmutable is returned when mutating one of the root containers
	ErrRootImmutable = errors.New("root containers cannot be changed")
	// ErrLeafParent is returned when placing a node under a leaf
	ErrLeafParent = errors.New("a leaf cannot have children")
	// ErrContainerContent is returned when setting content on a container
	ErrContainerContent = errors.New("a container has no content")
	// ErrNotEmpty is returned when removing a container that still has children
	ErrNotEmpty = errors.New("container is not empty")
	// ErrCycle is returned when moving a container under itself
	ErrCycle = errors.New("cannot move a container into its own subtree")
)

// Node is a container or a leaf in the local tree
type Node struct {
	ID       string
	ParentID string
	Index    int
	Title    string
	Content  *string
	Type     ops.NodeType

	// Children is only populated by SubTree
	Children []Node
}

// IsRoot reports whether the node is one of the top-level containers
func (n Node) IsRoot() bool {
	return n.ParentID == ""
}

// IsContainer reports whether the node can hold children
func (n Node) IsContainer() bool {
	return n.Type == ops.TypeContainer
}

// Walk calls fn for the node and every loaded descendant, parents first
func (n Node) Walk(fn func(Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// EventKind is the kind of a change notification
type EventKind int

const (
	// EventCreated is sent after a node is created
	EventCreated EventKind = iota + 1
	// EventChanged is sent after the title or content of a node changes
	EventChanged
	// EventRemoved is sent after a node and its subtree are removed
	EventRemoved
	// EventMoved is sent after a node changes parent or position
	EventMoved
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventChanged:
		return "changed"
	case EventRemoved:
		return "removed"
	case EventMoved:
		return "moved"
	}

	return "unknown"
}

// Event is a change notification. Node holds the state after the change,
// or the removed subtree for EventRemoved.
type Event struct {
	Kind        EventKind
	Node        Node
	OldParentID string
	OldIndex    int
}

// Listener receives change notifications
type Listener func(Event)

// CreateParams are the parameters for creating a node. A nil Index
// appends. An empty Type is inferred from Content.
type CreateParams struct {
	ParentID string
	Index    *int
	Title    string
	Content  *string
	Type     ops.NodeType
}

// UpdateParams holds the fields to change. Nil fields are left alone.
type UpdateParams struct {
	Title   *string
	Content *string
}

// Tree is the local tree storage the sync engine reads and mutates
type Tree interface {
	Roots() ([]Node, error)
	Get(id string) (Node, error)
	SubTree(id string) (Node, error)
	Create(p CreateParams) (Node, error)
	Update(id string, p UpdateParams) (Node, error)
	Move(id, parentID string, index *int) (Node, error)
	Remove(id string) error
	RemoveTree(id string) error
	Subscribe(l Listener) (cancel func())
}

// clampIndex returns the position for an insertion among n siblings
func clampIndex(index *int, n int) int {
	if index == nil || *index > n {
		return n
	}
	if *index < 0 {
		return 0
	}

	return *index
}
