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

// Package ops defines the operation records and wire payloads shared by
// the sync server and its clients.
package ops

// Kind is the kind of a tree mutation
type Kind string

const (
	// KindCreate creates a node, or upserts it if the uid is already known
	KindCreate Kind = "create"
	// KindUpdate changes the title or content of a node
	KindUpdate Kind = "update"
	// KindMove reparents or reorders a node
	KindMove Kind = "move"
	// KindRemove deletes a node together with its subtree
	KindRemove Kind = "remove"
)

// Valid reports whether k is one of the known operation kinds
func (k Kind) Valid() bool {
	switch k {
	case KindCreate, KindUpdate, KindMove, KindRemove:
		return true
	}

	return false
}

// OriginSnapshot is the device id carried by operations synthesized from a
// snapshot. No device uses it, so those operations are never self-originated.
const OriginSnapshot = "snapshot"

// NodeType distinguishes nodes that may hold children from nodes that
// carry content
type NodeType string

const (
	// TypeContainer is a node that may have children
	TypeContainer NodeType = "container"
	// TypeLeaf is a node that carries content and never has children
	TypeLeaf NodeType = "leaf"
)

// Operation is one entry of the replicated log
type Operation struct {
	Op        Kind     `json:"op"`
	UID       string   `json:"uid"`
	ParentUID *string  `json:"parentUid"`
	Index     *int     `json:"index"`
	Title     *string  `json:"title"`
	Content   *string  `json:"content"`
	Type      NodeType `json:"type,omitempty"`
	Timestamp int64    `json:"timestamp"`
	DeviceID  string   `json:"deviceId,omitempty"`
	OpID      string   `json:"opId"`
	Version   int64    `json:"version,omitempty"`
}

// IsContainer reports whether the operation describes a container. An
// operation without an explicit type is a container unless it carries content.
func (o Operation) IsContainer() bool {
	if o.Type == TypeContainer {
		return true
	}
	if o.Type == TypeLeaf {
		return false
	}

	return o.Content == nil
}

// Valid reports whether the operation carries the fields every consumer
// relies on
func (o Operation) Valid() bool {
	return o.UID != "" && o.Op.Valid()
}

// String returns a pointer to the given string
func String(s string) *string {
	return &s
}

// Int returns a pointer to the given int
func Int(i int) *int {
	return &i
}

// StringValue dereferences s, returning an empty string for nil
func StringValue(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
