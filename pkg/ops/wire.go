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

package ops

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// PushRequest is the payload for POST /v1/push
type PushRequest struct {
	After int64       `json:"after"`
	Ops   []Operation `json:"ops"`
}

// PushResponse is the response for POST /v1/push
type PushResponse struct {
	OK         bool  `json:"ok"`
	Accepted   int   `json:"accepted"`
	NewVersion int64 `json:"newVersion"`
}

// PullResponse is the response for GET /v1/pull
type PullResponse struct {
	Ops    []Operation `json:"ops"`
	Latest int64       `json:"latest"`

	// Malformed is the number of page entries the client dropped
	Malformed int `json:"-"`
	// Through is the highest version carried by any page entry, dropped
	// entries included
	Through int64 `json:"-"`
}

// PutSnapshotRequest is the payload for PUT /v1/snapshot
type PutSnapshotRequest struct {
	Version *int64          `json:"version,omitempty"`
	TakenAt string          `json:"takenAt,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// PutSnapshotResponse is the response for PUT /v1/snapshot
type PutSnapshotResponse struct {
	OK      bool  `json:"ok"`
	Version int64 `json:"version"`
}

// HealthResponse is the response for GET /healthz
type HealthResponse struct {
	OK      bool  `json:"ok"`
	Version int64 `json:"version"`
	Ops     int   `json:"ops"`
}

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Snapshot is a full-tree image published by a client
type Snapshot struct {
	Version int64           `json:"version"`
	TakenAt string          `json:"takenAt"`
	Data    json.RawMessage `json:"data"`
}

// SnapshotData is the payload carried in Snapshot.Data
type SnapshotData struct {
	Nodes []SnapshotNode `json:"nodes"`
}

// SnapshotNode is a single node in a snapshot
type SnapshotNode struct {
	UID       string   `json:"uid"`
	ParentUID *string  `json:"parentUid"`
	Index     *int     `json:"index"`
	Title     *string  `json:"title"`
	Content   *string  `json:"content"`
	Type      NodeType `json:"type,omitempty"`
}

// ErrNoSnapshotNodes is returned when a snapshot does not carry a node list
var ErrNoSnapshotNodes = errors.New("snapshot has no node list")

// Nodes decodes the usable nodes carried by the snapshot
func (s Snapshot) Nodes() ([]SnapshotNode, error) {
	nodes, _, err := s.DecodeNodes()

	return nodes, err
}

// DecodeNodes decodes the node list one entry at a time. Entries that do
// not decode into a node are dropped and counted in malformed.
func (s Snapshot) DecodeNodes() (nodes []SnapshotNode, malformed int, err error) {
	data := bytes.TrimSpace(s.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, 0, ErrNoSnapshotNodes
	}

	var raw struct {
		Nodes *[]json.RawMessage `json:"nodes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, errors.Wrap(err, "decoding snapshot data")
	}
	if raw.Nodes == nil {
		return nil, 0, ErrNoSnapshotNodes
	}

	nodes = []SnapshotNode{}
	for _, r := range *raw.Nodes {
		n, ok := DecodeSnapshotNode(r)
		if !ok {
			malformed++
			continue
		}

		nodes = append(nodes, n)
	}

	return nodes, malformed, nil
}

// CreateOperation converts the node into the create operation that
// reproduces it
func (n SnapshotNode) CreateOperation(origin string, timestamp int64) Operation {
	t := n.Type
	if t == "" {
		if n.Content != nil {
			t = TypeLeaf
		} else {
			t = TypeContainer
		}
	}

	return Operation{
		Op:        KindCreate,
		UID:       n.UID,
		ParentUID: n.ParentUID,
		Index:     n.Index,
		Title:     n.Title,
		Content:   n.Content,
		Type:      t,
		Timestamp: timestamp,
		DeviceID:  origin,
	}
}
