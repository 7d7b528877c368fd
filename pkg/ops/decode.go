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
	"math"
	"strconv"
)

// looseOperation accepts whatever a client sends for the loosely typed fields
type looseOperation struct {
	Op        string          `json:"op"`
	UID       string          `json:"uid"`
	ParentUID *string         `json:"parentUid"`
	Index     json.RawMessage `json:"index"`
	Title     *string         `json:"title"`
	Content   *string         `json:"content"`
	Type      string          `json:"type"`
	Timestamp json.RawMessage `json:"timestamp"`
	DeviceID  *string         `json:"deviceId"`
	OpID      string          `json:"opId"`
	Version   json.RawMessage `json:"version"`
}

// DecodeLoose decodes a pushed operation. Non-numeric index and timestamp
// values are discarded rather than rejected. It returns false if the entry
// is not an object or lacks a known kind or a uid.
func DecodeLoose(raw json.RawMessage) (Operation, bool) {
	var lo looseOperation
	if err := json.Unmarshal(raw, &lo); err != nil {
		return Operation{}, false
	}

	op := Operation{
		Op:        Kind(lo.Op),
		UID:       lo.UID,
		ParentUID: lo.ParentUID,
		Title:     lo.Title,
		Content:   lo.Content,
		DeviceID:  StringValue(lo.DeviceID),
		OpID:      lo.OpID,
	}
	if !op.Valid() {
		return Operation{}, false
	}

	switch NodeType(lo.Type) {
	case TypeContainer, TypeLeaf:
		op.Type = NodeType(lo.Type)
	}

	if n, ok := ParseNumber(lo.Index); ok {
		i := int(n)
		op.Index = &i
	}
	if n, ok := ParseNumber(lo.Timestamp); ok {
		op.Timestamp = int64(n)
	}
	if n, ok := ParseNumber(lo.Version); ok && n > 0 {
		op.Version = int64(n)
	}

	return op, true
}

// EntryVersion reads the version of a log entry without decoding the rest
// of it. It returns 0 when the entry carries no usable version.
func EntryVersion(raw json.RawMessage) int64 {
	var e struct {
		Version json.RawMessage `json:"version"`
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return 0
	}

	n, ok := ParseNumber(e.Version)
	if !ok || n < 0 {
		return 0
	}

	return int64(n)
}

// ParseNumber reads a JSON number, or a string holding one. It returns
// false for null, absent and non-finite values.
func ParseNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}

		n, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
	}

	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}

	return n, true
}

type looseSnapshotNode struct {
	UID       string          `json:"uid"`
	ParentUID *string         `json:"parentUid"`
	Index     json.RawMessage `json:"index"`
	Title     *string         `json:"title"`
	Content   *string         `json:"content"`
	Type      string          `json:"type"`
}

// DecodeSnapshotNode decodes one snapshot node. A non-numeric index is
// discarded and an unknown type is left for inference. It returns false
// if the entry is not an object, has a mistyped field or lacks a uid.
func DecodeSnapshotNode(raw json.RawMessage) (SnapshotNode, bool) {
	var ln looseSnapshotNode
	if err := json.Unmarshal(raw, &ln); err != nil {
		return SnapshotNode{}, false
	}
	if ln.UID == "" {
		return SnapshotNode{}, false
	}

	n := SnapshotNode{
		UID:       ln.UID,
		ParentUID: ln.ParentUID,
		Title:     ln.Title,
		Content:   ln.Content,
	}

	switch NodeType(ln.Type) {
	case TypeContainer, TypeLeaf:
		n.Type = NodeType(ln.Type)
	}

	if v, ok := ParseNumber(ln.Index); ok {
		i := int(v)
		n.Index = &i
	}

	return n, true
}
