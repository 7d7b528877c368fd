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

package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/bobbysync/bobbysync/pkg/assert"
	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/bobbysync/bobbysync/pkg/server/oplog"
)

func TestFileStore_missingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nested", DefaultFilename))

	state, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, state.Version, int64(0), "version mismatch")
	assert.Equal(t, len(state.Ops), 0, "ops mismatch")
	assert.Equal(t, state.Snapshot == nil, true, "snapshot should be empty")
}

func TestFileStore_roundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFilename)
	s := NewFileStore(path)

	state := oplog.State{
		Version: 2,
		Ops: []ops.Operation{
			{Op: ops.KindCreate, UID: "a", Title: ops.String("A"), OpID: "op-1", Version: 1, Timestamp: 10},
			{Op: ops.KindMove, UID: "a", ParentUID: ops.String("b"), Index: ops.Int(0), OpID: "op-2", Version: 2, Timestamp: 11},
		},
		Snapshot: &ops.Snapshot{Version: 2, TakenAt: "2025-01-01T00:00:00Z", Data: json.RawMessage(`{"nodes":[]}`)},
	}
	if err := s.Save(state); err != nil {
		t.Fatal(err)
	}

	got, err := NewFileStore(path).Load()
	if err != nil {
		t.Fatal(err)
	}

	assert.DeepEqual(t, got, state, "state mismatch")

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(entries), 1, "temporary files should not be left behind")
}

func TestFileStore_corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFilename)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewFileStore(path).Load()
	assert.NotEqual(t, err, nil, "expected an error")
}

func TestFileStore_withLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFilename)

	l, err := oplog.Open(NewFileStore(path), oplog.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Push(0, []ops.Operation{{Op: ops.KindCreate, UID: "a", OpID: "op-1"}}); err != nil {
		t.Fatal(err)
	}

	reopened, err := oplog.Open(NewFileStore(path), oplog.Options{})
	if err != nil {
		t.Fatal(err)
	}

	version, count := reopened.Stats()
	assert.Equal(t, version, int64(1), "version mismatch")
	assert.Equal(t, count, 1, "count mismatch")
}
