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

// Package storage provides a single-file JSON store for the operation log
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/bobbysync/bobbysync/pkg/server/oplog"
	"github.com/pkg/errors"
)

// DefaultFilename is the name of the store file inside the data directory
const DefaultFilename = "store.json"

// FileStore keeps the whole log state in one JSON document. Every save
// rewrites the document through a temporary file and a rename.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store backed by the file at the given path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the location of the store file
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the state from disk. A missing file yields an empty state.
func (s *FileStore) Load() (oplog.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return oplog.State{}, nil
		}

		return oplog.State{}, errors.Wrapf(err, "reading %s", s.path)
	}

	var state oplog.State
	if err := json.Unmarshal(b, &state); err != nil {
		return oplog.State{}, errors.Wrapf(err, "decoding %s", s.path)
	}

	return state, nil
}

// Save writes the state to disk and syncs it before returning
func (s *FileStore) Save(state oplog.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state.Ops == nil {
		state.Ops = []ops.Operation{}
	}

	b, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "encoding state")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "creating directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".store-*.json")
	if err != nil {
		return errors.Wrap(err, "creating temporary file")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "writing temporary file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "syncing temporary file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "closing temporary file")
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "renaming to %s", s.path)
	}

	return nil
}
