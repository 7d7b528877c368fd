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

package oplog

import (
	"sync"

	"github.com/bobbysync/bobbysync/pkg/ops"
)

// MemoryStore keeps the state in memory. It is used in tests and when the
// server runs without persistence.
type MemoryStore struct {
	mu    sync.Mutex
	state State
	saves int

	// Err, if set, is returned by Save
	Err error
}

// NewMemoryStore returns a store preloaded with the given state
func NewMemoryStore(initial State) *MemoryStore {
	return &MemoryStore{state: initial}
}

// Load returns the last saved state
func (s *MemoryStore) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyState(s.state), nil
}

// Save records the given state unless Err is set
func (s *MemoryStore) Save(state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}

	s.state = copyState(state)
	s.saves++

	return nil
}

// Saves returns the number of successful saves
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saves
}

func copyState(s State) State {
	ret := State{Version: s.Version}
	if s.Ops != nil {
		ret.Ops = make([]ops.Operation, len(s.Ops))
		copy(ret.Ops, s.Ops)
	}
	if s.Snapshot != nil {
		snap := *s.Snapshot
		ret.Snapshot = &snap
	}

	return ret
}
