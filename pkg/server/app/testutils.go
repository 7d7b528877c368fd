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

package app

import (
	"github.com/bobbysync/bobbysync/pkg/clock"
	"github.com/bobbysync/bobbysync/pkg/server/oplog"
	"github.com/pkg/errors"
)

// NewTest returns an app for a testing environment. The log is kept in
// memory and the store is returned so that tests can inspect or break it.
func NewTest() (App, *oplog.MemoryStore) {
	c := clock.NewMock()
	store := oplog.NewMemoryStore(oplog.State{})

	l, err := oplog.Open(store, oplog.Options{Clock: c})
	if err != nil {
		panic(errors.Wrap(err, "opening the test log"))
	}

	return App{
		Log:            l,
		Clock:          c,
		CORSOrigin:     "*",
		BodyLimitBytes: 5 << 20,
		RateLimit:      false,
	}, store
}
