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

var (
	// ErrEmptyLog is an error for a missing operation log in the app configuration
	ErrEmptyLog = errors.New("No operation log was provided")
	// ErrEmptyClock is an error for missing clock in the app configuration
	ErrEmptyClock = errors.New("No clock was provided")
	// ErrInvalidBodyLimit is an error for a non-positive request body limit
	ErrInvalidBodyLimit = errors.New("Body limit must be positive")
)

// App is an application context
type App struct {
	Log            *oplog.Log
	Clock          clock.Clock
	AuthToken      string
	CORSOrigin     string
	BodyLimitBytes int64
	RateLimit      bool
}

// Validate validates the app configuration
func (a *App) Validate() error {
	if a.Log == nil {
		return ErrEmptyLog
	}
	if a.Clock == nil {
		return ErrEmptyClock
	}
	if a.BodyLimitBytes <= 0 {
		return ErrInvalidBodyLimit
	}

	return nil
}

// AuthRequired reports whether write endpoints require a bearer token
func (a *App) AuthRequired() bool {
	return a.AuthToken != ""
}
