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

// Package context defines the runtime context of the bobbysync client
package context

import (
	"net/http"
	"time"

	"github.com/bobbysync/bobbysync/pkg/cli/database"
	"github.com/bobbysync/bobbysync/pkg/clock"
)

// Paths contain directory definitions
type Paths struct {
	Home   string
	Config string
	Data   string
}

// BobbyCtx is a context holding the information of the current runtime
type BobbyCtx struct {
	Paths        Paths
	ConfigPath   string
	APIEndpoint  string
	AuthToken    string
	Version      string
	DB           *database.DB
	Clock        clock.Clock
	HTTPClient   *http.Client
	PushInterval time.Duration
	PullInterval time.Duration
	PullPageSize int
}

// Redact replaces private information from the context with a set of
// placeholder values.
func Redact(ctx BobbyCtx) BobbyCtx {
	var authToken string
	if ctx.AuthToken != "" {
		authToken = "1"
	} else {
		authToken = "0"
	}
	ctx.AuthToken = authToken

	return ctx
}
