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

// Package middleware provides the HTTP middlewares of the sync server
package middleware

import (
	"net/http"

	"github.com/bobbysync/bobbysync/pkg/server/app"
)

// Middleware is a middleware applied to a route handler
type Middleware func(h http.HandlerFunc, app *app.App, rateLimit bool) http.Handler

// BodyLimit caps the size of request bodies
func BodyLimit(limit int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}

		next.ServeHTTP(w, r)
	})
}

// APIMw is the middleware for the API routes
func APIMw(h http.HandlerFunc, app *app.App, rateLimit bool) http.Handler {
	return BodyLimit(app.BodyLimitBytes, ApplyLimit(h, rateLimit && app.RateLimit))
}

// Global is the middleware applied to every request
func Global(h http.Handler, app *app.App) http.Handler {
	return Logging(CORS(app.CORSOrigin, h))
}
