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

package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/bobbysync/bobbysync/pkg/server/log"
)

// GetCredential extracts the bearer token from the Authorization header
func GetCredential(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}

	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// Auth is an authentication middleware. It lets every request through if
// no token is configured.
func Auth(token string, next http.HandlerFunc) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		credential := GetCredential(r)
		if subtle.ConstantTimeCompare([]byte(credential), []byte(token)) != 1 {
			log.WithFields(log.Fields{
				"path": r.URL.Path,
				"ip":   lookupIP(r),
			}).Warn("Unauthorized request.")
			RespondUnauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}
