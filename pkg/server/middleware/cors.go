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
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// corsMaxAge is how long browsers may cache a preflight answer, in seconds
const corsMaxAge = 86400

var (
	corsMethods = []string{"GET", "POST", "PUT", "OPTIONS", "HEAD"}
	corsHeaders = []string{"Content-Type", "Authorization", "X-Requested-With"}
)

// allowedOrigins splits a comma separated origin setting. An empty
// setting allows any origin.
func allowedOrigins(origin string) []string {
	var ret []string
	for _, o := range strings.Split(origin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			ret = append(ret, o)
		}
	}
	if len(ret) == 0 {
		return []string{"*"}
	}

	return ret
}

// CORS sets the cross origin headers on every response. OPTIONS requests
// never reach the router and are answered with 204.
func CORS(origin string, next http.Handler) http.Handler {
	h := cors.Handler(cors.Options{
		AllowedOrigins:     allowedOrigins(origin),
		AllowedMethods:     corsMethods,
		AllowedHeaders:     corsHeaders,
		MaxAge:             corsMaxAge,
		OptionsPassthrough: true,
	})

	return h(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	}))
}
