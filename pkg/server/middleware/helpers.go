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
	"encoding/json"
	"net/http"

	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/bobbysync/bobbysync/pkg/server/log"
	"github.com/pkg/errors"
)

// Error codes returned in the body of error responses
const (
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeInvalidSnapshot  = "invalid_snapshot"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeSnapshotNotFound = "snapshot_not_found"
	ErrCodeTooLarge         = "request_too_large"
	ErrCodeTooManyRequests  = "too_many_requests"
	ErrCodeNotFound         = "not_found"
	ErrCodeInternal         = "internal_error"
)

// RespondJSON writes the given value as a JSON response
func RespondJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.ErrorWrap(err, "encoding response")
	}
}

// RespondError writes a JSON error response with the given code
func RespondError(w http.ResponseWriter, statusCode int, code string) {
	RespondJSON(w, statusCode, ops.ErrorResponse{Error: code})
}

// RespondUnauthorized responds with unauthorized
func RespondUnauthorized(w http.ResponseWriter) {
	RespondError(w, http.StatusUnauthorized, ErrCodeUnauthorized)
}

// RespondNotFound responds with not found
func RespondNotFound(w http.ResponseWriter, r *http.Request) {
	RespondError(w, http.StatusNotFound, ErrCodeNotFound)
}

// DoError logs the error and responds with an internal error
func DoError(w http.ResponseWriter, msg string, err error) {
	log.ErrorWrap(err, msg)
	RespondError(w, http.StatusInternalServerError, ErrCodeInternal)
}

// DecodeJSON decodes the request body into v. A body over the size limit
// results in a 413 response and other decoding failures in a 400 response.
// It returns false if a response has been written.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge)
			return false
		}

		log.WithFields(log.Fields{
			"path": r.URL.Path,
			"err":  err,
		}).Debug("Invalid request body.")
		RespondError(w, http.StatusBadRequest, ErrCodeInvalidRequest)
		return false
	}

	return true
}
