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

package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/bobbysync/bobbysync/pkg/server/app"
	mw "github.com/bobbysync/bobbysync/pkg/server/middleware"
	"github.com/bobbysync/bobbysync/pkg/server/oplog"
	"github.com/gorilla/schema"
	"github.com/pkg/errors"
)

// NewSync creates a new Sync controller
func NewSync(app *app.App) *Sync {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	return &Sync{
		app:     app,
		decoder: decoder,
	}
}

// Sync is a controller for the operation log and the snapshot
type Sync struct {
	app     *app.App
	decoder *schema.Decoder
}

type pullParams struct {
	After int64 `schema:"after"`
	Limit int   `schema:"limit"`
}

// Pull handles GET /v1/pull
func (s *Sync) Pull(w http.ResponseWriter, r *http.Request) {
	var params pullParams
	if err := s.decoder.Decode(&params, r.URL.Query()); err != nil {
		mw.RespondError(w, http.StatusBadRequest, mw.ErrCodeInvalidRequest)
		return
	}

	page := s.app.Log.Pull(params.After, params.Limit)

	mw.RespondJSON(w, http.StatusOK, ops.PullResponse{
		Ops:    page.Ops,
		Latest: page.Latest,
	})
}

type pushPayload struct {
	After json.RawMessage `json:"after"`
	Ops   json.RawMessage `json:"ops"`
}

// decodePushedOps returns the well-formed operations of a push payload.
// Anything other than an array of operations counts as an empty batch.
func decodePushedOps(raw json.RawMessage) []ops.Operation {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	ret := make([]ops.Operation, 0, len(entries))
	for _, entry := range entries {
		if op, ok := ops.DecodeLoose(entry); ok {
			ret = append(ret, op)
		}
	}

	return ret
}

// Push handles POST /v1/push
func (s *Sync) Push(w http.ResponseWriter, r *http.Request) {
	var payload pushPayload
	if !mw.DecodeJSON(w, r, &payload) {
		return
	}

	var after int64
	if n, ok := ops.ParseNumber(payload.After); ok {
		after = int64(n)
	}

	res, err := s.app.Log.Push(after, decodePushedOps(payload.Ops))
	if err != nil {
		mw.DoError(w, "pushing operations", err)
		return
	}

	mw.RespondJSON(w, http.StatusOK, ops.PushResponse{
		OK:         true,
		Accepted:   res.Accepted,
		NewVersion: res.NewVersion,
	})
}

// GetSnapshot handles GET /v1/snapshot
func (s *Sync) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.app.Log.Snapshot()
	if errors.Cause(err) == oplog.ErrSnapshotNotFound {
		mw.RespondError(w, http.StatusNotFound, mw.ErrCodeSnapshotNotFound)
		return
	} else if err != nil {
		mw.DoError(w, "getting the snapshot", err)
		return
	}

	mw.RespondJSON(w, http.StatusOK, snap)
}

var jsonNull = []byte("null")

// snapshotData picks the snapshot body out of a payload. An explicit data
// field wins, then a top-level node list, then the payload itself.
func snapshotData(body []byte, fields map[string]json.RawMessage) (json.RawMessage, error) {
	if data, ok := fields["data"]; ok {
		return data, nil
	}

	if nodes, ok := fields["nodes"]; ok && !bytes.Equal(bytes.TrimSpace(nodes), jsonNull) {
		wrapped, err := json.Marshal(map[string]json.RawMessage{"nodes": nodes})
		if err != nil {
			return nil, errors.Wrap(err, "wrapping the node list")
		}

		return wrapped, nil
	}

	return json.RawMessage(body), nil
}

// PutSnapshot handles PUT /v1/snapshot
func (s *Sync) PutSnapshot(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if !mw.DecodeJSON(w, r, &body) {
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		mw.RespondError(w, http.StatusBadRequest, mw.ErrCodeInvalidSnapshot)
		return
	}

	data, err := snapshotData(body, fields)
	if err != nil {
		mw.DoError(w, "reading the snapshot payload", err)
		return
	}

	params := oplog.SnapshotParams{Data: data}
	if n, ok := ops.ParseNumber(fields["version"]); ok {
		v := int64(n)
		params.Version = &v
	}
	if raw, ok := fields["takenAt"]; ok {
		var takenAt string
		if err := json.Unmarshal(raw, &takenAt); err == nil {
			params.TakenAt = takenAt
		}
	}

	version, err := s.app.Log.PutSnapshot(params)
	if err != nil {
		mw.DoError(w, "storing the snapshot", err)
		return
	}

	mw.RespondJSON(w, http.StatusOK, ops.PutSnapshotResponse{
		OK:      true,
		Version: version,
	})
}
