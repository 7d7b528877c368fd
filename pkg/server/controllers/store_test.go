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
	"net/http"
	"testing"

	"github.com/bobbysync/bobbysync/pkg/assert"
	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/bobbysync/bobbysync/pkg/server/app"
	"github.com/bobbysync/bobbysync/pkg/server/database"
	"github.com/bobbysync/bobbysync/pkg/server/oplog"
	"github.com/bobbysync/bobbysync/pkg/server/testutils"
)

func newDatabaseApp(t *testing.T, store oplog.Store) app.App {
	a, _ := app.NewTest()
	a.AuthToken = "secret"

	l, err := oplog.Open(store, oplog.Options{Clock: a.Clock})
	if err != nil {
		t.Fatal(err)
	}
	a.Log = l

	return a
}

func TestDatabaseStore_survivesRestart(t *testing.T) {
	store := database.NewStore(testutils.InitMemoryDB(t))

	a := newDatabaseApp(t, store)
	server := MustNewServer(t, &a)

	body := testutils.MustMarshalJSON(t, ops.PushRequest{Ops: []ops.Operation{
		{Op: ops.KindCreate, UID: "a", ParentUID: ops.String("root-bookmarks-bar"), Title: ops.String("Go"), Content: ops.String("https://go.dev"), Type: ops.TypeLeaf, OpID: "op-1", DeviceID: "d1"},
		{Op: ops.KindUpdate, UID: "a", Title: ops.String("Go dev"), OpID: "op-2", DeviceID: "d1"},
	}})
	res := testutils.HTTPAuthDo(t, testutils.MakeReq(server.URL, "POST", "/v1/push", body), "secret")
	assert.StatusCodeEquals(t, res, http.StatusOK, "push status mismatch")
	server.Close()

	// a new log over the same database resumes where the first one stopped
	b := newDatabaseApp(t, store)
	server = MustNewServer(t, &b)
	defer server.Close()

	page := pullOps(t, server.URL, 0, 10)
	assert.Equal(t, page.Latest, int64(2), "latest mismatch")
	assert.Equal(t, len(page.Ops), 2, "op count mismatch")
	assert.Equal(t, page.Ops[1].OpID, "op-2", "op order mismatch")

	res = testutils.HTTPAuthDo(t, testutils.MakeReq(server.URL, "POST", "/v1/push", body), "secret")
	var pushed ops.PushResponse
	testutils.MustDecodeJSON(t, res.Body, &pushed)
	assert.Equal(t, pushed.Accepted, 0, "known operations should not be accepted again")
	assert.Equal(t, pushed.NewVersion, int64(2), "version mismatch")
}
