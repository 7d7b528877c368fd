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

package e2e

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/bobbysync/bobbysync/pkg/assert"
	"github.com/bobbysync/bobbysync/pkg/cli/client"
	"github.com/bobbysync/bobbysync/pkg/cli/context"
	"github.com/bobbysync/bobbysync/pkg/cli/engine"
	"github.com/bobbysync/bobbysync/pkg/cli/infra"
	"github.com/bobbysync/bobbysync/pkg/cli/syncer"
	"github.com/bobbysync/bobbysync/pkg/cli/tree"
	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/bobbysync/bobbysync/pkg/server/app"
	"github.com/bobbysync/bobbysync/pkg/server/controllers"
	"github.com/bobbysync/bobbysync/pkg/server/oplog"
	"github.com/pkg/errors"
)

// testServer is an in-process server backed by a memory store
type testServer struct {
	App      app.App
	Server   *httptest.Server
	Endpoint string
}

// serverOptions adjust the server of a test
type serverOptions struct {
	AuthToken    string
	MaxLogOps    int
	MaxPullLimit int
}

func setupServer(t *testing.T, o serverOptions) *testServer {
	a, _ := app.NewTest()
	a.AuthToken = o.AuthToken

	if o.MaxLogOps > 0 || o.MaxPullLimit > 0 {
		l, err := oplog.Open(oplog.NewMemoryStore(oplog.State{}), oplog.Options{
			MaxLogOps:    o.MaxLogOps,
			MaxPullLimit: o.MaxPullLimit,
			Clock:        a.Clock,
		})
		if err != nil {
			t.Fatal(errors.Wrap(err, "opening the log"))
		}
		a.Log = l
	}

	server := controllers.MustNewServer(t, &a)
	t.Cleanup(server.Close)

	return &testServer{App: a, Server: server, Endpoint: server.URL + "/v1"}
}

// client returns a raw protocol client of the server
func (s *testServer) client(token string) *client.Client {
	return client.New(s.Endpoint, token, "test", s.Server.Client())
}

// device is a client with its own database talking to a test server
type device struct {
	t       *testing.T
	ctx     context.BobbyCtx
	session *engine.Session
	driver  *syncer.Driver
}

func newDevice(t *testing.T, s *testServer, token string, pageSize int) *device {
	ctx := context.InitTestCtx(t)
	ctx.APIEndpoint = s.Endpoint
	ctx.AuthToken = token
	ctx.HTTPClient = s.Server.Client()
	ctx.PullPageSize = pageSize

	session, err := infra.OpenSession(ctx)
	if err != nil {
		t.Fatal(errors.Wrap(err, "opening the session"))
	}
	t.Cleanup(func() { session.Close() })

	return &device{
		t:       t,
		ctx:     ctx,
		session: session,
		driver:  infra.NewDriver(ctx, session),
	}
}

func (d *device) tree() tree.Tree {
	return d.session.Tree()
}

func (d *device) mustCreate(p tree.CreateParams) tree.Node {
	n, err := d.tree().Create(p)
	if err != nil {
		d.t.Fatal(errors.Wrapf(err, "creating %s", p.Title))
	}

	return n
}

func (d *device) mustSync() syncer.SyncResult {
	res, err := d.driver.Sync()
	if err != nil {
		d.t.Fatal(errors.Wrap(err, "syncing"))
	}

	return res
}

func (d *device) mustPush() syncer.PushResult {
	res, err := d.driver.Push()
	if err != nil {
		d.t.Fatal(errors.Wrap(err, "pushing"))
	}

	return res
}

func (d *device) mustPull() syncer.PullResult {
	res, err := d.driver.Pull()
	if err != nil {
		d.t.Fatal(errors.Wrap(err, "pulling"))
	}

	return res
}

func (d *device) uid(n tree.Node) string {
	uid, ok := d.session.IDs().LookupUID(n.ID)
	if !ok {
		d.t.Fatalf("node %s has no uid", n.ID)
	}

	return uid
}

// node returns the local node mapped to the uid
func (d *device) node(uid string) tree.Node {
	id, ok := d.session.IDs().LookupLocalID(uid)
	if !ok {
		d.t.Fatalf("uid %s is not mapped", uid)
	}

	n, err := d.tree().Get(id)
	if err != nil {
		d.t.Fatal(errors.Wrapf(err, "getting %s", uid))
	}

	return n
}

func (d *device) has(uid string) bool {
	_, ok := d.session.IDs().LookupLocalID(uid)
	return ok
}

func (d *device) queueLen() int {
	n, err := d.session.Queue().Len()
	if err != nil {
		d.t.Fatal(errors.Wrap(err, "counting the queue"))
	}

	return n
}

func (d *device) cursor() int64 {
	c, err := d.session.Cursor()
	if err != nil {
		d.t.Fatal(errors.Wrap(err, "reading the cursor"))
	}

	return c
}

// state returns the tree of the device keyed by uid
func (d *device) state() map[string]ops.SnapshotNode {
	data, err := d.session.BuildSnapshot()
	if err != nil {
		d.t.Fatal(errors.Wrap(err, "building the snapshot"))
	}

	ret := map[string]ops.SnapshotNode{}
	for _, n := range data.Nodes {
		ret[n.UID] = n
	}

	return ret
}

func assertConverged(t *testing.T, devices ...*device) {
	want := devices[0].state()
	for i, d := range devices[1:] {
		assert.DeepEqual(t, d.state(), want, fmt.Sprintf("device %d diverged", i+1))
	}
}

func leaf(parentID, title, url string) tree.CreateParams {
	return tree.CreateParams{ParentID: parentID, Title: title, Content: ops.String(url), Type: ops.TypeLeaf}
}

func folder(parentID, title string) tree.CreateParams {
	return tree.CreateParams{ParentID: parentID, Title: title, Type: ops.TypeContainer}
}
