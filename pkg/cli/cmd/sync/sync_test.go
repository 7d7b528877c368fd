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

package sync

import (
	"testing"

	"github.com/bobbysync/bobbysync/pkg/assert"
	"github.com/bobbysync/bobbysync/pkg/cli/context"
	"github.com/bobbysync/bobbysync/pkg/cli/infra"
	"github.com/bobbysync/bobbysync/pkg/cli/tree"
	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/bobbysync/bobbysync/pkg/server/app"
	"github.com/bobbysync/bobbysync/pkg/server/controllers"
)

func TestDo(t *testing.T) {
	a, _ := app.NewTest()
	server := controllers.MustNewServer(t, &a)
	defer server.Close()

	ctx := context.InitTestCtx(t)
	ctx.APIEndpoint = server.URL + "/v1"
	ctx.HTTPClient = server.Client()

	s, err := infra.OpenSession(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	d := infra.NewDriver(ctx, s)

	if _, err := s.Tree().Create(tree.CreateParams{ParentID: "1", Title: "Go", Content: ops.String("https://go.dev")}); err != nil {
		t.Fatal(err)
	}

	t.Run("pull only", func(t *testing.T) {
		res, err := Do(d, false, true)
		if err != nil {
			t.Fatal(err)
		}

		assert.Equal(t, res.Push.Sent, 0, "nothing should be sent")
		n, _ := s.Queue().Len()
		assert.Equal(t, n, 1, "queue should be kept")
	})

	t.Run("push only", func(t *testing.T) {
		res, err := Do(d, true, false)
		if err != nil {
			t.Fatal(err)
		}

		assert.Equal(t, res.Push.Sent, 1, "sent mismatch")
		assert.Equal(t, res.Push.Accepted, 1, "accepted mismatch")

		version, count := a.Log.Stats()
		assert.Equal(t, version, int64(1), "server version mismatch")
		assert.Equal(t, count, 1, "server op count mismatch")
	})

	t.Run("both flags", func(t *testing.T) {
		_, err := Do(d, true, true)

		assert.NotEqual(t, err, nil, "expected an error")
	})

	t.Run("full", func(t *testing.T) {
		res, err := Do(d, false, false)
		if err != nil {
			t.Fatal(err)
		}

		assert.Equal(t, res.Pull.Summary.Skipped, 0, "own operations are already covered by the cursor")
		cursor, err := s.Cursor()
		if err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, cursor, int64(1), "cursor mismatch")
	})
}
