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

package infra

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/bobbysync/bobbysync/pkg/assert"
	"github.com/bobbysync/bobbysync/pkg/cli/config"
	"github.com/bobbysync/bobbysync/pkg/cli/consts"
	"github.com/bobbysync/bobbysync/pkg/cli/context"
	"github.com/bobbysync/bobbysync/pkg/cli/database"
	"github.com/bobbysync/bobbysync/pkg/dirs"
	"github.com/pkg/errors"
)

func setTestDirs(t *testing.T) string {
	tmpDir := t.TempDir()

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmpDir, "data"))
	dirs.Reload()
	t.Cleanup(dirs.Reload)

	return tmpDir
}

func TestInitSystem(t *testing.T) {
	ctx := context.InitTestCtx(t)

	database.MustExec(t, "setting the cursor", ctx.DB, "INSERT INTO system (key, value) VALUES (?, ?)", consts.SystemLastVersion, "7")

	if err := InitSystem(ctx); err != nil {
		t.Fatal(errors.Wrap(err, "executing"))
	}
	if err := InitSystem(ctx); err != nil {
		t.Fatal(errors.Wrap(err, "executing again"))
	}

	var cursor string
	database.MustScan(t, "getting the cursor",
		ctx.DB.QueryRow("SELECT value FROM system WHERE key = ?", consts.SystemLastVersion), &cursor)
	assert.Equal(t, cursor, "7", "existing value should not have been updated")

	var count int
	database.MustScan(t, "counting system configs",
		ctx.DB.QueryRow("SELECT count(*) FROM system WHERE key IN (?, ?)", consts.SystemLastSyncAt, consts.SystemInitializedAt), &count)
	assert.Equal(t, count, 2, "system count mismatch")
}

func TestInit(t *testing.T) {
	tmpDir := setTestDirs(t)

	ctx, err := Init("test-version", "", "")
	if err != nil {
		t.Fatal(errors.Wrap(err, "initializing"))
	}
	defer ctx.DB.Close()

	assert.Equal(t, ctx.APIEndpoint, config.DefaultAPIEndpoint, "endpoint mismatch")
	assert.Equal(t, ctx.PushInterval, time.Minute, "push interval mismatch")
	assert.Equal(t, ctx.PullPageSize, config.DefaultPullPageSize, "page size mismatch")
	assert.Equal(t, ctx.ConfigPath, filepath.Join(tmpDir, "config", "bobbysync", "bobbysyncrc"), "config path mismatch")
	assert.Equal(t, ctx.DB.Filepath, filepath.Join(tmpDir, "data", "bobbysync", "bobbysync.db"), "db path mismatch")

	var roots int
	database.MustScan(t, "counting roots", ctx.DB.QueryRow("SELECT count(*) FROM nodes WHERE parent_id IS NULL"), &roots)
	assert.Equal(t, roots, 3, "roots should be seeded")

	t.Run("session", func(t *testing.T) {
		s, err := OpenSession(*ctx)
		if err != nil {
			t.Fatal(err)
		}
		defer s.Close()

		assert.NotEqual(t, s.DeviceID(), "", "device id should be minted")
		assert.Equal(t, NewClient(*ctx).Endpoint, config.DefaultAPIEndpoint, "client endpoint mismatch")
	})
}

func TestInit_APIEndpointChange(t *testing.T) {
	setTestDirs(t)

	endpoint1 := "http://127.0.0.1:3001/v1"
	ctx, err := Init("test-version", endpoint1, "")
	if err != nil {
		t.Fatal(errors.Wrap(err, "initializing"))
	}
	defer ctx.DB.Close()
	assert.Equal(t, ctx.APIEndpoint, endpoint1, "should use endpoint1 API endpoint")

	cf, err := config.Read(*ctx)
	if err != nil {
		t.Fatal(errors.Wrap(err, "reading config"))
	}

	endpoint2 := "http://127.0.0.1:3002/v1"
	ctx2, err := Init("test-version", endpoint2, "")
	if err != nil {
		t.Fatal(errors.Wrap(err, "initializing with override"))
	}
	defer ctx2.DB.Close()
	assert.Equal(t, ctx2.APIEndpoint, endpoint2, "should use endpoint2 API endpoint")

	cf2, err := config.Read(*ctx2)
	if err != nil {
		t.Fatal(errors.Wrap(err, "reading config after override"))
	}
	assert.Equal(t, cf2.APIEndpoint, cf.APIEndpoint, "config should still have original endpoint, not endpoint2")
}

func TestInit_customDBPath(t *testing.T) {
	tmpDir := setTestDirs(t)
	dbPath := filepath.Join(tmpDir, "custom.db")

	ctx, err := Init("test-version", "", dbPath)
	if err != nil {
		t.Fatal(errors.Wrap(err, "initializing"))
	}
	defer ctx.DB.Close()

	assert.Equal(t, ctx.DB.Filepath, dbPath, "db path mismatch")
}

func TestApplyConfig_invalid(t *testing.T) {
	ctx := context.InitTestCtx(t)

	_, err := ApplyConfig(ctx, config.Config{PushInterval: "often"})

	assert.Equal(t, errors.Cause(err), config.ErrIntervalInvalid, "error mismatch")
}
