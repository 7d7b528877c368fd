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

package database

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/bobbysync/bobbysync/pkg/assert"
	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/bobbysync/bobbysync/pkg/server/oplog"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	if err := Prepare(db); err != nil {
		t.Fatalf("failed to prepare database: %v", err)
	}

	return db
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		t.Fatal(err)
	}

	return count
}

func TestStore_emptyLoad(t *testing.T) {
	db := openTestDB(t)

	state, err := NewStore(db).Load()
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, state.Version, int64(0), "version mismatch")
	assert.Equal(t, len(state.Ops), 0, "ops mismatch")
	assert.Equal(t, state.Snapshot == nil, true, "snapshot should be empty")
	assert.Equal(t, countRows(t, db, &LogMeta{}), int64(1), "the meta row should be seeded")
}

func TestStore_withLog(t *testing.T) {
	db := openTestDB(t)

	l, err := oplog.Open(NewStore(db), oplog.Options{MaxLogOps: 3})
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 5; i++ {
		op := ops.Operation{
			Op:        ops.KindCreate,
			UID:       fmt.Sprintf("uid-%d", i),
			ParentUID: ops.String("root-bookmarks-bar"),
			Index:     ops.Int(i),
			Title:     ops.String("title"),
			Content:   ops.String("https://example.test"),
			Type:      ops.TypeLeaf,
			DeviceID:  "device-a",
			OpID:      fmt.Sprintf("op-%d", i),
		}
		if _, err := l.Push(int64(i-1), []ops.Operation{op}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := l.PutSnapshot(oplog.SnapshotParams{Data: json.RawMessage(`{"nodes":[]}`)}); err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, countRows(t, db, &OpRecord{}), int64(3), "pruned rows should be deleted")
	assert.Equal(t, countRows(t, db, &SnapshotRecord{}), int64(1), "snapshot row count mismatch")

	reopened, err := oplog.Open(NewStore(db), oplog.Options{MaxLogOps: 3})
	if err != nil {
		t.Fatal(err)
	}

	version, count := reopened.Stats()
	assert.Equal(t, version, int64(5), "version mismatch")
	assert.Equal(t, count, 3, "count mismatch")

	page := reopened.Pull(0, 0)
	assert.Equal(t, page.Ops[0].Version, int64(3), "oldest retained version mismatch")
	assert.Equal(t, *page.Ops[0].Index, 3, "index mismatch")
	assert.Equal(t, *page.Ops[0].Content, "https://example.test", "content mismatch")
	assert.Equal(t, page.Ops[0].Type, ops.TypeLeaf, "type mismatch")

	snap, err := reopened.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, snap.Version, int64(5), "snapshot version mismatch")
	assert.Equal(t, string(snap.Data), `{"nodes":[]}`, "snapshot data mismatch")

	res, err := reopened.Push(5, []ops.Operation{{Op: ops.KindRemove, UID: "uid-5", OpID: "op-5"}})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, res.Accepted, 0, "retained opIds should be deduplicated after a reload")
}

func TestStore_snapshotReplaced(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)

	l, err := oplog.Open(store, oplog.Options{})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		data := json.RawMessage(fmt.Sprintf(`{"nodes":[],"n":%d}`, i))
		if _, err := l.PutSnapshot(oplog.SnapshotParams{Data: data}); err != nil {
			t.Fatal(err)
		}
	}

	assert.Equal(t, countRows(t, db, &SnapshotRecord{}), int64(1), "snapshot row count mismatch")

	state, err := NewStore(db).Load()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, string(state.Snapshot.Data), `{"nodes":[],"n":1}`, "snapshot data mismatch")
}

func TestOpen_unknownDriver(t *testing.T) {
	_, err := Open("mysql", "dsn", "info")

	assert.NotEqual(t, err, nil, "expected an error")
}
