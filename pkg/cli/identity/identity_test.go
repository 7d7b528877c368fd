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

package identity

import (
	"testing"

	"github.com/bobbysync/bobbysync/pkg/assert"
	"github.com/bobbysync/bobbysync/pkg/cli/database"
	"github.com/bobbysync/bobbysync/pkg/cli/tree"
	"github.com/pkg/errors"
)

func mustLoad(t *testing.T, db *database.DB) *Mapper {
	m := New(db)
	if err := m.Load(); err != nil {
		t.Fatal(errors.Wrap(err, "loading mapper"))
	}

	return m
}

func countRows(t *testing.T, db *database.DB) int {
	var count int
	database.MustScan(t, "counting mappings", db.QueryRow("SELECT count(*) FROM identity_map"), &count)

	return count
}

func TestEnsureUID(t *testing.T) {
	db := database.InitTestMemoryDB(t)
	m := mustLoad(t, db)

	uid := m.EnsureUID("10")
	assert.NotEqual(t, uid, "", "uid should be minted")
	assert.Equal(t, m.EnsureUID("10"), uid, "uid should be stable")
	assert.NotEqual(t, m.EnsureUID("11"), uid, "uids should be unique")
	assert.Equal(t, m.EnsureUID(""), "", "empty local id")

	localID, ok := m.LookupLocalID(uid)
	assert.Equal(t, ok, true, "reverse lookup should succeed")
	assert.Equal(t, localID, "10", "reverse lookup mismatch")
}

func TestRoots(t *testing.T) {
	db := database.InitTestMemoryDB(t)
	m := mustLoad(t, db)

	assert.Equal(t, m.EnsureUID("1"), "root-bookmarks-bar", "bar uid")
	assert.Equal(t, m.EnsureUID("3"), "root-mobile-bookmarks", "mobile uid")

	localID, ok := m.LookupLocalID("root-other-bookmarks")
	assert.Equal(t, ok, true, "unmapped root should resolve")
	assert.Equal(t, localID, "2", "root local id mismatch")

	m.Drop("1")
	m.DropTree(tree.Node{ID: "3"})
	localID, ok = m.LookupLocalID("root-bookmarks-bar")
	assert.Equal(t, ok, true, "root mapping should survive drop")
	assert.Equal(t, localID, "1", "root local id mismatch")

	assert.Equal(t, IsRootUID("root-mobile-bookmarks"), true, "root uid")
	assert.Equal(t, IsRootUID("abc"), false, "non-root uid")
}

func TestDropTree(t *testing.T) {
	db := database.InitTestMemoryDB(t)
	m := mustLoad(t, db)

	for _, id := range []string{"10", "11", "12", "13"} {
		m.EnsureUID(id)
	}
	keep, _ := m.LookupUID("13")

	m.DropTree(tree.Node{
		ID: "10",
		Children: []tree.Node{
			{ID: "11"},
			{ID: "12", Children: []tree.Node{{ID: "404"}}},
		},
	})

	for _, id := range []string{"10", "11", "12"} {
		_, ok := m.LookupUID(id)
		assert.Equal(t, ok, false, "mapping of "+id+" should be dropped")
	}
	localID, ok := m.LookupLocalID(keep)
	assert.Equal(t, ok, true, "unrelated mapping should survive")
	assert.Equal(t, localID, "13", "unrelated mapping mismatch")
}

func TestFlush(t *testing.T) {
	db := database.InitTestMemoryDB(t)
	m := mustLoad(t, db)

	assert.Equal(t, m.Dirty(), false, "fresh mapper should be clean")

	a := m.EnsureUID("10")
	m.EnsureUID("11")
	m.EnsureUID("12")
	m.Drop("12")
	assert.Equal(t, m.Dirty(), true, "mapper should be dirty")
	assert.Equal(t, countRows(t, db), 0, "nothing written before flush")

	if err := m.Flush(); err != nil {
		t.Fatal(errors.Wrap(err, "flushing"))
	}
	assert.Equal(t, m.Dirty(), false, "mapper should be clean after flush")
	assert.Equal(t, countRows(t, db), 2, "row count mismatch")

	// the uid of 10 moves to 20, as when a node is recreated
	m.Set("20", a)
	if err := m.Flush(); err != nil {
		t.Fatal(errors.Wrap(err, "flushing a moved uid"))
	}

	reloaded := mustLoad(t, db)
	localID, ok := reloaded.LookupLocalID(a)
	assert.Equal(t, ok, true, "moved uid should be stored")
	assert.Equal(t, localID, "20", "moved uid mismatch")
	_, ok = reloaded.LookupUID("10")
	assert.Equal(t, ok, false, "old local id should be unmapped")
	assert.Equal(t, reloaded.Len(), 2, "mapping count mismatch")
}

func TestLoad_otherWriter(t *testing.T) {
	db := database.InitTestMemoryDB(t)
	m := mustLoad(t, db)
	other := mustLoad(t, db)

	uid := other.EnsureUID("10")
	if err := other.Flush(); err != nil {
		t.Fatal(err)
	}

	_, ok := m.LookupLocalID(uid)
	assert.Equal(t, ok, false, "cache should be stale before reload")

	if err := m.Load(); err != nil {
		t.Fatal(err)
	}
	localID, ok := m.LookupLocalID(uid)
	assert.Equal(t, ok, true, "reload should pick up other writes")
	assert.Equal(t, localID, "10", "local id mismatch")
}
