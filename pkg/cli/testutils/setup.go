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

package testutils

import (
	"testing"

	"github.com/bobbysync/bobbysync/pkg/cli/database"
)

// SetupTree inserts a folder with two bookmarks under the first root and
// a bookmark under the second root:
//
//	1 Bookmarks Bar
//	  10 Work
//	    11 Go
//	    12 SQLite
//	2 Other Bookmarks
//	  13 Recipes
func SetupTree(t *testing.T, db *database.DB) {
	database.MustExec(t, "setting up folder", db, "INSERT INTO nodes (id, parent_id, idx, title, content, type) VALUES (?, ?, ?, ?, ?, ?)", 10, 1, 0, "Work", nil, "container")
	database.MustExec(t, "setting up leaf 1", db, "INSERT INTO nodes (id, parent_id, idx, title, content, type) VALUES (?, ?, ?, ?, ?, ?)", 11, 10, 0, "Go", "https://go.dev", "leaf")
	database.MustExec(t, "setting up leaf 2", db, "INSERT INTO nodes (id, parent_id, idx, title, content, type) VALUES (?, ?, ?, ?, ?, ?)", 12, 10, 1, "SQLite", "https://sqlite.org", "leaf")
	database.MustExec(t, "setting up leaf 3", db, "INSERT INTO nodes (id, parent_id, idx, title, content, type) VALUES (?, ?, ?, ?, ?, ?)", 13, 2, 0, "Recipes", "https://example.com/recipes", "leaf")
}
