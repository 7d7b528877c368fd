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

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bobbysync/bobbysync/pkg/assert"
)

func TestEnsureDir(t *testing.T) {
	tmpDir := t.TempDir()
	testPath := filepath.Join(tmpDir, "test", "nested", "dir")

	err := EnsureDir(testPath)
	assert.Equal(t, err, nil, "EnsureDir should succeed")

	info, err := os.Stat(testPath)
	assert.Equal(t, err, nil, "directory should exist")
	assert.Equal(t, info.IsDir(), true, "should be a directory")

	err = EnsureDir(testPath)
	assert.Equal(t, err, nil, "EnsureDir should succeed on existing directory")
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "file")

	ok, err := FileExists(path)
	assert.Equal(t, err, nil, "error mismatch")
	assert.Equal(t, ok, false, "file should not exist yet")

	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	ok, err = FileExists(path)
	assert.Equal(t, err, nil, "error mismatch")
	assert.Equal(t, ok, true, "file should exist")
}

func TestIsNumber(t *testing.T) {
	testCases := []struct {
		input    string
		expected bool
	}{
		{input: "1", expected: true},
		{input: "42", expected: true},
		{input: "", expected: false},
		{input: "-1", expected: false},
		{input: "1a", expected: false},
		{input: "root-bookmarks-bar", expected: false},
	}

	for idx, tc := range testCases {
		assert.Equal(t, IsNumber(tc.input), tc.expected, fmt.Sprintf("result mismatch for test case %d", idx))
	}
}
