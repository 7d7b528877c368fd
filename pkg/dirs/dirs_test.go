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

package dirs

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/bobbysync/bobbysync/pkg/assert"
)

func TestDefaultDirs(t *testing.T) {
	t.Setenv("HOME", "/home/alice")
	t.Setenv(envConfigHome, "")
	t.Setenv(envDataHome, "")
	Reload()
	defer Reload()

	assert.Equal(t, Home, "/home/alice", "home mismatch")
	assert.Equal(t, ConfigHome, "/home/alice/.config", "config home mismatch")
	assert.Equal(t, DataHome, filepath.Join("/home/alice", ".local", "share"), "data home mismatch")
	assert.Equal(t, AppConfigDir(), "/home/alice/.config/bobbysync", "app config dir mismatch")
	assert.Equal(t, AppDataDir(), "/home/alice/.local/share/bobbysync", "app data dir mismatch")
}

func TestCustomDirs(t *testing.T) {
	testCases := []struct {
		envKey   string
		envVal   string
		got      *string
		expected string
	}{
		{
			envKey:   envConfigHome,
			envVal:   "/custom/config",
			got:      &ConfigHome,
			expected: "/custom/config",
		},
		{
			envKey:   envDataHome,
			envVal:   "/custom/data",
			got:      &DataHome,
			expected: "/custom/data",
		},
	}

	defer Reload()

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("test case %d", idx), func(t *testing.T) {
			t.Setenv(tc.envKey, tc.envVal)
			Reload()

			assert.Equal(t, *tc.got, tc.expected, "result mismatch")
		})
	}
}
