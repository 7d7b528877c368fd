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

package validate

import (
	"fmt"
	"testing"

	"github.com/bobbysync/bobbysync/pkg/assert"
)

func TestTitle(t *testing.T) {
	testCases := []struct {
		input    string
		expected error
	}{
		{input: "Go", expected: nil},
		{input: "", expected: nil},
		{input: "Reading list (2025)", expected: nil},
		{input: "two\nlines", expected: ErrTitleMultiline},
		{input: "two\r\nlines", expected: ErrTitleMultiline},
	}

	for idx, tc := range testCases {
		assert.Equal(t, Title(tc.input), tc.expected, fmt.Sprintf("result mismatch for test case %d", idx))
	}
}

func TestFolderTitle(t *testing.T) {
	testCases := []struct {
		input    string
		expected error
	}{
		{input: "Work", expected: nil},
		{input: "", expected: ErrTitleEmpty},
		{input: "   ", expected: ErrTitleEmpty},
		{input: "a\nb", expected: ErrTitleMultiline},
	}

	for idx, tc := range testCases {
		assert.Equal(t, FolderTitle(tc.input), tc.expected, fmt.Sprintf("result mismatch for test case %d", idx))
	}
}

func TestURL(t *testing.T) {
	testCases := []struct {
		input    string
		expected error
	}{
		{input: "https://go.dev", expected: nil},
		{input: "http://127.0.0.1:8080/v1", expected: nil},
		{input: "mailto:someone@example.com", expected: nil},
		{input: "", expected: ErrURLInvalid},
		{input: "go.dev", expected: ErrURLInvalid},
		{input: "/relative/path", expected: ErrURLInvalid},
		{input: "https://", expected: ErrURLInvalid},
	}

	for idx, tc := range testCases {
		assert.Equal(t, URL(tc.input), tc.expected, fmt.Sprintf("result mismatch for test case %d", idx))
	}
}
