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

package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/bobbysync/bobbysync/pkg/assert"
)

func TestFormatQuestion(t *testing.T) {
	assert.Equal(t, FormatQuestion("Remove 3 nodes?", false), "Remove 3 nodes? (y/N)", "pessimistic mismatch")
	assert.Equal(t, FormatQuestion("Continue?", true), "Continue? (Y/n)", "optimistic mismatch")
}

func TestReadLine(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "https://localhost:8080\n", expected: "https://localhost:8080"},
		{input: "token\r\n", expected: "token"},
		{input: "no newline", expected: "no newline"},
		{input: "first\nsecond\n", expected: "first"},
		{input: "\n", expected: ""},
	}

	for idx, tc := range testCases {
		got, err := ReadLine(strings.NewReader(tc.input))
		if err != nil {
			t.Fatal(err)
		}

		assert.Equal(t, got, tc.expected, fmt.Sprintf("result mismatch for test case %d", idx))
	}

	t.Run("empty reader", func(t *testing.T) {
		_, err := ReadLine(strings.NewReader(""))

		assert.NotEqual(t, err, nil, "expected an error")
	})
}

func TestReadYesNo(t *testing.T) {
	testCases := []struct {
		input      string
		optimistic bool
		expected   bool
	}{
		{input: "y\n", optimistic: false, expected: true},
		{input: "Y\n", optimistic: false, expected: true},
		{input: "yes\n", optimistic: false, expected: true},
		{input: "n\n", optimistic: false, expected: false},
		{input: "\n", optimistic: false, expected: false},
		{input: "  \n", optimistic: false, expected: false},
		{input: "maybe\n", optimistic: false, expected: false},
		{input: "y\n", optimistic: true, expected: true},
		{input: "n\n", optimistic: true, expected: false},
		{input: "\n", optimistic: true, expected: true},
		{input: "  \n", optimistic: true, expected: true},
		{input: "y", optimistic: false, expected: true},
	}

	for idx, tc := range testCases {
		got, err := ReadYesNo(strings.NewReader(tc.input), tc.optimistic)
		if err != nil {
			t.Fatal(err)
		}

		assert.Equal(t, got, tc.expected, fmt.Sprintf("result mismatch for test case %d", idx))
	}
}
