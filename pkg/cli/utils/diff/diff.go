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

// Package diff compares field values line by line for display
package diff

import (
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Kind tells whether a line was kept, added or dropped
type Kind int

const (
	// Equal is a line present on both sides
	Equal Kind = iota
	// Insert is a line only present in the new value
	Insert
	// Delete is a line only present in the old value
	Delete
)

// Line is one line of a diff
type Line struct {
	Kind Kind
	Text string
}

// Lines returns the line diff between before and after. Identical values
// yield nothing.
func Lines(before, after string) []Line {
	if before == after {
		return nil
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = time.Second

	a, b, arr := dmp.DiffLinesToRunes(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(a, b, false), arr)

	var ret []Line
	for _, d := range diffs {
		kind := Equal
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			kind = Insert
		case diffmatchpatch.DiffDelete:
			kind = Delete
		}

		for _, text := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			ret = append(ret, Line{Kind: kind, Text: text})
		}
	}

	return ret
}
