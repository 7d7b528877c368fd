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

// Package output provides functions to print informations on the terminal
// in a consistent manner
package output

import (
	"fmt"
	"strings"

	"github.com/bobbysync/bobbysync/pkg/cli/engine"
	"github.com/bobbysync/bobbysync/pkg/cli/log"
	"github.com/bobbysync/bobbysync/pkg/cli/tree"
	"github.com/bobbysync/bobbysync/pkg/cli/utils/diff"
	"github.com/bobbysync/bobbysync/pkg/ops"
)

// NodeInfo prints the information of a node
func NodeInfo(n tree.Node, uid string) {
	log.Infof("title: %s\n", n.Title)
	if !n.IsContainer() {
		log.Infof("url: %s\n", ops.StringValue(n.Content))
	}
	log.Infof("id: %s\n", n.ID)
	log.Infof("parent id: %s\n", n.ParentID)
	log.Infof("index: %d\n", n.Index)
	if uid != "" {
		log.Infof("uid: %s\n", uid)
	}
}

// FormatLine returns the one-line listing of a node
func FormatLine(n tree.Node) string {
	if n.IsContainer() {
		return fmt.Sprintf("(%s) %s/", n.ID, n.Title)
	}

	return fmt.Sprintf("(%s) %s %s", n.ID, n.Title, log.ColorGray.Sprint(ops.StringValue(n.Content)))
}

// Tree prints a loaded subtree, one node per line
func Tree(n tree.Node) {
	printTree(n, 0)
}

func printTree(n tree.Node, depth int) {
	fmt.Printf("%s%s\n", strings.Repeat("  ", depth), FormatLine(n))
	for _, c := range n.Children {
		printTree(c, depth+1)
	}
}

// Status prints the sync state of the device
func Status(st engine.Status, endpoint string) {
	log.Infof("device id: %s\n", st.DeviceID)
	log.Infof("endpoint: %s\n", endpoint)
	log.Infof("cursor: %d\n", st.Cursor)
	log.Infof("queued operations: %d\n", st.QueueSize)
	log.Infof("mapped nodes: %d\n", st.Mappings)
	log.Infof("hydrated from snapshot: %t\n", st.Hydrated)
	if st.ConflictContainerID != "" {
		log.Infof("conflict container id: %s\n", st.ConflictContainerID)
	}
}

// Diff prints the line-by-line difference between two values
func Diff(label, before, after string) {
	if before == after {
		return
	}

	fmt.Printf("%s%s:\n", "  ", label)
	for _, l := range diff.Lines(before, after) {
		switch l.Kind {
		case diff.Insert:
			fmt.Printf("    %s\n", log.ColorGreen.Sprintf("+ %s", l.Text))
		case diff.Delete:
			fmt.Printf("    %s\n", log.ColorRed.Sprintf("- %s", l.Text))
		default:
			fmt.Printf("      %s\n", l.Text)
		}
	}
}
