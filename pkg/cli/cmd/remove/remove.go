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

package remove

import (
	"fmt"

	"github.com/bobbysync/bobbysync/pkg/cli/context"
	"github.com/bobbysync/bobbysync/pkg/cli/infra"
	"github.com/bobbysync/bobbysync/pkg/cli/log"
	"github.com/bobbysync/bobbysync/pkg/cli/output"
	"github.com/bobbysync/bobbysync/pkg/cli/tree"
	"github.com/bobbysync/bobbysync/pkg/cli/ui"
	"github.com/bobbysync/bobbysync/pkg/cli/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var yesFlag bool

var example = `
  * Remove a bookmark
  bobbysync remove 31

  * Remove a folder with everything in it, skipping the confirmation
  bobbysync remove 12 -y`

// NewCmd returns a new remove command
func NewCmd(ctx context.BobbyCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <id>",
		Short:   "Remove a bookmark or a folder",
		Aliases: []string{"rm", "d"},
		Example: example,
		PreRunE: preRun,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.BoolVarP(&yesFlag, "yes", "y", false, "remove without confirmation")

	return cmd
}

func preRun(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.New("Incorrect number of argument")
	}
	if !utils.IsNumber(args[0]) {
		return errors.Errorf("invalid id '%s'", args[0])
	}

	return nil
}

// Count returns the number of nodes in the loaded subtree
func Count(n tree.Node) int {
	var ret int
	n.Walk(func(tree.Node) { ret++ })

	return ret
}

func newRun(ctx context.BobbyCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		s, err := infra.OpenSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := s.Tree().SubTree(args[0])
		if err != nil {
			return errors.Wrap(err, "finding the node")
		}

		if !yesFlag {
			uid, _ := s.IDs().LookupUID(n.ID)
			output.NodeInfo(n, uid)

			question := "remove this bookmark?"
			if n.IsContainer() {
				question = fmt.Sprintf("remove this folder and %d nodes in it?", Count(n)-1)
			}

			ok, err := ui.Confirm(question, false)
			if err != nil {
				return errors.Wrap(err, "getting confirmation")
			}
			if !ok {
				log.Warnf("aborted by user\n")
				return nil
			}
		}

		if err := s.Tree().RemoveTree(n.ID); err != nil {
			return errors.Wrap(err, "removing the node")
		}

		log.Successf("removed %s\n", n.Title)

		return nil
	}
}
