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

package mv

import (
	"github.com/bobbysync/bobbysync/pkg/cli/context"
	"github.com/bobbysync/bobbysync/pkg/cli/infra"
	"github.com/bobbysync/bobbysync/pkg/cli/log"
	"github.com/bobbysync/bobbysync/pkg/cli/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var indexFlag int

var example = `
 * Move a bookmark into a folder
 bobbysync mv 31 12

 * Move a bookmark to the top of its folder
 bobbysync mv 31 12 -i 0`

func preRun(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		return errors.New("Incorrect number of argument")
	}
	for _, a := range args {
		if !utils.IsNumber(a) {
			return errors.Errorf("invalid id '%s'", a)
		}
	}

	return nil
}

// NewCmd returns a new mv command
func NewCmd(ctx context.BobbyCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mv <id> <parent id>",
		Short:   "Move a bookmark or a folder",
		Aliases: []string{"move"},
		Example: example,
		PreRunE: preRun,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.IntVarP(&indexFlag, "index", "i", 0, "the position among the new siblings (defaults to the end)")

	return cmd
}

func newRun(ctx context.BobbyCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		s, err := infra.OpenSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		var index *int
		if cmd.Flags().Changed("index") {
			if indexFlag < 0 {
				return errors.New("index must not be negative")
			}
			index = &indexFlag
		}

		n, err := s.Tree().Move(args[0], args[1], index)
		if err != nil {
			return errors.Wrap(err, "moving the node")
		}

		log.Successf("moved %s to %s at %d\n", n.Title, n.ParentID, n.Index)

		return nil
	}
}
