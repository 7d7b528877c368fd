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

package ls

import (
	"github.com/bobbysync/bobbysync/pkg/cli/context"
	"github.com/bobbysync/bobbysync/pkg/cli/infra"
	"github.com/bobbysync/bobbysync/pkg/cli/output"
	"github.com/bobbysync/bobbysync/pkg/cli/tree"
	"github.com/bobbysync/bobbysync/pkg/cli/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
 * List the whole tree
 bobbysync ls

 * List a single folder
 bobbysync ls 12`

func preRun(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return errors.New("Incorrect number of argument")
	}
	if len(args) == 1 && !utils.IsNumber(args[0]) {
		return errors.Errorf("invalid id '%s'", args[0])
	}

	return nil
}

// NewCmd returns a new ls command
func NewCmd(ctx context.BobbyCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls [id]",
		Short:   "List bookmarks and folders",
		Aliases: []string{"l", "view"},
		Example: example,
		PreRunE: preRun,
		RunE:    newRun(ctx),
	}

	return cmd
}

// Load returns the subtree under id, or every root when id is empty
func Load(t tree.Tree, id string) ([]tree.Node, error) {
	if id != "" {
		n, err := t.SubTree(id)
		if err != nil {
			return nil, errors.Wrap(err, "loading the node")
		}

		return []tree.Node{n}, nil
	}

	roots, err := t.Roots()
	if err != nil {
		return nil, errors.Wrap(err, "loading the roots")
	}

	ret := make([]tree.Node, 0, len(roots))
	for _, r := range roots {
		n, err := t.SubTree(r.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "loading root %s", r.ID)
		}
		ret = append(ret, n)
	}

	return ret, nil
}

func newRun(ctx context.BobbyCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		var id string
		if len(args) == 1 {
			id = args[0]
		}

		nodes, err := Load(tree.NewSQLTree(ctx.DB, ctx.Clock), id)
		if err != nil {
			return err
		}

		for _, n := range nodes {
			output.Tree(n)
		}

		return nil
	}
}
