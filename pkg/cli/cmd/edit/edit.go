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

package edit

import (
	"github.com/bobbysync/bobbysync/pkg/cli/context"
	"github.com/bobbysync/bobbysync/pkg/cli/infra"
	"github.com/bobbysync/bobbysync/pkg/cli/log"
	"github.com/bobbysync/bobbysync/pkg/cli/output"
	"github.com/bobbysync/bobbysync/pkg/cli/tree"
	"github.com/bobbysync/bobbysync/pkg/cli/utils"
	"github.com/bobbysync/bobbysync/pkg/cli/validate"
	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ErrNothingToChange is an error for an edit without any new value
var ErrNothingToChange = errors.New("Nothing to change. Provide --title or --url")

var titleFlag string
var urlFlag string

var example = `
  * Rename a folder
  bobbysync edit 12 -t "Reading list"

  * Point a bookmark to a new address
  bobbysync edit 31 -u https://go.dev/doc`

// NewCmd returns a new edit command
func NewCmd(ctx context.BobbyCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "edit <id>",
		Short:   "Edit a bookmark or a folder",
		Aliases: []string{"e"},
		Example: example,
		PreRunE: preRun,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVarP(&titleFlag, "title", "t", "", "a new title")
	f.StringVarP(&urlFlag, "url", "u", "", "a new address for a bookmark")

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

// Do validates the new values and updates the node. Empty values are left
// unchanged. It returns the node before and after the change.
func Do(t tree.Tree, id, title, url string) (before, after tree.Node, err error) {
	if title == "" && url == "" {
		return before, after, ErrNothingToChange
	}

	before, err = t.Get(id)
	if err != nil {
		return before, after, errors.Wrap(err, "finding the node")
	}

	var p tree.UpdateParams
	if title != "" {
		if err := validate.Title(title); err != nil {
			return before, after, errors.Wrap(err, "invalid title")
		}
		p.Title = ops.String(title)
	}
	if url != "" {
		if before.IsContainer() {
			return before, after, errors.New("a folder has no url")
		}
		if err := validate.URL(url); err != nil {
			return before, after, errors.Wrap(err, "invalid url")
		}
		p.Content = ops.String(url)
	}

	after, err = t.Update(id, p)
	if err != nil {
		return before, after, errors.Wrap(err, "updating the node")
	}

	return before, after, nil
}

func newRun(ctx context.BobbyCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		s, err := infra.OpenSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		before, after, err := Do(s.Tree(), args[0], titleFlag, urlFlag)
		if err != nil {
			return err
		}

		log.Success("edited\n")
		output.Diff("title", before.Title, after.Title)
		output.Diff("url", ops.StringValue(before.Content), ops.StringValue(after.Content))

		return nil
	}
}
