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

package add

import (
	"github.com/bobbysync/bobbysync/pkg/cli/context"
	"github.com/bobbysync/bobbysync/pkg/cli/identity"
	"github.com/bobbysync/bobbysync/pkg/cli/infra"
	"github.com/bobbysync/bobbysync/pkg/cli/log"
	"github.com/bobbysync/bobbysync/pkg/cli/output"
	"github.com/bobbysync/bobbysync/pkg/cli/tree"
	"github.com/bobbysync/bobbysync/pkg/cli/validate"
	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var urlFlag string
var parentFlag string
var indexFlag int
var folderFlag bool

var example = `
 * Add a bookmark to the toolbar
 bobbysync add "Go" -u https://go.dev

 * Add a folder under another folder, at the top
 bobbysync add "Reading" --folder -p 12 -i 0`

func preRun(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.New("Incorrect number of argument")
	}

	return nil
}

// NewCmd returns a new add command
func NewCmd(ctx context.BobbyCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add <title>",
		Short:   "Add a bookmark or a folder",
		Aliases: []string{"a", "new"},
		Example: example,
		PreRunE: preRun,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVarP(&urlFlag, "url", "u", "", "the address of the bookmark")
	f.StringVarP(&parentFlag, "parent", "p", identity.DefaultRootID, "the id of the folder to add to")
	f.IntVarP(&indexFlag, "index", "i", 0, "the position among the siblings (defaults to the end)")
	f.BoolVar(&folderFlag, "folder", false, "add a folder instead of a bookmark")

	return cmd
}

// Params are the parameters of a new node
type Params struct {
	Title    string
	URL      string
	ParentID string
	Index    *int
	Folder   bool
}

func validateParams(p Params) error {
	if p.Folder {
		if p.URL != "" {
			return errors.New("a folder cannot have a url")
		}

		return validate.FolderTitle(p.Title)
	}

	if err := validate.Title(p.Title); err != nil {
		return err
	}

	return validate.URL(p.URL)
}

// Do validates the parameters and creates the node
func Do(t tree.Tree, p Params) (tree.Node, error) {
	if err := validateParams(p); err != nil {
		return tree.Node{}, errors.Wrap(err, "invalid input")
	}

	cp := tree.CreateParams{
		ParentID: p.ParentID,
		Index:    p.Index,
		Title:    p.Title,
		Type:     ops.TypeContainer,
	}
	if !p.Folder {
		cp.Content = ops.String(p.URL)
		cp.Type = ops.TypeLeaf
	}

	n, err := t.Create(cp)
	if err != nil {
		return tree.Node{}, errors.Wrap(err, "creating the node")
	}

	return n, nil
}

func newRun(ctx context.BobbyCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		s, err := infra.OpenSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		p := Params{
			Title:    args[0],
			URL:      urlFlag,
			ParentID: parentFlag,
			Folder:   folderFlag,
		}
		if cmd.Flags().Changed("index") {
			p.Index = &indexFlag
		}

		n, err := Do(s.Tree(), p)
		if err != nil {
			return err
		}

		uid, _ := s.IDs().LookupUID(n.ID)

		log.Successf("added %s\n", n.Title)
		output.NodeInfo(n, uid)

		return nil
	}
}
