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

package status

import (
	"github.com/bobbysync/bobbysync/pkg/cli/context"
	"github.com/bobbysync/bobbysync/pkg/cli/infra"
	"github.com/bobbysync/bobbysync/pkg/cli/log"
	"github.com/bobbysync/bobbysync/pkg/cli/output"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var remoteFlag bool

var example = `
  * Show the local sync state
  bobbysync status

  * Include the state of the server
  bobbysync status --remote`

// NewCmd returns a new status command
func NewCmd(ctx context.BobbyCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "status",
		Short:   "Show the sync state",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.BoolVarP(&remoteFlag, "remote", "r", false, "query the server as well")

	return cmd
}

func newRun(ctx context.BobbyCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		s, err := infra.OpenSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		st, err := s.Status()
		if err != nil {
			return errors.Wrap(err, "reading the status")
		}
		output.Status(st, ctx.APIEndpoint)

		if !remoteFlag {
			return nil
		}

		h, err := infra.NewClient(ctx).Health()
		if err != nil {
			return errors.Wrap(err, "checking the server")
		}

		log.Infof("server version: %d (%d operations retained)\n", h.Version, h.Ops)
		if h.Version > st.Cursor {
			log.Warnf("%d operations behind the server\n", h.Version-st.Cursor)
		}

		return nil
	}
}
