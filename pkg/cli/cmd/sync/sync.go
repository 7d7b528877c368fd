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

package sync

import (
	"github.com/bobbysync/bobbysync/pkg/cli/context"
	"github.com/bobbysync/bobbysync/pkg/cli/infra"
	"github.com/bobbysync/bobbysync/pkg/cli/log"
	"github.com/bobbysync/bobbysync/pkg/cli/syncer"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
  bobbysync sync`

var apiEndpointFlag string
var pushOnlyFlag bool
var pullOnlyFlag bool

// NewCmd returns a new sync command
func NewCmd(ctx context.BobbyCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sync",
		Aliases: []string{"s"},
		Short:   "Sync the tree with the server",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVar(&apiEndpointFlag, "apiEndpoint", "", "API endpoint to connect to (defaults to value in config)")
	f.BoolVar(&pushOnlyFlag, "push", false, "only send local changes")
	f.BoolVar(&pullOnlyFlag, "pull", false, "only receive remote changes")

	return cmd
}

// Do runs the requested cycles with the driver
func Do(d *syncer.Driver, push, pull bool) (syncer.SyncResult, error) {
	var ret syncer.SyncResult
	var err error

	switch {
	case push && pull:
		return ret, errors.New("--push and --pull cannot be used together")
	case push:
		ret.Push, err = d.Push()
		if err != nil {
			return ret, errors.Wrap(err, "pushing")
		}
	case pull:
		ret.Bootstrap, err = d.Bootstrap()
		if err != nil {
			return ret, errors.Wrap(err, "bootstrapping")
		}
		ret.Pull, err = d.Pull()
		if err != nil {
			return ret, errors.Wrap(err, "pulling")
		}
	default:
		return d.Sync()
	}

	return ret, nil
}

func report(res syncer.SyncResult) {
	if res.Bootstrap.Ran {
		h := res.Bootstrap.Hydrate
		log.Infof("hydrated %d nodes from a snapshot (%d forced)\n", h.Nodes, h.Forced)
		if h.Malformed > 0 {
			log.Warnf("%d snapshot nodes were malformed and skipped\n", h.Malformed)
		}
	}

	sum := res.Pull.Summary
	log.Debug("pull: pages=%d applied=%d skipped=%d failed=%d latest=%d\n", res.Pull.Pages, sum.Applied, sum.Skipped, sum.Failed, res.Pull.Latest)
	log.Debug("push: sent=%d accepted=%d confirmed=%d\n", res.Push.Sent, res.Push.Accepted, res.Push.Confirmed)

	if sum.Failed > 0 {
		log.Warnf("%d remote operations could not be applied\n", sum.Failed)
	}

	cursor := res.Push.Cursor
	if res.Pull.Cursor > cursor {
		cursor = res.Pull.Cursor
	}
	log.Successf("applied %d, sent %d (version %d)\n", sum.Applied, res.Push.Sent, cursor)
}

func newRun(ctx context.BobbyCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		if apiEndpointFlag != "" {
			ctx.APIEndpoint = apiEndpointFlag
		}

		s, err := infra.OpenSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := Do(infra.NewDriver(ctx, s), pushOnlyFlag, pullOnlyFlag)
		if err != nil {
			return errors.Wrap(err, "syncing")
		}

		report(res)

		return nil
	}
}
