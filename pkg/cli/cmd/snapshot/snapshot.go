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

package snapshot

import (
	"github.com/bobbysync/bobbysync/pkg/cli/client"
	"github.com/bobbysync/bobbysync/pkg/cli/context"
	"github.com/bobbysync/bobbysync/pkg/cli/engine"
	"github.com/bobbysync/bobbysync/pkg/cli/infra"
	"github.com/bobbysync/bobbysync/pkg/cli/log"
	"github.com/bobbysync/bobbysync/pkg/cli/syncer"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ErrPendingChanges is an error for publishing a snapshot while local
// changes are not pushed yet
var ErrPendingChanges = errors.New("There are local changes that are not pushed. Run 'bobbysync sync' first")

var example = `
  bobbysync snapshot`

// NewCmd returns a new snapshot command
func NewCmd(ctx context.BobbyCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snapshot",
		Short:   "Publish the local tree as the server snapshot",
		Long:    "Publish the local tree as the server snapshot. New devices start from the latest snapshot instead of replaying the whole log.",
		Example: example,
		RunE:    newRun(ctx),
	}

	return cmd
}

// Publish brings the session up to date and uploads its tree tagged with
// the cursor. It refuses to publish while the queue holds operations the
// server has not seen.
func Publish(s *engine.Session, d *syncer.Driver, c *client.Client) (int64, int, error) {
	if _, err := d.Pull(); err != nil {
		return 0, 0, errors.Wrap(err, "pulling")
	}

	n, err := s.Queue().Len()
	if err != nil {
		return 0, 0, errors.Wrap(err, "counting queued operations")
	}
	if n > 0 {
		return 0, 0, ErrPendingChanges
	}

	data, err := s.BuildSnapshot()
	if err != nil {
		return 0, 0, errors.Wrap(err, "building the snapshot")
	}
	cursor, err := s.Cursor()
	if err != nil {
		return 0, 0, errors.Wrap(err, "reading the cursor")
	}

	res, err := c.PutSnapshot(&cursor, data)
	if err != nil {
		return 0, 0, errors.Wrap(err, "uploading the snapshot")
	}

	return res.Version, len(data.Nodes), nil
}

func newRun(ctx context.BobbyCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		s, err := infra.OpenSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		version, count, err := Publish(s, infra.NewDriver(ctx, s), infra.NewClient(ctx))
		if err != nil {
			return err
		}

		log.Successf("published %d nodes at version %d\n", count, version)

		return nil
	}
}
