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

package run

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobbysync/bobbysync/pkg/cli/config"
	"github.com/bobbysync/bobbysync/pkg/cli/context"
	"github.com/bobbysync/bobbysync/pkg/cli/infra"
	"github.com/bobbysync/bobbysync/pkg/cli/log"
	"github.com/bobbysync/bobbysync/pkg/cli/syncer"
	"github.com/pkg/errors"
	"github.com/radovskyb/watcher"
	"github.com/spf13/cobra"
)

// configPollInterval is how often the config file is checked for changes
const configPollInterval = 2 * time.Second

var example = `
  bobbysync run`

// NewCmd returns a new run command
func NewCmd(ctx context.BobbyCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Keep the tree in sync until interrupted",
		Long:    "Keep the tree in sync until interrupted. Push and pull intervals are reloaded when the config file changes.",
		Example: example,
		RunE:    newRun(ctx),
	}

	return cmd
}

func intervalsOf(ctx context.BobbyCtx) syncer.Intervals {
	return syncer.Intervals{Push: ctx.PushInterval, Pull: ctx.PullInterval}
}

// reload reads the config file again and reschedules the cycles if the
// intervals changed
func reload(ctx context.BobbyCtx, sched *syncer.Scheduler) (context.BobbyCtx, error) {
	cf, err := config.ReadFile(ctx.ConfigPath)
	if err != nil {
		return ctx, errors.Wrap(err, "reading config")
	}

	next, err := infra.ApplyConfig(ctx, cf)
	if err != nil {
		return ctx, errors.Wrap(err, "applying config")
	}

	if next.APIEndpoint != ctx.APIEndpoint || next.AuthToken != ctx.AuthToken {
		log.Warnf("server settings changed. Restart to use them\n")
	}
	if intervalsOf(next) != intervalsOf(ctx) {
		sched.Configure(intervalsOf(next))
		log.Infof("rescheduled: pull every %s, push every %s\n", next.PullInterval, next.PushInterval)
	}

	return next, nil
}

// configWatcher polls a file and reports writes to it
type configWatcher struct {
	w    *watcher.Watcher
	done chan struct{}
}

func newConfigWatcher(path string) (*configWatcher, error) {
	w := watcher.New()
	w.SetMaxEvents(1)
	w.FilterOps(watcher.Write, watcher.Create)

	if err := w.Add(path); err != nil {
		return nil, errors.Wrapf(err, "watching %s", path)
	}

	return &configWatcher{w: w, done: make(chan struct{})}, nil
}

// start polls in the background and calls onChange for every change. It
// returns once polling has begun.
func (c *configWatcher) start(interval time.Duration, onChange func()) {
	go func() {
		defer close(c.done)

		for {
			select {
			case <-c.w.Event:
				onChange()
			case err := <-c.w.Error:
				log.Errorf("watching config: %s\n", err.Error())
			case <-c.w.Closed:
				return
			}
		}
	}()

	go func() {
		if err := c.w.Start(interval); err != nil {
			log.Errorf("watching config: %s\n", err.Error())
		}
	}()

	c.w.Wait()
}

func (c *configWatcher) close() {
	c.w.Close()
	<-c.done
}

func newRun(ctx context.BobbyCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		s, err := infra.OpenSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		sched := syncer.NewScheduler(infra.NewDriver(ctx, s))
		sched.RunOnce()
		sched.Configure(intervalsOf(ctx))
		defer sched.Stop()

		cw, err := newConfigWatcher(ctx.ConfigPath)
		if err != nil {
			return err
		}
		reloads := make(chan struct{}, 1)
		cw.start(configPollInterval, func() {
			select {
			case reloads <- struct{}{}:
			default:
			}
		})
		defer cw.close()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		log.Infof("syncing with %s. Press Ctrl+C to stop\n", ctx.APIEndpoint)

		for {
			select {
			case <-reloads:
				next, err := reload(ctx, sched)
				if err != nil {
					log.Errorf("%s\n", err.Error())
					continue
				}
				ctx = next
			case <-sig:
				log.Plain("\n")
				log.Info("stopping\n")
				return nil
			}
		}
	}
}
