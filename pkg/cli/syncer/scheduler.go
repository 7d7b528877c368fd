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

package syncer

import (
	"sync"
	"time"

	"github.com/bobbysync/bobbysync/pkg/cli/log"
	"github.com/pkg/errors"
	"github.com/robfig/cron"
)

// MinInterval is the shortest allowed cycle interval
const MinInterval = time.Second

// Intervals are the periods of the recurring cycles
type Intervals struct {
	Push time.Duration
	Pull time.Duration
}

func (i Intervals) floor() Intervals {
	if i.Push < MinInterval {
		i.Push = MinInterval
	}
	if i.Pull < MinInterval {
		i.Pull = MinInterval
	}

	return i
}

// Scheduler runs the push and pull cycles of a driver periodically
type Scheduler struct {
	driver *Driver

	mu        sync.Mutex
	cron      *cron.Cron
	intervals Intervals
}

// NewScheduler returns a stopped scheduler
func NewScheduler(d *Driver) *Scheduler {
	return &Scheduler{driver: d}
}

// Configure (re)starts the cycles with the given intervals. Cycles already
// running are not interrupted.
func (s *Scheduler) Configure(i Intervals) {
	i = i.floor()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		s.cron.Stop()
	}

	c := cron.New()
	c.Schedule(cron.Every(i.Pull), cron.FuncJob(s.runPull))
	c.Schedule(cron.Every(i.Push), cron.FuncJob(s.runPush))
	c.Start()

	s.cron = c
	s.intervals = i

	log.Debug("scheduled pull every %s, push every %s\n", i.Pull, i.Push)
}

// Intervals returns the active intervals
func (s *Scheduler) Intervals() Intervals {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.intervals
}

// Stop stops scheduling new cycles
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
}

// RunOnce bootstraps if needed and runs one pull and one push
func (s *Scheduler) RunOnce() {
	s.runPull()
	s.runPush()
}

func (s *Scheduler) runPull() {
	if _, err := s.driver.Bootstrap(); err != nil {
		report("bootstrap", err)
		return
	}

	res, err := s.driver.Pull()
	if err != nil {
		report("pull", err)
		return
	}
	if res.Summary.Applied > 0 {
		log.Infof("pulled %d operations, cursor %d\n", res.Summary.Applied, res.Cursor)
	}
}

func (s *Scheduler) runPush() {
	res, err := s.driver.Push()
	if err != nil {
		report("push", err)
		return
	}
	if res.Sent > 0 {
		log.Infof("pushed %d operations (%d new), cursor %d\n", res.Sent, res.Accepted, res.Cursor)
	}
}

func report(cycle string, err error) {
	if errors.Cause(err) == ErrInFlight {
		log.Debug("%s skipped: already running\n", cycle)
		return
	}

	log.Errorf("%s failed: %s\n", cycle, err.Error())
}
