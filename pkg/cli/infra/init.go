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

// Package infra sets up the local environment of the bobbysync client and
// assembles the sync components
package infra

import (
	"path/filepath"
	"strconv"
	"time"

	"github.com/bobbysync/bobbysync/pkg/cli/client"
	"github.com/bobbysync/bobbysync/pkg/cli/config"
	"github.com/bobbysync/bobbysync/pkg/cli/consts"
	"github.com/bobbysync/bobbysync/pkg/cli/context"
	"github.com/bobbysync/bobbysync/pkg/cli/database"
	"github.com/bobbysync/bobbysync/pkg/cli/engine"
	"github.com/bobbysync/bobbysync/pkg/cli/log"
	"github.com/bobbysync/bobbysync/pkg/cli/syncer"
	"github.com/bobbysync/bobbysync/pkg/cli/tree"
	"github.com/bobbysync/bobbysync/pkg/cli/utils"
	"github.com/bobbysync/bobbysync/pkg/clock"
	"github.com/bobbysync/bobbysync/pkg/dirs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// RunEFunc is a function type of bobbysync commands
type RunEFunc func(*cobra.Command, []string) error

func getDBPath(paths context.Paths, customPath string) string {
	if customPath != "" {
		return customPath
	}

	return filepath.Join(paths.Data, consts.BobbySyncDirName, consts.BobbySyncDBFileName)
}

// newBaseCtx creates a minimal context with paths and database connection.
// setupCtx later enriches it with config values.
func newBaseCtx(versionTag, customDBPath string) (context.BobbyCtx, error) {
	paths := context.Paths{
		Home:   dirs.Home,
		Config: dirs.ConfigHome,
		Data:   dirs.DataHome,
	}

	// the database directory must exist before sqlite opens the file
	if err := context.InitDirs(paths); err != nil {
		return context.BobbyCtx{}, errors.Wrap(err, "creating the bobbysync dirs")
	}

	dbPath := getDBPath(paths, customDBPath)
	db, err := database.Open(dbPath)
	if err != nil {
		return context.BobbyCtx{}, errors.Wrap(err, "connecting to db")
	}

	ctx := context.BobbyCtx{
		Paths:      paths,
		ConfigPath: filepath.Join(paths.Config, consts.BobbySyncDirName, consts.ConfigFilename),
		Version:    versionTag,
		DB:         db,
	}

	return ctx, nil
}

// Init initializes the bobbysync environment and returns a new context.
// A non-empty apiEndpoint overrides the configured one without changing
// the config file.
func Init(versionTag, apiEndpoint, dbPath string) (*context.BobbyCtx, error) {
	ctx, err := newBaseCtx(versionTag, dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "initializing a context")
	}

	if err := initConfigFile(ctx, apiEndpoint); err != nil {
		return nil, errors.Wrap(err, "generating the config file")
	}

	n, err := database.Migrate(ctx.DB)
	if err != nil {
		return nil, errors.Wrap(err, "running migrations")
	}
	log.Debug("applied %d migrations\n", n)

	if err := InitSystem(ctx); err != nil {
		return nil, errors.Wrap(err, "initializing system data")
	}

	ctx, err = setupCtx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "setting up the context")
	}
	if apiEndpoint != "" {
		ctx.APIEndpoint = apiEndpoint
	}

	log.Debug("context: %+v\n", context.Redact(ctx))

	return &ctx, nil
}

// setupCtx enriches the base context with values from the config file
func setupCtx(ctx context.BobbyCtx) (context.BobbyCtx, error) {
	cf, err := config.Read(ctx)
	if err != nil {
		return ctx, errors.Wrap(err, "reading config")
	}

	return ApplyConfig(ctx, cf)
}

// ApplyConfig returns a copy of the context carrying the given config
func ApplyConfig(ctx context.BobbyCtx, cf config.Config) (context.BobbyCtx, error) {
	push, pull, err := cf.Intervals()
	if err != nil {
		return ctx, err
	}

	ret := ctx
	ret.APIEndpoint = cf.APIEndpoint
	ret.AuthToken = cf.AuthToken
	ret.PushInterval = push
	ret.PullInterval = pull
	ret.PullPageSize = cf.PageSize()
	if ret.Clock == nil {
		ret.Clock = clock.New()
	}
	if ret.HTTPClient == nil {
		ret.HTTPClient = client.NewRateLimitedHTTPClient()
	}

	return ret, nil
}

// InitSystem inserts system data if missing
func InitSystem(ctx context.BobbyCtx) error {
	log.Debug("initializing the system\n")

	tx, err := ctx.DB.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning a transaction")
	}

	if err := database.InitSystemKV(tx, consts.SystemLastVersion, "0"); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "initializing system config for %s", consts.SystemLastVersion)
	}
	nowStr := strconv.FormatInt(time.Now().Unix(), 10)
	if err := database.InitSystemKV(tx, consts.SystemLastSyncAt, "0"); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "initializing system config for %s", consts.SystemLastSyncAt)
	}
	if err := database.InitSystemKV(tx, consts.SystemInitializedAt, nowStr); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "initializing system config for %s", consts.SystemInitializedAt)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}

	return nil
}

// initConfigFile populates a new config file if it does not exist yet
func initConfigFile(ctx context.BobbyCtx, apiEndpoint string) error {
	path := config.GetPath(ctx)
	ok, err := utils.FileExists(path)
	if err != nil {
		return errors.Wrap(err, "checking if config exists")
	}
	if ok {
		return nil
	}

	if err := config.Write(ctx, config.Default(apiEndpoint)); err != nil {
		return errors.Wrap(err, "writing config")
	}

	return nil
}

// OpenSession opens the sync session of the local tree
func OpenSession(ctx context.BobbyCtx) (*engine.Session, error) {
	c := ctx.Clock
	if c == nil {
		c = clock.New()
	}

	t := tree.NewSQLTree(ctx.DB, c)
	s, err := engine.Open(ctx.DB, t, c)
	if err != nil {
		return nil, errors.Wrap(err, "opening the sync session")
	}

	return s, nil
}

// NewClient returns a client of the configured server
func NewClient(ctx context.BobbyCtx) *client.Client {
	return client.New(ctx.APIEndpoint, ctx.AuthToken, ctx.Version, ctx.HTTPClient)
}

// NewDriver returns a sync driver for the session talking to the
// configured server
func NewDriver(ctx context.BobbyCtx, s *engine.Session) *syncer.Driver {
	return syncer.New(syncer.Params{
		Session:  s,
		Remote:   NewClient(ctx),
		DB:       ctx.DB,
		Clock:    ctx.Clock,
		PageSize: ctx.PullPageSize,
	})
}
