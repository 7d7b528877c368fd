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

package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/bobbysync/bobbysync/pkg/clock"
	"github.com/bobbysync/bobbysync/pkg/server/app"
	"github.com/bobbysync/bobbysync/pkg/server/config"
	"github.com/bobbysync/bobbysync/pkg/server/database"
	"github.com/bobbysync/bobbysync/pkg/server/log"
	"github.com/bobbysync/bobbysync/pkg/server/oplog"
	"github.com/bobbysync/bobbysync/pkg/server/storage"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func closeDB(db *gorm.DB) func() {
	return func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

// initStore opens the store selected by the configuration. The returned
// function releases it.
func initStore(cfg config.Config) (oplog.Store, func(), error) {
	switch cfg.Store {
	case config.StoreFile:
		return storage.NewFileStore(cfg.StorePath()), func() {}, nil
	case config.StoreSQLite, config.StorePostgres:
		driver, dsn := database.DriverSQLite, cfg.StorePath()
		if cfg.Store == config.StorePostgres {
			driver, dsn = database.DriverPostgres, cfg.DatabaseURL
		}

		db, err := database.Open(driver, dsn, cfg.LogLevel)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Prepare(db); err != nil {
			closeDB(db)()
			return nil, nil, errors.Wrap(err, "preparing database")
		}

		return database.NewStore(db), closeDB(db), nil
	}

	return nil, nil, errors.Wrapf(config.ErrStoreInvalid, "'%s'", cfg.Store)
}

func initApp(cfg config.Config) (app.App, func(), error) {
	store, cleanup, err := initStore(cfg)
	if err != nil {
		return app.App{}, nil, errors.Wrap(err, "initializing store")
	}

	c := clock.New()
	l, err := oplog.Open(store, oplog.Options{
		MaxLogOps:    cfg.MaxLogOps,
		MaxPullLimit: cfg.MaxPullLimit,
		Clock:        c,
	})
	if err != nil {
		cleanup()
		return app.App{}, nil, errors.Wrap(err, "opening operation log")
	}

	if cfg.AuthToken == "" {
		log.Warn("AUTH_TOKEN is not set. Writes are accepted without authorization.")
	}

	return app.App{
		Log:            l,
		Clock:          c,
		AuthToken:      cfg.AuthToken,
		CORSOrigin:     cfg.CORSOrigin,
		BodyLimitBytes: cfg.BodyLimitBytes(),
		RateLimit:      !cfg.DisableRateLimit,
	}, cleanup, nil
}

// printFlags prints flags with -- prefix
func printFlags(fs *flag.FlagSet) {
	fs.VisitAll(func(f *flag.Flag) {
		fmt.Printf("  --%s", f.Name)

		name, usage := flag.UnquoteUsage(f)
		if name != "" {
			fmt.Printf(" %s", name)
		}
		fmt.Println()

		if usage != "" {
			fmt.Printf("    \t%s", usage)
			if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" {
				fmt.Printf(" (default: %s)", f.DefValue)
			}
			fmt.Println()
		}
	})
}

// setupFlagSet creates a FlagSet with standard usage format
func setupFlagSet(name, usageCmd string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Printf(`Usage:
  %s [flags]

Flags:
`, usageCmd)
		printFlags(fs)
	}
	return fs
}

// storeFlags are the flags shared by the commands that open the store
type storeFlags struct {
	envFile     *string
	dataDir     *string
	store       *string
	databaseURL *string
	logLevel    *string
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		envFile:     fs.String("envFile", config.DefaultEnvFile, "Path to a dotenv file loaded before reading the environment"),
		dataDir:     fs.String("dataDir", "", "Directory holding the store (env: DATA_DIR, default: $XDG_DATA_HOME/bobbysync)"),
		store:       fs.String("store", "", "Store kind: file, sqlite or postgres (env: STORE, default: file)"),
		databaseURL: fs.String("databaseUrl", "", "Postgres connection URL (env: DATABASE_URL)"),
		logLevel:    fs.String("logLevel", "", "Log level: debug, info, warn, or error (env: LOG_LEVEL, default: info)"),
	}
}

// exitWithUsage prints the error and the usage of the flag set, then exits
func exitWithUsage(fs *flag.FlagSet, err error) {
	fmt.Printf("Error: %s\n\n", err)
	fs.Usage()
	os.Exit(1)
}
