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
	"fmt"
	"os"

	"github.com/bobbysync/bobbysync/pkg/server/config"
	"github.com/bobbysync/bobbysync/pkg/server/log"
	"github.com/bobbysync/bobbysync/pkg/server/oplog"
)

func inspectCmd(args []string) {
	fs := setupFlagSet("inspect", "bobbysync-server inspect")
	sf := addStoreFlags(fs)

	fs.Parse(args)

	if err := config.LoadEnvFile(*sf.envFile); err != nil {
		exitWithUsage(fs, err)
	}

	cfg, err := config.New(config.Params{
		DataDir:     *sf.dataDir,
		Store:       *sf.store,
		DatabaseURL: *sf.databaseURL,
		LogLevel:    *sf.logLevel,
	})
	if err != nil {
		exitWithUsage(fs, err)
	}

	log.SetLevel(log.LevelWarn)

	store, cleanup, err := initStore(cfg)
	if err != nil {
		log.ErrorWrap(err, "initializing store")
		os.Exit(1)
	}
	defer cleanup()

	state, err := store.Load()
	if err != nil {
		log.ErrorWrap(err, "loading store")
		os.Exit(1)
	}

	printState(state)
}

func printState(state oplog.State) {
	fmt.Printf("version:  %d\n", state.Version)
	fmt.Printf("ops:      %d\n", len(state.Ops))
	if n := len(state.Ops); n > 0 {
		fmt.Printf("oldest:   %d\n", state.Ops[0].Version)
		fmt.Printf("newest:   %d\n", state.Ops[n-1].Version)
	}

	if state.Snapshot == nil {
		fmt.Println("snapshot: none")
		return
	}

	fmt.Printf("snapshot: version %d taken at %s\n", state.Snapshot.Version, state.Snapshot.TakenAt)
}
