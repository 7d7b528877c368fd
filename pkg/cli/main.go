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

package main

import (
	"os"
	"strings"

	"github.com/bobbysync/bobbysync/pkg/cli/infra"
	"github.com/bobbysync/bobbysync/pkg/cli/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	// commands
	"github.com/bobbysync/bobbysync/pkg/cli/cmd/add"
	"github.com/bobbysync/bobbysync/pkg/cli/cmd/edit"
	"github.com/bobbysync/bobbysync/pkg/cli/cmd/login"
	"github.com/bobbysync/bobbysync/pkg/cli/cmd/logout"
	"github.com/bobbysync/bobbysync/pkg/cli/cmd/ls"
	"github.com/bobbysync/bobbysync/pkg/cli/cmd/mv"
	"github.com/bobbysync/bobbysync/pkg/cli/cmd/remove"
	"github.com/bobbysync/bobbysync/pkg/cli/cmd/root"
	"github.com/bobbysync/bobbysync/pkg/cli/cmd/run"
	"github.com/bobbysync/bobbysync/pkg/cli/cmd/snapshot"
	"github.com/bobbysync/bobbysync/pkg/cli/cmd/status"
	"github.com/bobbysync/bobbysync/pkg/cli/cmd/sync"
	"github.com/bobbysync/bobbysync/pkg/cli/cmd/version"
)

// apiEndpoint and versionTag are populated during link time
var apiEndpoint string
var versionTag = "master"

// parseDBPath extracts the --dbPath value wherever it appears in the
// arguments. It returns an empty string if the flag is absent.
func parseDBPath(args []string) string {
	for i, arg := range args {
		if strings.HasPrefix(arg, "--dbPath=") {
			return strings.TrimPrefix(arg, "--dbPath=")
		}
		if arg == "--dbPath" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func main() {
	// --dbPath can follow the subcommand, which root.ParseFlags does not see
	dbPath := parseDBPath(os.Args[1:])

	ctx, err := infra.Init(versionTag, apiEndpoint, dbPath)
	if err != nil {
		panic(errors.Wrap(err, "initializing context"))
	}
	defer ctx.DB.Close()

	root.Register(add.NewCmd(*ctx))
	root.Register(edit.NewCmd(*ctx))
	root.Register(ls.NewCmd(*ctx))
	root.Register(mv.NewCmd(*ctx))
	root.Register(remove.NewCmd(*ctx))
	root.Register(sync.NewCmd(*ctx))
	root.Register(run.NewCmd(*ctx))
	root.Register(snapshot.NewCmd(*ctx))
	root.Register(status.NewCmd(*ctx))
	root.Register(login.NewCmd(*ctx))
	root.Register(logout.NewCmd(*ctx))
	root.Register(version.NewCmd(*ctx))

	if err := root.Execute(); err != nil {
		log.Errorf("%s\n", err.Error())
		os.Exit(1)
	}
}
