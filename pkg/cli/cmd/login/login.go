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

package login

import (
	"net/http"
	"net/url"

	"github.com/bobbysync/bobbysync/pkg/cli/client"
	"github.com/bobbysync/bobbysync/pkg/cli/config"
	"github.com/bobbysync/bobbysync/pkg/cli/context"
	"github.com/bobbysync/bobbysync/pkg/cli/infra"
	"github.com/bobbysync/bobbysync/pkg/cli/log"
	"github.com/bobbysync/bobbysync/pkg/cli/ui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
  bobbysync login

  * Log in to another server
  bobbysync login --apiEndpoint https://sync.example.com/v1`

var tokenFlag string
var apiEndpointFlag string

// NewCmd returns a new login command
func NewCmd(ctx context.BobbyCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "login",
		Short:   "Save the access token of the server",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVarP(&tokenFlag, "token", "t", "", "token value (prompted when omitted)")
	f.StringVar(&apiEndpointFlag, "apiEndpoint", "", "API endpoint to connect to (defaults to value in config)")

	return cmd
}

// getServerDisplayURL returns the scheme and host of the endpoint
func getServerDisplayURL(ctx context.BobbyCtx) string {
	u, err := url.Parse(ctx.APIEndpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}

	return u.Scheme + "://" + u.Host
}

// Do checks the token against the server and saves it together with the
// endpoint
func Do(ctx context.BobbyCtx, token string) error {
	c := client.New(ctx.APIEndpoint, token, ctx.Version, ctx.HTTPClient)

	// pulling nothing is the cheapest authenticated request
	if _, err := c.Pull(0, 1); err != nil {
		if client.IsHTTPError(err, http.StatusUnauthorized) {
			return errors.New("the server rejected the token")
		}

		return errors.Wrap(err, "checking the token")
	}

	cf, err := config.Read(ctx)
	if err != nil {
		return errors.Wrap(err, "reading config")
	}
	cf.APIEndpoint = ctx.APIEndpoint
	cf.AuthToken = token

	if err := config.Write(ctx, cf); err != nil {
		return errors.Wrap(err, "saving the token")
	}

	return nil
}

func newRun(ctx context.BobbyCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		if apiEndpointFlag != "" {
			ctx.APIEndpoint = apiEndpointFlag
		}

		log.Infof("logging in to %s\n", getServerDisplayURL(ctx))

		token := tokenFlag
		if token == "" {
			if err := ui.PromptPassword("token", &token); err != nil {
				return errors.Wrap(err, "getting token input")
			}
		}
		if token == "" {
			return errors.New("Empty token")
		}

		if err := Do(ctx, token); err != nil {
			return err
		}

		log.Success("logged in\n")

		return nil
	}
}
