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
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobbysync/bobbysync/pkg/server/buildinfo"
	"github.com/bobbysync/bobbysync/pkg/server/config"
	"github.com/bobbysync/bobbysync/pkg/server/controllers"
	"github.com/bobbysync/bobbysync/pkg/server/log"
	"github.com/pkg/errors"
)

const shutdownTimeout = 10 * time.Second

func startCmd(args []string) {
	fs := setupFlagSet("start", "bobbysync-server start")

	sf := addStoreFlags(fs)
	port := fs.String("port", "", "Server port (env: PORT, default: 8080)")
	authToken := fs.String("authToken", "", "Bearer token required for writes (env: AUTH_TOKEN)")
	maxPullLimit := fs.Int("maxPullLimit", 0, "Largest page served by pull (env: MAX_PULL_LIMIT, default: 1000)")
	maxLogOps := fs.Int("maxLogOps", 0, "Number of operations retained (env: MAX_LOG_OPS, default: 50000)")
	bodyLimitMB := fs.Int("bodyLimitMb", 0, "Request body cap in megabytes (env: BODY_LIMIT_MB, default: 5)")
	corsOrigin := fs.String("corsOrigin", "", "Value of Access-Control-Allow-Origin (env: CORS_ORIGIN, default: *)")
	disableRateLimit := fs.Bool("disableRateLimit", false, "Disable per-IP rate limiting (env: RATE_LIMIT=false)")

	fs.Parse(args)

	if err := config.LoadEnvFile(*sf.envFile); err != nil {
		exitWithUsage(fs, err)
	}

	cfg, err := config.New(config.Params{
		Port:             *port,
		DataDir:          *sf.dataDir,
		Store:            *sf.store,
		DatabaseURL:      *sf.databaseURL,
		AuthToken:        *authToken,
		MaxPullLimit:     *maxPullLimit,
		MaxLogOps:        *maxLogOps,
		BodyLimitMB:      *bodyLimitMB,
		CORSOrigin:       *corsOrigin,
		LogLevel:         *sf.logLevel,
		DisableRateLimit: *disableRateLimit,
	})
	if err != nil {
		exitWithUsage(fs, err)
	}

	log.SetLevel(cfg.LogLevel)

	app, cleanup, err := initApp(cfg)
	if err != nil {
		log.ErrorWrap(err, "initializing app")
		os.Exit(1)
	}
	defer cleanup()

	ctl := controllers.New(&app)
	rc := controllers.RouteConfig{
		APIRoutes:   controllers.NewAPIRoutes(&app, ctl),
		Controllers: ctl,
	}

	r, err := controllers.NewRouter(&app, rc)
	if err != nil {
		panic(errors.Wrap(err, "initializing router"))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.ErrorWrap(err, "shutting down")
		}
	}()

	version, count := app.Log.Stats()
	log.WithFields(log.Fields{
		"version":    buildinfo.Version,
		"port":       cfg.Port,
		"store":      cfg.Store,
		"logVersion": version,
		"logOps":     count,
	}).Info("BobbySync server starting")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.ErrorWrap(err, "server failed")
		os.Exit(1)
	}

	log.Info("Server stopped")
}
