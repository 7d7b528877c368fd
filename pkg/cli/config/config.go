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

// Package config reads and writes the client configuration file
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bobbysync/bobbysync/pkg/cli/consts"
	"github.com/bobbysync/bobbysync/pkg/cli/context"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	// DefaultAPIEndpoint is the API endpoint written to a new config file
	DefaultAPIEndpoint = "http://127.0.0.1:8080/v1"
	// DefaultInterval is the default push and pull interval
	DefaultInterval = time.Minute
	// DefaultPullPageSize is the default number of operations per pull
	DefaultPullPageSize = 200
	// MinInterval is the shortest allowed interval
	MinInterval = time.Second
)

// ErrIntervalInvalid is an error for an interval that cannot be parsed
var ErrIntervalInvalid = errors.New("invalid interval")

// Config holds bobbysync configuration
type Config struct {
	APIEndpoint  string `yaml:"apiEndpoint"`
	AuthToken    string `yaml:"authToken,omitempty"`
	PushInterval string `yaml:"pushInterval,omitempty"`
	PullInterval string `yaml:"pullInterval,omitempty"`
	PullPageSize int    `yaml:"pullPageSize,omitempty"`
}

// Default returns the configuration written on first run
func Default(apiEndpoint string) Config {
	if apiEndpoint == "" {
		apiEndpoint = DefaultAPIEndpoint
	}

	return Config{
		APIEndpoint:  apiEndpoint,
		PushInterval: DefaultInterval.String(),
		PullInterval: DefaultInterval.String(),
		PullPageSize: DefaultPullPageSize,
	}
}

// GetPath returns the path to the bobbysync config file
func GetPath(ctx context.BobbyCtx) string {
	if ctx.ConfigPath != "" {
		return ctx.ConfigPath
	}

	return filepath.Join(ctx.Paths.Config, consts.BobbySyncDirName, consts.ConfigFilename)
}

// Read reads the config file
func Read(ctx context.BobbyCtx) (Config, error) {
	return ReadFile(GetPath(ctx))
}

// ReadFile reads the config file at the given path
func ReadFile(path string) (Config, error) {
	var ret Config

	b, err := os.ReadFile(path)
	if err != nil {
		return ret, errors.Wrap(err, "reading config file")
	}

	err = yaml.Unmarshal(b, &ret)
	if err != nil {
		return ret, errors.Wrap(err, "unmarshalling config")
	}

	return ret, nil
}

// Write writes the config to the config file
func Write(ctx context.BobbyCtx, cf Config) error {
	path := GetPath(ctx)

	b, err := yaml.Marshal(cf)
	if err != nil {
		return errors.Wrap(err, "marshalling config into YAML")
	}

	// the file may hold a token
	err = os.WriteFile(path, b, 0600)
	if err != nil {
		return errors.Wrap(err, "writing the config file")
	}

	return nil
}

func parseInterval(s string) (time.Duration, error) {
	if s == "" {
		return DefaultInterval, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(ErrIntervalInvalid, "'%s'", s)
	}
	if d < MinInterval {
		return MinInterval, nil
	}

	return d, nil
}

// Intervals returns the push and pull intervals. Empty values fall back
// to the default and short ones are raised to one second.
func (c Config) Intervals() (push, pull time.Duration, err error) {
	if push, err = parseInterval(c.PushInterval); err != nil {
		return 0, 0, errors.Wrap(err, "parsing pushInterval")
	}
	if pull, err = parseInterval(c.PullInterval); err != nil {
		return 0, 0, errors.Wrap(err, "parsing pullInterval")
	}

	return push, pull, nil
}

// PageSize returns the pull page size, falling back to the default for
// non-positive values
func (c Config) PageSize() int {
	if c.PullPageSize <= 0 {
		return DefaultPullPageSize
	}

	return c.PullPageSize
}
