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

package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/bobbysync/bobbysync/pkg/dirs"
	"github.com/bobbysync/bobbysync/pkg/server/log"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	// StoreFile keeps the log in a single JSON file
	StoreFile = "file"
	// StoreSQLite keeps the log in a sqlite database
	StoreSQLite = "sqlite"
	// StorePostgres keeps the log in a postgres database
	StorePostgres = "postgres"

	// DefaultPort is the default listening port
	DefaultPort = "8080"
	// DefaultMaxPullLimit is the default page size cap for pulls
	DefaultMaxPullLimit = 1000
	// DefaultMaxLogOps is the default number of retained operations
	DefaultMaxLogOps = 50000
	// DefaultBodyLimitMB is the default request body cap in megabytes
	DefaultBodyLimitMB = 5
	// DefaultEnvFile is the dotenv file read at startup when present
	DefaultEnvFile = ".env"

	sqliteFilename = "server.db"
	storeFilename  = "store.json"
)

var (
	// ErrPortInvalid is an error for an invalid port
	ErrPortInvalid = errors.New("Invalid Port")
	// ErrDataDirMissing is an error for a missing data directory
	ErrDataDirMissing = errors.New("Data directory is empty")
	// ErrStoreInvalid is an error for an unknown store kind
	ErrStoreInvalid = errors.New("Invalid store")
	// ErrDatabaseURLMissing is an error for a postgres store without a database URL
	ErrDatabaseURLMissing = errors.New("DATABASE_URL is required for the postgres store")
	// ErrLimitInvalid is an error for a non-positive numeric limit
	ErrLimitInvalid = errors.New("Limits must be positive")
	// ErrLogLevelInvalid is an error for an unknown log level
	ErrLogLevelInvalid = errors.New("Invalid log level")
	// ErrNumberInvalid is an error for an environment variable that is not a number
	ErrNumberInvalid = errors.New("Invalid number")
)

// getOrEnv returns value if non-empty, otherwise env var, otherwise default
func getOrEnv(value, envKey, defaultVal string) string {
	if value != "" {
		return value
	}
	if env := os.Getenv(envKey); env != "" {
		return env
	}
	return defaultVal
}

// getIntOrEnv is getOrEnv for integers. A zero value is treated as unset.
func getIntOrEnv(value int, envKey string, defaultVal int) (int, error) {
	if value != 0 {
		return value, nil
	}

	env := os.Getenv(envKey)
	if env == "" {
		return defaultVal, nil
	}

	n, err := strconv.Atoi(env)
	if err != nil {
		return 0, errors.Wrapf(ErrNumberInvalid, "%s='%s'", envKey, env)
	}

	return n, nil
}

// LoadEnvFile loads variables from a dotenv file without overriding the
// ones already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "loading %s", path)
	}

	return nil
}

// Config is a server configuration
type Config struct {
	Port             string
	DataDir          string
	Store            string
	DatabaseURL      string
	AuthToken        string
	MaxPullLimit     int
	MaxLogOps        int
	BodyLimitMB      int
	CORSOrigin       string
	LogLevel         string
	DisableRateLimit bool
}

// Params are the configuration parameters for creating a new Config.
// Zero values fall back to environment variables and then to defaults.
type Params struct {
	Port             string
	DataDir          string
	Store            string
	DatabaseURL      string
	AuthToken        string
	MaxPullLimit     int
	MaxLogOps        int
	BodyLimitMB      int
	CORSOrigin       string
	LogLevel         string
	DisableRateLimit bool
}

// New constructs and returns a new validated config
func New(p Params) (Config, error) {
	c := Config{
		Port:             getOrEnv(p.Port, "PORT", DefaultPort),
		DataDir:          getOrEnv(p.DataDir, "DATA_DIR", dirs.AppDataDir()),
		Store:            getOrEnv(p.Store, "STORE", StoreFile),
		DatabaseURL:      getOrEnv(p.DatabaseURL, "DATABASE_URL", ""),
		AuthToken:        getOrEnv(p.AuthToken, "AUTH_TOKEN", ""),
		CORSOrigin:       getOrEnv(p.CORSOrigin, "CORS_ORIGIN", "*"),
		LogLevel:         getOrEnv(p.LogLevel, "LOG_LEVEL", log.LevelInfo),
		DisableRateLimit: p.DisableRateLimit || os.Getenv("RATE_LIMIT") == "false",
	}

	var err error
	if c.MaxPullLimit, err = getIntOrEnv(p.MaxPullLimit, "MAX_PULL_LIMIT", DefaultMaxPullLimit); err != nil {
		return Config{}, err
	}
	if c.MaxLogOps, err = getIntOrEnv(p.MaxLogOps, "MAX_LOG_OPS", DefaultMaxLogOps); err != nil {
		return Config{}, err
	}
	if c.BodyLimitMB, err = getIntOrEnv(p.BodyLimitMB, "BODY_LIMIT_MB", DefaultBodyLimitMB); err != nil {
		return Config{}, err
	}

	if err := validate(c); err != nil {
		return Config{}, err
	}

	return c, nil
}

// StorePath returns the file backing the file and sqlite stores
func (c Config) StorePath() string {
	if c.Store == StoreSQLite {
		return filepath.Join(c.DataDir, sqliteFilename)
	}

	return filepath.Join(c.DataDir, storeFilename)
}

// BodyLimitBytes returns the request body cap in bytes
func (c Config) BodyLimitBytes() int64 {
	return int64(c.BodyLimitMB) << 20
}

func validate(c Config) error {
	if _, err := strconv.Atoi(c.Port); err != nil || c.Port == "" {
		return errors.Wrapf(ErrPortInvalid, "'%s'", c.Port)
	}

	switch c.Store {
	case StoreFile, StoreSQLite:
		if c.DataDir == "" {
			return ErrDataDirMissing
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return ErrDatabaseURLMissing
		}
	default:
		return errors.Wrapf(ErrStoreInvalid, "'%s'", c.Store)
	}

	if c.MaxPullLimit < 1 || c.MaxLogOps < 1 || c.BodyLimitMB < 1 {
		return ErrLimitInvalid
	}

	switch c.LogLevel {
	case log.LevelDebug, log.LevelInfo, log.LevelWarn, log.LevelError:
	default:
		return errors.Wrapf(ErrLogLevelInvalid, "'%s'", c.LogLevel)
	}

	return nil
}
