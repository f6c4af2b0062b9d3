package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// ResolvedEnvironment represents a fully-resolved environment with concrete values.
type ResolvedEnvironment struct {
	Name          string
	DatabaseURL   string
	StateFile     string
	StateTable    string
	MigrationsDir string
	DotenvPath    string
	FromConfig    bool
	FromDotenv    bool
}

// ResolveEnvironment resolves a named environment into concrete settings.
// Values from .env.<name> override lockstep.toml. An empty name selects the
// configured default environment.
func ResolveEnvironment(config *Config, name string) (*ResolvedEnvironment, error) {
	envName := strings.TrimSpace(name)
	if envName == "" {
		if config != nil && config.DefaultEnvironment != "" {
			envName = config.DefaultEnvironment
		} else {
			envName = defaultEnvironmentName
		}
	}

	var (
		envConfig EnvironmentConfig
		envExists bool
	)
	if config != nil && config.Environments != nil {
		if cfg, ok := config.Environments[envName]; ok {
			envConfig = cfg
			envExists = true
		}
	}

	resolved := &ResolvedEnvironment{
		Name:          envName,
		DatabaseURL:   envConfig.DatabaseURL,
		StateFile:     envConfig.StateFile,
		StateTable:    envConfig.StateTable,
		MigrationsDir: config.MigrationsPath(),
		FromConfig:    envExists,
	}

	if resolved.StateTable == "" && config != nil {
		resolved.StateTable = config.StateTable
	}

	var (
		baseDir        = config.ConfigDir()
		projectDir     = config.ProjectDir()
		dotenvFileName = ".env." + envName
	)
	if baseDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			baseDir = cwd
		}
	}

	if baseDir != "" {
		resolved.DotenvPath = filepath.Join(baseDir, dotenvFileName)
	} else {
		resolved.DotenvPath = dotenvFileName
	}

	if _, err := os.Stat(resolved.DotenvPath); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to access %s: %w", resolved.DotenvPath, err)
		}
		if projectDir != "" && projectDir != baseDir {
			altPath := filepath.Join(projectDir, dotenvFileName)
			if altInfo, altErr := os.Stat(altPath); altErr == nil && !altInfo.IsDir() {
				resolved.DotenvPath = altPath
			}
		}
	}

	if info, err := os.Stat(resolved.DotenvPath); err == nil && !info.IsDir() {
		values, err := godotenv.Read(resolved.DotenvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", resolved.DotenvPath, err)
		}
		resolved.FromDotenv = true
		applyDotenv(resolved, values)
	}

	if resolved.StateTable == "" {
		resolved.StateTable = defaultStateTable
	}
	resolved.StateFile = resolvePath(resolved.StateFile, config.ConfigDir())

	if config != nil && len(config.Environments) > 0 && !envExists && !resolved.FromDotenv {
		return nil, fmt.Errorf("environment %q not defined in %s and %s not found", envName, ConfigFileName, resolved.DotenvPath)
	}

	return resolved, nil
}

// applyDotenv copies connection settings from a dotenv file. The first of
// DATABASE_URL, POSTGRES_URL, SQLITE_DB_PATH and LIBSQL_URL that is set wins.
func applyDotenv(resolved *ResolvedEnvironment, values map[string]string) {
	switch {
	case values["DATABASE_URL"] != "":
		resolved.DatabaseURL = values["DATABASE_URL"]
	case values["POSTGRES_URL"] != "":
		resolved.DatabaseURL = values["POSTGRES_URL"]
	case values["SQLITE_DB_PATH"] != "":
		resolved.DatabaseURL = values["SQLITE_DB_PATH"]
	case values["LIBSQL_URL"] != "":
		// Construct libSQL connection string with auth token if available
		if authToken := values["LIBSQL_AUTH_TOKEN"]; authToken != "" {
			resolved.DatabaseURL = fmt.Sprintf("%s?authToken=%s", values["LIBSQL_URL"], authToken)
		} else {
			resolved.DatabaseURL = values["LIBSQL_URL"]
		}
	}

	if value := values["LOCKSTEP_STATE_TABLE"]; value != "" {
		resolved.StateTable = value
	}
	if value := values["LOCKSTEP_STATE_FILE"]; value != "" {
		resolved.StateFile = value
	}
}
