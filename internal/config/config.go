package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFileName is the project configuration file looked up by LoadConfig.
const ConfigFileName = "lockstep.toml"

const (
	defaultEnvironmentName = "local"
	defaultMigrationsDir   = "migrations"
	defaultStateTable      = "schema_migrations"
)

// EnvironmentConfig describes a single named environment from lockstep.toml.
type EnvironmentConfig struct {
	DatabaseURL string `toml:"database_url"`
	// StateFile selects the JSON file state store instead of a state table
	StateFile  string `toml:"state_file"`
	StateTable string `toml:"state_table"`
}

// Config represents the lockstep.toml configuration file.
type Config struct {
	DefaultEnvironment string                       `toml:"default_environment"`
	MigrationsDir      string                       `toml:"migrations_dir"`
	StateTable         string                       `toml:"state_table"`
	Environments       map[string]EnvironmentConfig `toml:"environments"`
	ConfigFilePath     string                       `toml:"-"`

	configDir  string
	projectDir string
}

// ConfigDir returns the directory holding lockstep.toml, or "" when no file
// was found.
func (c *Config) ConfigDir() string {
	if c == nil {
		return ""
	}
	return c.configDir
}

// ProjectDir returns the nearest project root at or above the config file.
func (c *Config) ProjectDir() string {
	if c == nil {
		return ""
	}
	if c.projectDir != "" {
		return c.projectDir
	}
	return c.configDir
}

// MigrationsPath returns the migrations directory, resolved against the
// config directory when relative.
func (c *Config) MigrationsPath() string {
	dir := defaultMigrationsDir
	if c != nil && c.MigrationsDir != "" {
		dir = c.MigrationsDir
	}
	return resolvePath(dir, c.ConfigDir())
}

// LoadConfig finds lockstep.toml in the working directory or a parent,
// stopping at the first project root. A missing file yields an empty Config.
func LoadConfig() (*Config, error) {
	startDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	dir := startDir
	for {
		// Check if lockstep.toml exists in current directory
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return LoadConfigFile(configPath)
		}

		// Check if we've reached a project boundary
		if isProjectRoot(dir) {
			break
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return &Config{}, nil
}

// LoadConfigFile reads a specific configuration file.
func LoadConfigFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		absPath = configPath
	}

	config.ConfigFilePath = absPath
	config.configDir = filepath.Dir(absPath)
	config.projectDir = findProjectRoot(config.configDir)
	return &config, nil
}

func findProjectRoot(dir string) string {
	for d := dir; ; {
		if isProjectRoot(d) {
			return d
		}
		parent := filepath.Dir(d)
		if parent == d {
			return dir
		}
		d = parent
	}
}

// isProjectRoot checks if the directory is a project root based on common markers
func isProjectRoot(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "package.json")); err == nil {
		return true
	}
	return false
}

func resolvePath(path, base string) string {
	if path == "" || filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}
