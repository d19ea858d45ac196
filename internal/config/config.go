// Package config loads psqlpack.toml, the optional project-wide config
// file that names default environments, a project manifest path, and
// logging options. Grounded on the teacher's internal/config/config.go:
// same upward directory walk stopping at a project boundary (.git,
// go.mod, package.json), same pelletier/go-toml/v2 decoding and
// PrintLoadConfigErrorDetails diagnostic helper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
)

const configFileName = "psqlpack.toml"

// EnvironmentConfig describes one named environment from psqlpack.toml.
type EnvironmentConfig struct {
	DatabaseURL string `toml:"database_url"`
	ProjectPath string `toml:"project_path"`
	ProfilePath string `toml:"profile_path"`
}

// LoggingConfig is the [logging] table (SPEC_FULL.md §B).
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the decoded contents of psqlpack.toml.
type Config struct {
	DefaultEnvironment string                       `toml:"default_environment"`
	DatabaseURL        string                        `toml:"database_url"`
	ProjectPath        string                        `toml:"project_path"`
	ProfilePath        string                        `toml:"profile_path"`
	Logging            LoggingConfig                 `toml:"logging"`
	Environments       map[string]EnvironmentConfig  `toml:"environments"`
	ConfigFilePath     string                        `toml:"-"`
}

// ConfigDir returns the directory psqlpack.toml was loaded from, or ""
// if it came from a zero-value Config. Relative paths inside the config
// (project_path, profile_path) are resolved against this.
func (c *Config) ConfigDir() string {
	if c == nil || c.ConfigFilePath == "" {
		return ""
	}
	return filepath.Dir(c.ConfigFilePath)
}

// ProjectDir is the project root; for psqlpack it is the same directory
// psqlpack.toml lives in.
func (c *Config) ProjectDir() string {
	return c.ConfigDir()
}

// PrintLoadConfigErrorDetails reports TOML decode position information,
// to a *testing.T if provided or to stdout otherwise.
func PrintLoadConfigErrorDetails(err error, t *testing.T) {
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		if t != nil {
			t.Log(derr.String())
			row, col := derr.Position()
			t.Logf("Error occurred at row %d, column %d", row, col)
		} else {
			fmt.Println(derr.String())
			row, col := derr.Position()
			fmt.Printf("Error occurred at row %d, column %d\n", row, col)
		}
	}
}

// LoadConfig walks up from the current directory looking for
// psqlpack.toml, stopping at the first project boundary. It returns an
// empty *Config, not an error, when no file is found.
func LoadConfig() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return &Config{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ConfigFilePath = configPath
	return &cfg, nil
}

func getConfigPath() (string, error) {
	startDir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := startDir
	for {
		configPath := filepath.Join(dir, configFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		if isProjectRoot(dir) {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%s not found", configFileName)
}

// isProjectRoot checks if the directory is a project root based on common markers.
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
