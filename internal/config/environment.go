package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultEnvironmentName = "local"
	defaultDatabaseURL     = "postgres://localhost:5432/postgres?sslmode=disable"
)

// ResolvedEnvironment is a fully-resolved environment: a database URL and
// project/profile paths, with every relative path already made absolute
// against the config file's directory.
type ResolvedEnvironment struct {
	Name              string
	DatabaseURL       string
	ProjectPath       string
	ProfilePath       string
	DotenvPath        string
	FromConfig        bool
	FromDotenv        bool
	ResolvedConfigDir string
}

// ResolveEnvironment resolves a named environment into concrete values.
// Precedence, low to high: psqlpack.toml top-level defaults, the named
// [environments.<name>] table, then a .env.<name> file in the config
// directory, whose DATABASE_URL overrides the configured one (matching
// the teacher's dotenv-overlay pattern in spirit though not its
// multi-dialect variable sniffing, which is out of scope for a
// Postgres-only tool). The .env file's PROJECT_PATH is used only when no
// project path was configured; other variables are ignored.
func ResolveEnvironment(cfg *Config, name string) (*ResolvedEnvironment, error) {
	envName := strings.TrimSpace(name)
	if envName == "" {
		if cfg != nil && cfg.DefaultEnvironment != "" {
			envName = cfg.DefaultEnvironment
		} else {
			envName = defaultEnvironmentName
		}
	}

	var (
		envConfig EnvironmentConfig
		envExists bool
	)
	if cfg != nil && cfg.Environments != nil {
		if e, ok := cfg.Environments[envName]; ok {
			envConfig = e
			envExists = true
		}
	}

	resolved := &ResolvedEnvironment{Name: envName}

	if cfg != nil {
		resolved.ResolvedConfigDir = cfg.ConfigDir()
		if cfg.ProjectPath != "" && envConfig.ProjectPath == "" {
			envConfig.ProjectPath = cfg.ProjectPath
		}
		if cfg.ProfilePath != "" && envConfig.ProfilePath == "" {
			envConfig.ProfilePath = cfg.ProfilePath
		}
		if cfg.DatabaseURL != "" && envConfig.DatabaseURL == "" {
			envConfig.DatabaseURL = cfg.DatabaseURL
		}
	}

	resolved.DatabaseURL = envConfig.DatabaseURL
	resolved.ProjectPath = envConfig.ProjectPath
	resolved.ProfilePath = envConfig.ProfilePath
	if envExists {
		resolved.FromConfig = true
	}

	baseDir := resolved.ResolvedConfigDir
	if baseDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			baseDir = cwd
		}
	}
	dotenvFileName := ".env." + envName
	resolved.DotenvPath = filepath.Join(baseDir, dotenvFileName)

	if info, err := os.Stat(resolved.DotenvPath); err == nil && !info.IsDir() {
		values, err := godotenv.Read(resolved.DotenvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", resolved.DotenvPath, err)
		}
		resolved.FromDotenv = true
		if value := values["DATABASE_URL"]; value != "" {
			resolved.DatabaseURL = value
		}
		if resolved.ProjectPath == "" {
			if value := values["PROJECT_PATH"]; value != "" {
				resolved.ProjectPath = value
			}
		}
	}

	if resolved.DatabaseURL == "" {
		resolved.DatabaseURL = defaultDatabaseURL
	}

	if resolved.ProjectPath != "" && !filepath.IsAbs(resolved.ProjectPath) && baseDir != "" {
		resolved.ProjectPath = filepath.Join(baseDir, resolved.ProjectPath)
	}
	if resolved.ProfilePath != "" && !filepath.IsAbs(resolved.ProfilePath) && baseDir != "" {
		resolved.ProfilePath = filepath.Join(baseDir, resolved.ProfilePath)
	}

	if cfg != nil && len(cfg.Environments) > 0 && !envExists && !resolved.FromDotenv {
		return nil, fmt.Errorf("environment %q not defined in %s and %s not found", envName, configFileName, resolved.DotenvPath)
	}

	return resolved, nil
}
