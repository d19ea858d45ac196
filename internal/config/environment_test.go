package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveEnvironmentDefaults(t *testing.T) {
	t.Parallel()

	env, err := ResolveEnvironment(&Config{}, "")
	if err != nil {
		t.Fatalf("ResolveEnvironment returned error: %v", err)
	}

	if env.Name != defaultEnvironmentName {
		t.Fatalf("Expected default environment name %q, got %q", defaultEnvironmentName, env.Name)
	}

	if env.DatabaseURL != defaultDatabaseURL {
		t.Fatalf("Expected default database URL %q, got %q", defaultDatabaseURL, env.DatabaseURL)
	}
}

func TestResolveEnvironmentFromDotenv(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	dotenvPath := filepath.Join(tempDir, ".env.staging")
	if err := os.WriteFile(dotenvPath, []byte("DATABASE_URL=postgres://staging\nPROJECT_PATH=schemas/staging\n"), 0o600); err != nil {
		t.Fatalf("Failed to write dotenv file: %v", err)
	}

	cfg := &Config{
		DefaultEnvironment: "staging",
		ConfigFilePath:     filepath.Join(tempDir, configFileName),
		Environments: map[string]EnvironmentConfig{
			"staging": {},
		},
	}

	env, err := ResolveEnvironment(cfg, "staging")
	if err != nil {
		t.Fatalf("ResolveEnvironment returned error: %v", err)
	}

	if env.DatabaseURL != "postgres://staging" {
		t.Fatalf("Expected dotenv database URL, got %q", env.DatabaseURL)
	}

	expectedProject := filepath.Join(tempDir, "schemas/staging")
	if env.ProjectPath != expectedProject {
		t.Fatalf("Expected project path %q, got %q", expectedProject, env.ProjectPath)
	}
}

func TestResolveEnvironmentMissingDefinition(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		ConfigFilePath: filepath.Join(t.TempDir(), configFileName),
		Environments: map[string]EnvironmentConfig{
			"local": {
				DatabaseURL: "postgres://local",
			},
		},
	}

	if _, err := ResolveEnvironment(cfg, "production"); err == nil {
		t.Fatal("Expected error resolving undefined environment, got nil")
	}
}

func TestResolveEnvironmentUsesConfigDefaults(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	cfg := &Config{
		DefaultEnvironment: "local",
		DatabaseURL:        "postgres://from-top-level",
		ConfigFilePath:     filepath.Join(tempDir, configFileName),
		Environments: map[string]EnvironmentConfig{
			"local": {},
		},
	}

	env, err := ResolveEnvironment(cfg, "local")
	if err != nil {
		t.Fatalf("ResolveEnvironment returned error: %v", err)
	}

	if env.DatabaseURL != "postgres://from-top-level" {
		t.Fatalf("Expected top-level database_url to flow into the environment, got %q", env.DatabaseURL)
	}
}

func TestResolveEnvironmentEnvironmentOverridesTopLevel(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	cfg := &Config{
		DefaultEnvironment: "local",
		DatabaseURL:        "postgres://from-top-level",
		ConfigFilePath:     filepath.Join(tempDir, configFileName),
		Environments: map[string]EnvironmentConfig{
			"local": {DatabaseURL: "postgres://from-environment"},
		},
	}

	env, err := ResolveEnvironment(cfg, "local")
	if err != nil {
		t.Fatalf("ResolveEnvironment returned error: %v", err)
	}

	if env.DatabaseURL != "postgres://from-environment" {
		t.Fatalf("Expected environment-level database_url to win, got %q", env.DatabaseURL)
	}
}

func TestResolveEnvironmentRelativePathsResolveAgainstConfigDir(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	cfg := &Config{
		ConfigFilePath: filepath.Join(tempDir, configFileName),
		Environments: map[string]EnvironmentConfig{
			"local": {ProjectPath: "project.json", ProfilePath: "publish.json"},
		},
	}

	env, err := ResolveEnvironment(cfg, "local")
	if err != nil {
		t.Fatalf("ResolveEnvironment returned error: %v", err)
	}

	if env.ProjectPath != filepath.Join(tempDir, "project.json") {
		t.Fatalf("Expected resolved project path, got %q", env.ProjectPath)
	}
	if env.ProfilePath != filepath.Join(tempDir, "publish.json") {
		t.Fatalf("Expected resolved profile path, got %q", env.ProfilePath)
	}
}
