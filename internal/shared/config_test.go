package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "playlist.db" {
			t.Errorf("expected database path playlist.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Auth.Realm != "Playlist API" {
			t.Errorf("expected realm Playlist API, got %s", config.Auth.Realm)
		}

		if config.Auth.Users["studio"] != "change-me" {
			t.Errorf("expected studio user with placeholder secret, got %s", config.Auth.Users["studio"])
		}

		if config.Playlist.AuthorID != "lovehasnologic" {
			t.Errorf("expected author_id lovehasnologic, got %s", config.Playlist.AuthorID)
		}
	})

	t.Run("Addr", func(t *testing.T) {
		server := ServerConfig{Host: "0.0.0.0", Port: 9090}
		if server.Addr() != "0.0.0.0:9090" {
			t.Errorf("expected 0.0.0.0:9090, got %s", server.Addr())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[server]
host = "0.0.0.0"
port = 9000

[auth]
realm = "Test Realm"

[auth.users]
dj_one = "secret_one"
dj_two = "secret_two"

[playlist]
author_id = "custom_author"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 9000 {
			t.Errorf("expected server port 9000, got %d", config.Server.Port)
		}

		if config.Auth.Realm != "Test Realm" {
			t.Errorf("expected realm Test Realm, got %s", config.Auth.Realm)
		}

		if len(config.Auth.Users) != 2 || config.Auth.Users["dj_two"] != "secret_two" {
			t.Errorf("expected two configured users, got %v", config.Auth.Users)
		}

		if config.Playlist.AuthorID != "custom_author" {
			t.Errorf("expected author_id custom_author, got %s", config.Playlist.AuthorID)
		}
	})
}
