package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/zulandar/memeyard/internal/config"
	"github.com/zulandar/memeyard/internal/db"
	"github.com/zulandar/memeyard/internal/store"
)

// writeConfig writes a sqlite-backed config into a temp dir and returns
// its path along with a dotenv path that does not exist.
func writeConfig(t *testing.T) (cfgPath, envPath string) {
	t.Helper()
	for _, k := range []string{
		config.EnvPlatform, config.EnvBroadcastChannel, config.EnvDiscordToken,
		config.EnvSlackAppToken, config.EnvSlackBotToken, config.EnvDatabasePassword,
		config.EnvRedisURL, config.EnvPort,
	} {
		t.Setenv(k, "")
	}

	dir := t.TempDir()
	cfgPath = filepath.Join(dir, "memeyard.yaml")
	body := fmt.Sprintf(`platform: discord
broadcast_channel: "chan-1"
discord:
  bot_token: "test-token"
database:
  driver: sqlite
  path: %q
`, filepath.Join(dir, "memeyard.db"))
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath, filepath.Join(dir, "missing.env")
}

// seedStore opens the database named by cfgPath and hands a Store to fn.
func seedStore(t *testing.T, cfgPath string, fn func(st *store.Store)) {
	t.Helper()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close(gormDB)
	st, err := store.New(gormDB)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	fn(st)
}

// run executes the root command with args and returns combined output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
