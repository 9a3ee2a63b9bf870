package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/zulandar/memeyard/internal/config"
	"github.com/zulandar/memeyard/internal/db"
	"github.com/zulandar/memeyard/internal/store"
	"gorm.io/gorm"
)

const (
	defaultConfigPath = "memeyard.yaml"
	defaultEnvFile    = ".env"
)

// configFlags are shared by every command that touches the database.
type configFlags struct {
	configPath string
	envFile    string
}

func (f *configFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", defaultConfigPath, "path to memeyard config file")
	cmd.Flags().StringVar(&f.envFile, "env-file", defaultEnvFile, "dotenv file loaded before the config")
}

// load reads the dotenv file and the config. When the config flag was left
// at its default and the file is absent, the configuration comes from the
// environment alone.
func (f *configFlags) load(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(f.envFile); err != nil {
		return nil, err
	}
	path := f.configPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openStore loads config, opens and migrates the database, and wraps it in
// a Store. The caller closes the returned *gorm.DB.
func (f *configFlags) openStore(cmd *cobra.Command) (*config.Config, *gorm.DB, *store.Store, error) {
	cfg, err := f.load(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := store.New(gormDB)
	if err != nil {
		db.Close(gormDB)
		return nil, nil, nil, err
	}
	return cfg, gormDB, st, nil
}
