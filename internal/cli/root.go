// Package cli implements the chai commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/baodaydungsone/chai/internal/config"
	"github.com/baodaydungsone/chai/internal/engine"
	"github.com/baodaydungsone/chai/internal/llm/gemini"
	"github.com/baodaydungsone/chai/internal/logger"
	"github.com/baodaydungsone/chai/internal/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	dbPath   string
	logLevel string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "chai",
	Short:         "Persona chat engine backed by Gemini",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $CHAI_DB_PATH or data/chai.db)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (default: $CHAI_LOG_LEVEL or info)")
}

// app is everything a command needs, built from the environment.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	store  *store.SQLiteStore
	engine *engine.Engine
}

func setup() (*app, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	log := logger.New("chai")
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	cfg.Log(log)

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(cfg, st, gemini.Factory(cfg.Model), log)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &app{cfg: cfg, log: log, store: st, engine: eng}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("close store")
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs RootCmd and reports a failure on stderr.
func Execute() int {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
