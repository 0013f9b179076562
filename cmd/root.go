package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/triplehelix/internal/config"
	"github.com/abhisek/triplehelix/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "triplehelix",
	Short: "Adaptive spaced-repetition engine",
	Long: "Triple-Helix — an adaptive spaced-repetition scheduler that cycles a learner\n" +
		"through three tubes of content and spaces mastered stitches further apart.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides TRIPLEHELIX_DB)")
	rootCmd.PersistentFlags().String("catalogue", "", "Path to content catalogue file")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves configuration with flags taking priority over the
// config file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DBPath = p
	}
	if p, _ := cmd.Flags().GetString("catalogue"); p != "" {
		cfg.CataloguePath = p
	}
	return cfg, nil
}

// resolveDBPath returns the database path from config or the default XDG
// location.
func resolveDBPath(cfg *config.Config) (string, error) {
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

// newLogger builds the process logger. level comes from TRIPLEHELIX_LOG
// ("debug", "info", "warn"); default warn so the TUI stays quiet.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	switch os.Getenv("TRIPLEHELIX_LOG") {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openStore opens the sqlite store for a command.
func openStore(cfg *config.Config) (*store.Store, error) {
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}
