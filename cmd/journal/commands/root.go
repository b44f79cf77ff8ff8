// Package commands is the journal CLI's cobra command tree, grounded
// on jra3-linear-fuse's internal/cmd package layout (a persistent-flag
// root command with one file per subcommand).
package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/anthropics/labjournal/internal/engine"
	"github.com/anthropics/labjournal/internal/jconfig"
	"github.com/anthropics/labjournal/internal/jerr"
	"github.com/anthropics/labjournal/internal/logging"
)

var (
	rootPath   string
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "journal",
	Short: "An append-only lab journal for agent and human work sessions",
	Long: `journal records, queries, and archives the append-only markdown
journal described in the project's on-disk layout: daily entry files,
archived configs, preserved logs, and state snapshots, all indexed for
structured retrieval.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootPath, "root", "C", ".", "project root directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to journal.yaml (default: <root>/journal.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
}

// Execute runs the command tree and translates any returned error into
// the exit code spec.md §6 specifies.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "journal: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error to spec.md §6's exit codes. Config-loading
// failures are flagged before they ever reach the engine, so they are
// the one exit code (2) jerr.Kind has no corresponding entry for.
func exitCodeFor(err error) int {
	if errors.Is(err, errConfigInvalid) {
		return 2
	}
	return jerr.ExitCode(jerr.KindOf(err))
}

var errConfigInvalid = fmt.Errorf("invalid configuration")

// openEngine loads the project's config and opens the engine façade
// against rootPath, the shared setup every subcommand needs.
func openEngine() (*engine.Engine, error) {
	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = filepath.Join(rootPath, "journal.yaml")
		if _, err := os.Stat(cfgPath); err != nil {
			cfgPath = ""
		}
	}
	cfg, err := jconfig.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errConfigInvalid, err)
	}

	log := logging.New(logging.Options{Level: logLevel, Format: logFormat})

	eng, err := engine.New(rootPath, cfg, nil, log)
	if err != nil {
		return nil, err
	}
	return eng, nil
}
