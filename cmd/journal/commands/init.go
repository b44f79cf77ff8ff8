package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/anthropics/labjournal/internal/jconfig"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the four project subtrees and a default journal.yaml",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := jconfig.Default()
	dirs := cfg.Resolve(rootPath)

	for _, dir := range []string{dirs.Journal, dirs.Configs, dirs.Logs, dirs.Snapshots} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	cfgPath := filepath.Join(rootPath, "journal.yaml")
	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, leaving it in place\n", cfgPath)
		return nil
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", cfgPath, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "initialized journal project at %s\n", rootPath)
	return nil
}
