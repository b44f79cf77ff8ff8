package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/anthropics/labjournal/internal/engine"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive REPL over query, search, stats, and active",
	RunE:  runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

// runShell is grounded on the teacher's internal/ui.Chat.Run loop: a
// readline prompt dispatching each line to a handler, swallowing
// per-command errors into a printed message rather than exiting.
func runShell(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if cfgPath := resolvedConfigPath(); cfgPath != "" {
		_ = watchConfig(cmd.Context(), eng, cfgPath)
	}

	prompt := "journal> "
	if isatty.IsTerminal(os.Stdout.Fd()) {
		prompt = "\033[36mjournal>\033[0m "
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	ctx := cmd.Context()
	fmt.Fprintln(os.Stdout, "journal shell. Type 'help' for commands, 'exit' to quit.")

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		if err := dispatchShellLine(ctx, os.Stdout, eng, line); err != nil {
			fmt.Fprintf(os.Stdout, "error: %v\n", err)
		}
	}
}

func dispatchShellLine(ctx context.Context, w io.Writer, eng *engine.Engine, line string) error {
	fields := strings.Fields(line)
	cmdName, rest := fields[0], fields[1:]

	switch cmdName {
	case "help":
		fmt.Fprintln(w, "commands: query <text>, search <text>, stats, active [threshold_ms], help, exit")
		return nil
	case "query":
		result, err := eng.Query(ctx, engine.QueryRequest{TextSearch: strings.Join(rest, " "), Limit: 20})
		if err != nil {
			return err
		}
		return writeEntries(w, result.Entries, formatCompact)
	case "search":
		result, err := eng.Search(ctx, engine.SearchRequest{Query: strings.Join(rest, " "), Limit: 20})
		if err != nil {
			return err
		}
		return writeEntries(w, result.Entries, formatCompact)
	case "stats":
		result, err := eng.Stats(ctx, engine.StatsRequest{})
		if err != nil {
			return err
		}
		if result.Overall != nil {
			return writeOverallStats(w, result.Overall)
		}
		return nil
	case "active":
		var threshold int64
		if len(rest) > 0 {
			fmt.Sscanf(rest[0], "%d", &threshold)
		}
		entries, err := eng.Active(ctx, threshold, "")
		if err != nil {
			return err
		}
		return writeEntries(w, entries, formatCompact)
	default:
		fmt.Fprintf(w, "unknown command %q; type 'help'\n", cmdName)
		return nil
	}
}
