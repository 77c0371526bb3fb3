package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"story-creation-assistant/repl"
	"story-creation-assistant/session"
	"story-creation-assistant/tui"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Write a story interactively on the command line",
	Args:  cobra.NoArgs,
	RunE:  runREPL,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Write a story in a full screen terminal UI",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(replCmd, tuiCmd)
}

func interactiveThread() string {
	if threadID == "" {
		threadID = session.NewThreadID()
	}
	return threadID
}

func runREPL(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()
	a.logProgress(cmd.Context())

	repl.NewREPL(a.session, a.workspace, interactiveThread(), cmd.InOrStdin(), cmd.OutOrStdout()).Start(cmd.Context())
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	// the alternate screen owns the terminal, so logs go to a file
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}
	logPath := filepath.Join(cfg.DataDir, "tui.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", logPath, err)
	}
	defer f.Close()
	fileLogger := log.NewWithOptions(f, log.Options{
		Level:           cfg.Level(),
		ReportTimestamp: true,
		Prefix:          "story",
	})

	a, err := newApp(cmd.Context(), cfg, fileLogger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	return tui.Run(cmd.Context(), tui.Options{
		Session:  a.session,
		Exporter: a.workspace,
		Thread:   interactiveThread(),
		Progress: a.team.Progress(),
	})
}
