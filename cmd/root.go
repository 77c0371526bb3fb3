// Package cmd provides the command line interface of the story assistant.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"story-creation-assistant/config"
)

var (
	configPath string
	threadID   string
	logLevel   string

	cfg    *config.Config
	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "story",
	Short: "Story creation assistant - write branching stories with a team of model agents",
	Long: `story writes a story chapter by chapter. Every chapter can be continued
in several directions or rewritten into alternate versions; the assistant
keeps track of how the versions and branches relate.

Stories live in threads that are checkpointed after every change.

Examples:
  story new --instruction "A heist in Lisbon" --details "told by the getaway driver"
  story continue --thread <id> "the vault is empty"
  story rewrite --thread <id> "make it funnier"
  story tree --thread <id>
  story tui --thread <id>`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default story.yaml when present)")
	rootCmd.PersistentFlags().StringVarP(&threadID, "thread", "t", "", "story thread id")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// setup loads the configuration and the logger for every command.
func setup(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err == nil {
			path = config.DefaultPath
		}
	}

	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.LogLevel = logLevel
		if err := loaded.Validate(); err != nil {
			return err
		}
	}
	cfg = loaded

	logger = log.NewWithOptions(os.Stderr, log.Options{
		Level:           cfg.Level(),
		ReportTimestamp: true,
		Prefix:          "story",
	})
	log.SetDefault(logger)
	return nil
}

// requireThread returns the --thread flag or an error when it is missing.
func requireThread() (string, error) {
	if threadID == "" {
		return "", fmt.Errorf("--thread is required (list threads with 'story threads')")
	}
	return threadID, nil
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
