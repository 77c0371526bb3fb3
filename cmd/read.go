package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"story-creation-assistant/chapter"
	"story-creation-assistant/story"
)

var showRaw bool

var viewCmd = &cobra.Command{
	Use:   "view <chapter>",
	Short: "Switch the thread to another chapter",
	Args:  cobra.ExactArgs(1),
	RunE:  runView,
}

var showCmd = &cobra.Command{
	Use:   "show [chapter]",
	Short: "Print a chapter (the viewed one by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show every chapter, its versions and continuations",
	Args:  cobra.NoArgs,
	RunE:  runTree,
}

var exportCmd = &cobra.Command{
	Use:   "export [chapter]",
	Short: "Save the story up to a chapter as markdown in the workspace",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "List saved story threads",
	Args:  cobra.NoArgs,
	RunE:  runThreads,
}

func init() {
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "print markdown without rendering it")
	rootCmd.AddCommand(viewCmd, showCmd, treeCmd, exportCmd, threadsCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	thread, err := requireThread()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := chapterArg(cmd, a, thread, args)
	if err != nil {
		return err
	}
	s, err := a.session.View(cmd.Context(), thread, id)
	if err != nil {
		return err
	}
	return printChapter(cmd, s, id, false)
}

func runShow(cmd *cobra.Command, args []string) error {
	thread, err := requireThread()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := chapterArg(cmd, a, thread, args)
	if err != nil {
		return err
	}
	s, err := a.session.State(cmd.Context(), thread)
	if err != nil {
		return err
	}
	return printChapter(cmd, s, id, showRaw)
}

func runTree(cmd *cobra.Command, args []string) error {
	thread, err := requireThread()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.session.State(cmd.Context(), thread)
	if err != nil {
		return err
	}
	if s.StoryTitle != "" {
		fmt.Fprintln(cmd.OutOrStdout(), s.StoryTitle)
	}
	fmt.Fprint(cmd.OutOrStdout(), story.Tree(s))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	thread, err := requireThread()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := chapterArg(cmd, a, thread, args)
	if err != nil {
		return err
	}
	s, err := a.session.State(cmd.Context(), thread)
	if err != nil {
		return err
	}
	path, err := a.workspace.ExportStory(s, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved to %s\n", path)
	return nil
}

func runThreads(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	threads, err := a.session.Threads(cmd.Context())
	if err != nil {
		return err
	}
	for _, thread := range threads {
		s, err := a.session.State(cmd.Context(), thread)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t(unreadable: %v)\n", thread, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d chapters\n", thread, s.StoryTitle, s.Graph.Len())
	}
	return nil
}

// printChapter writes one chapter as markdown, rendered for the terminal
// unless raw is set.
func printChapter(cmd *cobra.Command, s *story.State, id chapter.ID, raw bool) error {
	c, err := s.Graph.Get(id)
	if err != nil {
		return fmt.Errorf("%w: %w", story.ErrUnknownChapter, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n## Chapter %s: %s\n\n%s\n", s.StoryTitle, c.ID, c.Title, c.Content)
	if len(c.Siblings) > 0 || len(c.Children) > 0 {
		b.WriteString("\n---\n\n")
	}
	if len(c.Siblings) > 0 {
		fmt.Fprintf(&b, "*Other versions:* %v\n\n", c.Siblings)
	}
	if len(c.Children) > 0 {
		fmt.Fprintf(&b, "*Continues in:* %v\n", c.Children)
	}
	md := b.String()

	if raw {
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
