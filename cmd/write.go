package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"story-creation-assistant/agent"
	"story-creation-assistant/chapter"
	"story-creation-assistant/session"
	"story-creation-assistant/story"
)

var (
	newInstruction string
	newDetails     string
	newPersonas    map[string]string
	newParameters  story.Parameters
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a story and write its first chapter",
	Long: `Start a story in a new thread. The assistant describes the characters
and the setting, writes the first chapter and titles the story.

Personas name the author a role writes as, for example:
  story new -i "A ghost story" -d "an old ferry" --persona chapter_writer="Shirley Jackson"`,
	Args: cobra.NoArgs,
	RunE: runNew,
}

var continueCmd = &cobra.Command{
	Use:   "continue <instructions>",
	Short: "Write the next chapter after the viewed one",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInvoke(cmd, story.Input{ContinueInstructions: strings.Join(args, " ")})
	},
}

var rewriteCmd = &cobra.Command{
	Use:   "rewrite <instructions>",
	Short: "Write another version of the viewed chapter",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInvoke(cmd, story.Input{RewriteInstructions: strings.Join(args, " ")})
	},
}

var pacingCmd = &cobra.Command{
	Use:   "pacing [chapter]",
	Short: "Score the pacing of a chapter paragraph by paragraph (the viewed one by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPacing,
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [chapter]",
	Short: "Summarize a chapter (the viewed one by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSummarize,
}

func init() {
	newCmd.Flags().StringVarP(&newInstruction, "instruction", "i", "", "what the story is about")
	newCmd.Flags().StringVarP(&newDetails, "details", "d", "", "details to keep in mind while writing")
	newCmd.Flags().StringToStringVar(&newPersonas, "persona", nil, "role=author persona overrides")
	newCmd.Flags().StringVar(&newParameters.Length, "length", "", choices("chapter length", "length"))
	newCmd.Flags().StringVar(&newParameters.Fiction, "fiction", "", choices("fiction level", "fiction"))
	newCmd.Flags().StringVar(&newParameters.Reality, "reality", "", choices("reality level", "reality"))
	newCmd.Flags().StringVar(&newParameters.Informativeness, "informativeness", "", choices("informativeness", "informativeness"))
	newCmd.Flags().StringVar(&newParameters.Originality, "originality", "", choices("originality", "originality"))
	newCmd.Flags().StringVar(&newParameters.Theme, "theme", "", "moral theme the story conveys")
	newCmd.Flags().IntVar(&newParameters.Characters, "characters", 0, "number of main characters")
	_ = newCmd.MarkFlagRequired("instruction")
	_ = newCmd.MarkFlagRequired("details")

	rootCmd.AddCommand(newCmd, continueCmd, rewriteCmd, summarizeCmd, pacingCmd)
}

func choices(usage, parameter string) string {
	return fmt.Sprintf("%s (%s)", usage, strings.Join(story.ParameterChoices(parameter), ", "))
}

func parsePersonas(raw map[string]string) (agent.Personas, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	personas := make(agent.Personas, len(raw))
	for role, name := range raw {
		r := agent.Role(role)
		if !r.Valid() {
			return nil, fmt.Errorf("unknown role %q in --persona", role)
		}
		personas[r] = name
	}
	return personas, nil
}

func runNew(cmd *cobra.Command, args []string) error {
	personas, err := parsePersonas(newPersonas)
	if err != nil {
		return err
	}
	if err := newParameters.Validate(); err != nil {
		return err
	}
	if threadID == "" {
		threadID = session.NewThreadID()
	}
	state, err := currentState(cmd, threadID)
	if err != nil {
		return err
	}
	if !state.Empty() {
		return fmt.Errorf("thread %s already has a story; use continue or rewrite", threadID)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Thread: %s\n\n", threadID)
	return runInvoke(cmd, story.Input{
		Instruction: newInstruction,
		Details:     newDetails,
		Parameters:  newParameters,
		Personas:    personas,
	})
}

func currentState(cmd *cobra.Command, thread string) (*story.State, error) {
	a, err := newApp(cmd.Context(), cfg, logger, false)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return a.session.State(cmd.Context(), thread)
}

func runInvoke(cmd *cobra.Command, in story.Input) error {
	thread, err := requireThread()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()
	a.logProgress(cmd.Context())

	s, err := a.session.Invoke(cmd.Context(), thread, in)
	if err != nil {
		return err
	}
	return printChapter(cmd, s, s.Viewing, false)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	thread, err := requireThread()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := chapterArg(cmd, a, thread, args)
	if err != nil {
		return err
	}
	s, err := a.session.Summarize(cmd.Context(), thread, id)
	if err != nil {
		return err
	}
	c, err := s.Graph.Get(id)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), c.Summary)
	return nil
}

func runPacing(cmd *cobra.Command, args []string) error {
	thread, err := requireThread()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := chapterArg(cmd, a, thread, args)
	if err != nil {
		return err
	}
	p, err := a.session.Pacing(cmd.Context(), thread, id)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Chapter %s pacing (mean %.1f)\n", p.Chapter, p.Mean())
	for i, score := range p.Scores {
		fmt.Fprintf(out, "%3d  %-10s %.1f\n", i+1, strings.Repeat("#", int(score+0.5)), score)
	}
	return nil
}

// chapterArg parses an optional chapter argument, defaulting to the viewed
// chapter of thread.
func chapterArg(cmd *cobra.Command, a *app, thread string, args []string) (chapter.ID, error) {
	if len(args) > 0 {
		id, err := chapter.ParseID(args[0])
		if err != nil {
			return chapter.None, err
		}
		if id == chapter.None {
			return chapter.None, fmt.Errorf("invalid chapter %q", args[0])
		}
		return id, nil
	}
	s, err := a.session.State(cmd.Context(), thread)
	if err != nil {
		return chapter.None, err
	}
	if s.Empty() {
		return chapter.None, fmt.Errorf("thread %s has no chapters", thread)
	}
	return s.Viewing, nil
}
