// Package repl is a line oriented front end for writing a story thread.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"story-creation-assistant/chapter"
	"story-creation-assistant/story"
)

// Session is the thread operations the REPL drives.
type Session interface {
	State(ctx context.Context, thread string) (*story.State, error)
	Invoke(ctx context.Context, thread string, in story.Input) (*story.State, error)
	View(ctx context.Context, thread string, id chapter.ID) (*story.State, error)
	Summarize(ctx context.Context, thread string, id chapter.ID) (*story.State, error)
	Pacing(ctx context.Context, thread string, id chapter.ID) (story.Pacing, error)
}

// Exporter writes a branch of a story somewhere and reports where.
type Exporter interface {
	ExportStory(s *story.State, id chapter.ID) (string, error)
}

type REPL struct {
	session  Session
	exporter Exporter
	thread   string
	scanner  *bufio.Scanner
	out      io.Writer
}

func NewREPL(session Session, exporter Exporter, thread string, in io.Reader, out io.Writer) *REPL {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &REPL{
		session:  session,
		exporter: exporter,
		thread:   thread,
		scanner:  scanner,
		out:      out,
	}
}

func (r *REPL) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// Start reads commands until quit or end of input.
func (r *REPL) Start(ctx context.Context) {
	r.printf("📖 Story REPL (thread %s)\n", r.thread)
	r.printf("Type 'help' for commands.\n\n")

	s, err := r.session.State(ctx, r.thread)
	if err != nil {
		r.printf("❌ Error loading thread: %v\n", err)
		return
	}
	if s.Empty() {
		if !r.begin(ctx) {
			return
		}
	} else {
		r.printf("Resuming %q, viewing chapter %s.\n\n", s.StoryTitle, s.Viewing)
	}

	for {
		line, ok := r.prompt("✍️  > ")
		if !ok {
			return
		}
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		switch strings.ToLower(cmd) {
		case "help", "?":
			r.showHelp()
		case "quit", "exit", "q":
			r.printf("👋 Goodbye!\n")
			return
		case "continue", "c":
			r.invoke(ctx, story.Input{ContinueInstructions: arg})
		case "rewrite", "r":
			r.invoke(ctx, story.Input{RewriteInstructions: arg})
		case "view", "v":
			r.view(ctx, arg)
		case "show", "s":
			r.show(ctx, arg)
		case "tree", "t":
			r.withState(ctx, func(s *story.State) { r.printf("%s\n", story.Tree(s)) })
		case "versions":
			r.versions(ctx)
		case "summarize":
			r.summarize(ctx, arg)
		case "pacing":
			r.pacing(ctx, arg)
		case "export":
			r.export(ctx)
		default:
			r.printf("❓ Unknown command %q. Type 'help' for commands.\n", cmd)
		}
	}
}

func (r *REPL) prompt(label string) (string, bool) {
	r.printf("%s", label)
	if !r.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(r.scanner.Text()), true
}

// begin asks for the plot and details and writes the first chapter.
func (r *REPL) begin(ctx context.Context) bool {
	r.printf("This thread has no story yet.\n")
	instruction, ok := r.prompt("📝 What is the story about? ")
	if !ok {
		return false
	}
	details, ok := r.prompt("🔎 Any details to keep in mind? ")
	if !ok {
		return false
	}
	return r.invoke(ctx, story.Input{Instruction: instruction, Details: details})
}

func (r *REPL) invoke(ctx context.Context, in story.Input) bool {
	r.printf("⏳ Writing...\n")
	s, err := r.session.Invoke(ctx, r.thread, in)
	if err != nil {
		r.printf("❌ Error: %v\n", err)
		return false
	}
	r.printChapter(s, s.Viewing)
	return true
}

func (r *REPL) withState(ctx context.Context, fn func(*story.State)) {
	s, err := r.session.State(ctx, r.thread)
	if err != nil {
		r.printf("❌ Error: %v\n", err)
		return
	}
	fn(s)
}

func (r *REPL) view(ctx context.Context, arg string) {
	id, err := chapter.ParseID(arg)
	if err != nil || id == chapter.None {
		r.printf("❌ Usage: view <chapter id>\n")
		return
	}
	s, err := r.session.View(ctx, r.thread, id)
	if err != nil {
		r.printf("❌ Error: %v\n", err)
		return
	}
	r.printChapter(s, id)
}

func (r *REPL) show(ctx context.Context, arg string) {
	r.withState(ctx, func(s *story.State) {
		id := s.Viewing
		if arg != "" {
			parsed, err := chapter.ParseID(arg)
			if err != nil {
				r.printf("❌ Usage: show [chapter id]\n")
				return
			}
			id = parsed
		}
		r.printChapter(s, id)
	})
}

func (r *REPL) versions(ctx context.Context) {
	r.withState(ctx, func(s *story.State) {
		ids, err := story.Versions(s)
		if err != nil {
			r.printf("❌ Error: %v\n", err)
			return
		}
		for _, id := range ids {
			c, _ := s.Graph.Get(id)
			marker := " "
			if id == s.Viewing {
				marker = "*"
			}
			r.printf("%s [%s] %s\n", marker, id, c.Title)
		}
	})
}

func (r *REPL) summarize(ctx context.Context, arg string) {
	s, err := r.session.State(ctx, r.thread)
	if err != nil {
		r.printf("❌ Error: %v\n", err)
		return
	}
	id := s.Viewing
	if arg != "" {
		if id, err = chapter.ParseID(arg); err != nil {
			r.printf("❌ Usage: summarize [chapter id]\n")
			return
		}
	}
	s, err = r.session.Summarize(ctx, r.thread, id)
	if err != nil {
		r.printf("❌ Error: %v\n", err)
		return
	}
	c, _ := s.Graph.Get(id)
	r.printf("💡 %s\n", c.Summary)
}

func (r *REPL) pacing(ctx context.Context, arg string) {
	id := chapter.None
	if arg != "" {
		var err error
		if id, err = chapter.ParseID(arg); err != nil {
			r.printf("❌ Usage: pacing [chapter id]\n")
			return
		}
	}
	p, err := r.session.Pacing(ctx, r.thread, id)
	if err != nil {
		r.printf("❌ Error: %v\n", err)
		return
	}
	r.printf("📈 Pacing of chapter %s (mean %.1f):\n", p.Chapter, p.Mean())
	for i, score := range p.Scores {
		r.printf("  %2d %-10s %.1f\n", i+1, strings.Repeat("█", int(score+0.5)), score)
	}
}

func (r *REPL) export(ctx context.Context) {
	r.withState(ctx, func(s *story.State) {
		path, err := r.exporter.ExportStory(s, s.Viewing)
		if err != nil {
			r.printf("❌ Error: %v\n", err)
			return
		}
		r.printf("💾 Saved to %s\n", path)
	})
}

func (r *REPL) printChapter(s *story.State, id chapter.ID) {
	c, err := s.Graph.Get(id)
	if err != nil {
		r.printf("❌ No chapter %s\n", id)
		return
	}
	r.printf("─────────────────────────────────────────────────────────────\n")
	r.printf("📚 %s · Chapter %s: %s\n\n", s.StoryTitle, c.ID, c.Title)
	r.printf("%s\n", c.Content)
	r.printf("─────────────────────────────────────────────────────────────\n")
	if len(c.Siblings) > 0 {
		r.printf("🔀 Other versions: %v\n", c.Siblings)
	}
	if len(c.Children) > 0 {
		r.printf("➡️  Continues in: %v\n", c.Children)
	}
	r.printf("\n")
}

func (r *REPL) showHelp() {
	r.printf("🆘 Available commands:\n")
	r.printf("  continue <instructions>  - Write the next chapter after the one you are viewing\n")
	r.printf("  rewrite <instructions>   - Write another version of the chapter you are viewing\n")
	r.printf("  view <id>                - Switch to a chapter\n")
	r.printf("  show [id]                - Print a chapter\n")
	r.printf("  tree                     - Show every chapter and version\n")
	r.printf("  versions                 - List the versions of the viewed chapter\n")
	r.printf("  summarize [id]           - Summarize a chapter\n")
	r.printf("  pacing [id]              - Score the pacing of a chapter paragraph by paragraph\n")
	r.printf("  export                   - Save the viewed branch as markdown\n")
	r.printf("  help                     - Show this help message\n")
	r.printf("  quit                     - Exit the REPL\n")
}
