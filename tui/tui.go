// Package tui is a Bubble Tea front end for writing a story thread: the
// viewed chapter is rendered as markdown in a scrollable viewport, and an
// input line continues or rewrites it.
package tui

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"story-creation-assistant/agent"
	"story-creation-assistant/chapter"
	"story-creation-assistant/story"
)

// Session is the thread operations the TUI drives.
type Session interface {
	State(ctx context.Context, thread string) (*story.State, error)
	Invoke(ctx context.Context, thread string, in story.Input) (*story.State, error)
	View(ctx context.Context, thread string, id chapter.ID) (*story.State, error)
}

// Exporter writes a branch of a story somewhere and reports where.
type Exporter interface {
	ExportStory(s *story.State, id chapter.ID) (string, error)
}

type mode int

const (
	modePlot mode = iota
	modeDetails
	modeContinue
	modeRewrite
)

var modeLabels = map[mode]string{
	modePlot:     "What is the story about?",
	modeDetails:  "Any details to keep in mind?",
	modeContinue: "Continue",
	modeRewrite:  "Rewrite",
}

// reserved is the number of lines around the viewport.
const reserved = 7

// Options configures a Model.
type Options struct {
	Session  Session
	Exporter Exporter
	Thread   string
	// Progress receives agent updates while a chapter is written.
	Progress <-chan agent.ProgressUpdate
	// Style is a glamour style name; empty picks one from the terminal.
	Style string
}

type agentStatus struct {
	status  string
	message string
}

// Model is the bubbletea model of one thread.
type Model struct {
	ctx  context.Context
	opts Options

	state    *story.State
	mode     mode
	plot     string
	busy     bool
	status   string
	err      error
	activity map[string]agentStatus

	totalCost   float64
	totalTokens int

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	ready    bool
	width    int
}

type stateMsg struct {
	state *story.State
	err   error
}

type progressMsg struct {
	update agent.ProgressUpdate
}

type exportMsg struct {
	path string
	err  error
}

// New returns the model for opts.Thread.
func New(ctx context.Context, opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accent)

	in := textinput.New()
	in.Placeholder = "type and press enter"
	in.CharLimit = 2000
	in.Focus()

	return Model{
		ctx:      ctx,
		opts:     opts,
		state:    story.NewState(),
		mode:     modePlot,
		status:   "Loading thread...",
		activity: make(map[string]agentStatus),
		input:    in,
		spinner:  s,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load(), m.listenForProgress(), textinput.Blink)
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		s, err := m.opts.Session.State(m.ctx, m.opts.Thread)
		return stateMsg{state: s, err: err}
	}
}

// listenForProgress waits for the next agent update.
func (m Model) listenForProgress() tea.Cmd {
	if m.opts.Progress == nil {
		return nil
	}
	ch := m.opts.Progress
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return nil
		}
		return progressMsg{update: update}
	}
}

func (m Model) invoke(in story.Input) tea.Cmd {
	return func() tea.Msg {
		s, err := m.opts.Session.Invoke(m.ctx, m.opts.Thread, in)
		return stateMsg{state: s, err: err}
	}
}

func (m Model) view(id chapter.ID) tea.Cmd {
	return func() tea.Msg {
		s, err := m.opts.Session.View(m.ctx, m.opts.Thread, id)
		return stateMsg{state: s, err: err}
	}
}

func (m Model) export() tea.Cmd {
	s := m.state
	return func() tea.Msg {
		path, err := m.opts.Exporter.ExportStory(s, s.Viewing)
		return exportMsg{path: path, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		height := max(msg.Height-reserved, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		}
		m.viewport.Width = msg.Width
		m.viewport.Height = height
		m.input.Width = max(msg.Width-20, 10)
		m.refresh()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if cmd := m.submit(); cmd != nil {
				return m, cmd
			}
			return m, nil
		case "tab":
			m.toggleMode()
			return m, nil
		}
		if !m.busy && !m.state.Empty() {
			if cmd := m.navigate(msg.String()); cmd != nil {
				m.busy = true
				return m, tea.Batch(cmd, m.spinner.Tick)
			}
		}
		switch msg.String() {
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)

	case stateMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)
			break
		}
		m.err = nil
		m.state = msg.state
		switch {
		case m.state.Empty() && m.mode != modeDetails:
			m.mode = modePlot
			m.status = "Start a new story."
		case !m.state.Empty() && m.mode != modeRewrite:
			m.mode = modeContinue
			m.status = fmt.Sprintf("Viewing chapter %s.", m.state.Viewing)
		default:
			m.status = fmt.Sprintf("Viewing chapter %s.", m.state.Viewing)
		}
		m.activity = make(map[string]agentStatus)
		m.refresh()

	case exportMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Export failed: %v", msg.err)
		} else {
			m.status = "Saved to " + msg.path
		}

	case progressMsg:
		u := msg.update
		if u.AgentName != "" {
			m.activity[u.AgentName] = agentStatus{status: u.Status, message: u.Message}
		}
		m.totalCost = u.TotalCost
		m.totalTokens = u.TotalTokens
		cmds = append(cmds, m.listenForProgress())

	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// submit acts on the input line according to the mode.
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if m.busy || text == "" {
		return nil
	}
	m.input.Reset()

	var in story.Input
	switch m.mode {
	case modePlot:
		m.plot = text
		m.mode = modeDetails
		return nil
	case modeDetails:
		in = story.Input{Instruction: m.plot, Details: text}
		m.status = "Writing the first chapter..."
	case modeContinue:
		in = story.Input{ContinueInstructions: text}
		m.status = "Writing the next chapter..."
	case modeRewrite:
		in = story.Input{RewriteInstructions: text}
		m.status = "Rewriting the chapter..."
	}
	m.busy = true
	m.err = nil
	return tea.Batch(m.invoke(in), m.spinner.Tick)
}

func (m *Model) toggleMode() {
	switch m.mode {
	case modeContinue:
		m.mode = modeRewrite
	case modeRewrite:
		m.mode = modeContinue
	}
}

// navigate moves between chapters: ctrl+u to the parent, ctrl+d to the
// first child, ctrl+o to the next version.
func (m *Model) navigate(key string) tea.Cmd {
	c, err := m.state.ViewedChapter()
	if err != nil {
		return nil
	}
	switch key {
	case "ctrl+u":
		if !c.IsRoot() {
			return m.view(c.Parent)
		}
	case "ctrl+d":
		if len(c.Children) > 0 {
			return m.view(c.Children[0])
		}
	case "ctrl+o":
		versions, err := story.Versions(m.state)
		if err != nil || len(versions) < 2 {
			return nil
		}
		i := slices.Index(versions, c.ID)
		return m.view(versions[(i+1)%len(versions)])
	case "ctrl+e":
		if m.opts.Exporter != nil {
			return m.export()
		}
	}
	return nil
}

// refresh renders the viewed chapter into the viewport.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderChapter())
	m.viewport.GotoTop()
}

func (m Model) chapterMarkdown() string {
	c, err := m.state.ViewedChapter()
	if err != nil {
		return "*No chapters yet.*"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n## Chapter %s: %s\n\n%s\n", m.state.StoryTitle, c.ID, c.Title, c.Content)
	return b.String()
}

func (m Model) renderChapter() string {
	md := m.chapterMarkdown()
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(max(m.width-4, 20))}
	if m.opts.Style != "" {
		opts = append(opts, glamour.WithStandardStyle(m.opts.Style))
	} else {
		opts = append(opts, glamour.WithAutoStyle())
	}
	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return errorStyle.Render(fmt.Sprintf("Failed to create markdown renderer: %v", err)) + "\n\n" + md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return errorStyle.Render(fmt.Sprintf("Failed to render markdown: %v", err)) + "\n\n" + md
	}
	return strings.TrimRight(out, "\n")
}

func (m Model) View() string {
	if !m.ready {
		return "\n" + m.spinner.View() + " Initializing...\n"
	}

	var b strings.Builder
	title := m.state.StoryTitle
	if title == "" {
		title = "New story"
	}
	b.WriteString(titleStyle.Render("📖 "+title) + "  " + faintStyle.Render("thread "+m.opts.Thread))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.location())
	b.WriteString("\n")

	status := statusStyle
	if m.err != nil {
		status = status.Foreground(errorColor)
	}
	if m.busy {
		b.WriteString(m.spinner.View() + " " + status.Render(m.status) + " " + m.progressLine())
	} else {
		b.WriteString(status.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(modeStyle.Render(modeLabels[m.mode]) + " " + m.input.View())
	b.WriteString("\n")
	b.WriteString(faintStyle.Render("enter: submit • tab: continue/rewrite • ctrl+u: parent • ctrl+d: child • ctrl+o: next version • ctrl+e: export • esc: quit"))
	return b.String()
}

// location describes where the viewed chapter sits in the tree.
func (m Model) location() string {
	c, err := m.state.ViewedChapter()
	if err != nil {
		return faintStyle.Render("no chapters")
	}
	parts := []string{"chapter " + c.ID.String()}
	if !c.IsRoot() {
		parts = append(parts, "parent "+c.Parent.String())
	}
	if len(c.Siblings) > 0 {
		parts = append(parts, fmt.Sprintf("%d versions", len(c.Siblings)+1))
	}
	if len(c.Children) > 0 {
		parts = append(parts, fmt.Sprintf("%d continuations", len(c.Children)))
	}
	parts = append(parts, fmt.Sprintf("$%.4f", m.totalCost), formatNumber(m.totalTokens)+" tokens")
	return faintStyle.Render(strings.Join(parts, " · "))
}

// progressLine lists the agents that are currently running.
func (m Model) progressLine() string {
	var running []string
	for name, a := range m.activity {
		if a.status == agent.StatusStarted {
			running = append(running, name)
		}
	}
	slices.Sort(running)
	if len(running) == 0 {
		return ""
	}
	return faintStyle.Render("(" + strings.Join(running, ", ") + ")")
}

// formatNumber formats a number with commas for better readability
func formatNumber(n int) string {
	str := strconv.Itoa(n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}
	return result.String()
}

// Run starts the program on the terminal and blocks until it exits.
func Run(ctx context.Context, opts Options) error {
	program := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}
