// Package workspace confines the files the assistant exports (markdown
// stories and token usage reports) to a single directory.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"story-creation-assistant/chapter"
	"story-creation-assistant/story"
)

// Manager handles file operations within the workspace
type Manager struct {
	dir string
}

// NewManager creates the workspace directory if needed.
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		dir = "workspace"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}
	return &Manager{dir: dir}, nil
}

func checkName(filename string) error {
	if !strings.HasSuffix(filename, ".md") && !strings.HasSuffix(filename, ".json") {
		return fmt.Errorf("only .md and .json files are allowed: %s", filename)
	}
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		return fmt.Errorf("invalid filename: %s", filename)
	}
	return nil
}

// WriteFile writes content to a file in the workspace
func (w *Manager) WriteFile(filename, content string) error {
	if err := checkName(filename); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(w.dir, filename), []byte(content), 0644)
}

// ReadFile reads content from a file in the workspace
func (w *Manager) ReadFile(filename string) (string, error) {
	if err := checkName(filename); err != nil {
		return "", err
	}
	content, err := os.ReadFile(filepath.Join(w.dir, filename))
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// Dir returns the workspace directory path
func (w *Manager) Dir() string {
	return w.dir
}

// ExportStory writes the branch ending at id as markdown and returns the
// path of the written file. chapter.None exports the viewed branch.
func (w *Manager) ExportStory(s *story.State, id chapter.ID) (string, error) {
	if id == chapter.None {
		id = s.Viewing
	}
	md, err := story.RenderMarkdown(s, id)
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s-%s.md", Slug(s.StoryTitle), id)
	if err := w.WriteFile(filename, md); err != nil {
		return "", err
	}
	return filepath.Join(w.dir, filename), nil
}

// Slug turns a title into a lower case file name stem.
func Slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "story"
	}
	return slug
}
