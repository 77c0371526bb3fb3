package story

import (
	"fmt"
	"slices"
	"strings"

	"story-creation-assistant/chapter"
)

// Branch returns the chapters from the start of the story down to id.
func Branch(s *State, id chapter.ID) ([]chapter.Chapter, error) {
	path, err := s.Graph.Path(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownChapter, err)
	}
	return path, nil
}

// RenderMarkdown renders the branch ending at id as a markdown document.
func RenderMarkdown(s *State, id chapter.ID) (string, error) {
	path, err := Branch(s, id)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	title := s.StoryTitle
	if title == "" {
		title = "Untitled Story"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	for i, c := range path {
		heading := fmt.Sprintf("Chapter %d", i+1)
		if c.Title != "" {
			heading += ": " + c.Title
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", heading, strings.TrimSpace(c.Content))
	}
	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

// Tree renders every chapter as an indented outline. Alternate versions
// appear next to each other under their shared parent; the viewed chapter
// is marked with an arrow.
func Tree(s *State) string {
	if s.Empty() {
		return "(no chapters yet)\n"
	}

	byParent := make(map[chapter.ID][]chapter.Chapter)
	for _, id := range s.Graph.IDs() {
		c, _ := s.Graph.Get(id)
		byParent[c.Parent] = append(byParent[c.Parent], c)
	}

	var b strings.Builder
	var walk func(parent chapter.ID, depth int)
	walk = func(parent chapter.ID, depth int) {
		for _, c := range byParent[parent] {
			b.WriteString(strings.Repeat("  ", depth))
			fmt.Fprintf(&b, "[%s] %s", c.ID, c.Title)
			if len(c.Siblings) > 0 {
				fmt.Fprintf(&b, " (versions: %s)", joinIDs(c.Siblings))
			}
			if c.ID == s.Viewing {
				b.WriteString(" <-")
			}
			b.WriteByte('\n')
			walk(c.ID, depth+1)
		}
	}
	walk(chapter.None, 0)
	return b.String()
}

// Versions returns the viewed chapter and its siblings in id order.
func Versions(s *State) ([]chapter.ID, error) {
	c, err := s.ViewedChapter()
	if err != nil {
		return nil, err
	}
	ids := append(slices.Clone(c.Siblings), c.ID)
	slices.Sort(ids)
	return ids, nil
}

func joinIDs(ids []chapter.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}
