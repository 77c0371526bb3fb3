package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-creation-assistant/agent"
	"story-creation-assistant/chapter"
	"story-creation-assistant/story"
)

func TestWriteAndRead(t *testing.T) {
	w, err := NewManager(filepath.Join(t.TempDir(), "ws"))
	require.NoError(t, err)

	require.NoError(t, w.WriteFile("notes.md", "# hi"))
	got, err := w.ReadFile("notes.md")
	require.NoError(t, err)
	assert.Equal(t, "# hi", got)

	for _, name := range []string{"a.txt", "../x.md", "sub/x.md", `sub\x.json`} {
		assert.Error(t, w.WriteFile(name, "x"), name)
		_, err := w.ReadFile(name)
		assert.Error(t, err, name)
	}
}

func TestExportStory(t *testing.T) {
	w, err := NewManager(t.TempDir())
	require.NoError(t, err)

	s := story.NewState()
	s.StoryTitle = "The Long Night!"
	require.NoError(t, s.Graph.Insert(chapter.Chapter{ID: 1, Title: "Dusk", Content: "Dark."}))
	s.Current, s.Viewing = 1, 1

	path, err := w.ExportStory(s, chapter.None)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Dir(), "the-long-night-1.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# The Long Night!\n\n## Chapter 1: Dusk\n\nDark.\n", string(data))

	_, err = w.ExportStory(s, 4)
	assert.ErrorIs(t, err, story.ErrUnknownChapter)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "a-b-c", Slug("  A, b -- C "))
	assert.Equal(t, "story", Slug("!!!"))
	assert.Equal(t, "café-2", Slug("Café 2"))
}

func TestTrackerUsesWorkspace(t *testing.T) {
	w, err := NewManager(t.TempDir())
	require.NoError(t, err)

	tracker := agent.NewSystemTokenTracker()
	tracker.RecordUsage("chapter_writer", "gpt-4o", 100, 50)
	require.NoError(t, tracker.SaveToFile(w))

	loaded := agent.NewSystemTokenTracker()
	require.NoError(t, loaded.LoadFromFile(w))
	assert.Equal(t, 150, loaded.GetTotalTokens())
}
