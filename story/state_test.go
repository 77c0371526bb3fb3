package story

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-creation-assistant/agent"
	"story-creation-assistant/chapter"
)

func TestStateJSONRoundTrip(t *testing.T) {
	e := newTestEngine(t, newFakeRunner())
	s := start(t, e)
	s = cont(t, e, s, "a")
	s = rewrite(t, e, s, "b")
	s = view(t, e, s, 2)
	s.Personas = agent.Personas{agent.ChapterWriter: "Ursula K. Le Guin"}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded State
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, snapshot(t, s), snapshot(t, &decoded))
	assert.Equal(t, chapter.ID(3), decoded.Current)
	assert.Equal(t, chapter.ID(2), decoded.Viewing)
	assert.Equal(t, "Ursula K. Le Guin", decoded.Personas.For(agent.ChapterWriter))
}

func TestStateJSONKeys(t *testing.T) {
	data, err := json.Marshal(NewState())
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"instruction", "details", "context_request", "story_title", "chapter_graph", "chapter_id_current", "chapter_id_viewing"} {
		assert.Contains(t, raw, key)
	}
	assert.JSONEq(t, `"-1"`, string(raw["chapter_id_viewing"]))
}

func TestStateUnmarshalEmpty(t *testing.T) {
	var s State
	require.NoError(t, json.Unmarshal([]byte(`{"chapter_id_current":"-1","chapter_id_viewing":"-1"}`), &s))
	assert.True(t, s.Empty())
	assert.NotNil(t, s.Graph)
}

func TestStateUnmarshalRejectsBadPointers(t *testing.T) {
	graph := `{"1":{"content":"c","title":"t","parent":"-1","children":[],"siblings":[],"cousins":[]}}`

	var s State
	err := json.Unmarshal([]byte(`{"chapter_graph":`+graph+`,"chapter_id_current":"1","chapter_id_viewing":"7"}`), &s)
	assert.ErrorIs(t, err, ErrInvariantViolation)

	err = json.Unmarshal([]byte(`{"chapter_graph":`+graph+`,"chapter_id_current":"-1","chapter_id_viewing":"1"}`), &s)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestStateClone(t *testing.T) {
	e := newTestEngine(t, newFakeRunner())
	s := start(t, e)
	s.Personas = agent.Personas{agent.Brainstormer: "Homer"}

	cp := s.Clone()
	cp.Personas[agent.Brainstormer] = "Virgil"
	require.NoError(t, cp.Graph.SetSummary(1, "changed"))

	assert.Equal(t, "Homer", s.Personas[agent.Brainstormer])
	assert.Empty(t, get(t, s, 1).Summary)
}

func TestViewedChapter(t *testing.T) {
	_, err := NewState().ViewedChapter()
	assert.ErrorIs(t, err, ErrUnknownChapter)

	e := newTestEngine(t, newFakeRunner())
	s := start(t, e)
	c, err := s.ViewedChapter()
	require.NoError(t, err)
	assert.Equal(t, chapter.ID(1), c.ID)
}
