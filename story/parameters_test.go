package story

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-creation-assistant/agent"
)

func TestParametersPrompt(t *testing.T) {
	p := Parameters{
		Length:      "short",
		Fiction:     "true-story",
		Reality:     "realistic",
		Originality: "genre",
		Theme:       "forgiveness",
		Characters:  3,
	}
	require.NoError(t, p.Validate())
	assert.Equal(t, `Keep each chapter short, up to 500 words.
This story is based on a true story.
The story is realistic.
The story is inspired by a specific genre.
The story should convey the theme of forgiveness.
The story features 3 main characters.`, p.Prompt())

	assert.True(t, Parameters{}.IsZero())
	assert.Empty(t, Parameters{}.Prompt())
}

func TestParametersValidate(t *testing.T) {
	tests := []struct {
		name   string
		params Parameters
	}{
		{"length", Parameters{Length: "epic"}},
		{"fiction", Parameters{Fiction: "memoir"}},
		{"reality", Parameters{Reality: "dreamlike"}},
		{"informativeness", Parameters{Informativeness: "gossip"}},
		{"originality", Parameters{Originality: "plagiarism"}},
		{"characters", Parameters{Characters: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.ErrorContains(t, err, tt.name)
		})
	}
}

func TestParameterChoices(t *testing.T) {
	assert.Equal(t, []string{"long", "medium", "short"}, ParameterChoices("length"))
	assert.Nil(t, ParameterChoices("mood"))
}

func TestFirstChapterFoldsParameters(t *testing.T) {
	r := newFakeRunner()
	e := newTestEngine(t, r)

	in := firstInput()
	in.Parameters = Parameters{Reality: "fantastical", Theme: "loyalty"}
	s, err := e.Invoke(context.Background(), NewState(), in)
	require.NoError(t, err)

	assert.Equal(t, in.Parameters, s.Parameters)
	assert.Equal(t, in.Details, s.Details)
	assert.Contains(t, s.ContextRequest, "The story is completely fantastical.")
	assert.Contains(t, s.ContextRequest, "The story should convey the theme of loyalty.")

	characters := r.callsFor(agent.CharacterDescriber)
	require.Len(t, characters, 1)
	assert.Contains(t, characters[0].Messages[0], "theme of loyalty")

	restored := NewState()
	require.NoError(t, restored.UnmarshalJSON([]byte(snapshot(t, s))))
	assert.Equal(t, in.Parameters, restored.Parameters)
}

func TestFirstChapterRejectsBadParameters(t *testing.T) {
	r := newFakeRunner()
	e := newTestEngine(t, r)

	in := firstInput()
	in.Parameters = Parameters{Length: "endless"}
	_, err := e.Invoke(context.Background(), NewState(), in)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Empty(t, r.callsFor(agent.CharacterDescriber))
}
