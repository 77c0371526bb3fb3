package story

import (
	"encoding/json"
	"fmt"

	"story-creation-assistant/agent"
	"story-creation-assistant/chapter"
)

// State is a snapshot of one story. Engine operations never modify the
// State they are given; they return a new one.
type State struct {
	Instruction    string         `json:"instruction"`
	Details        string         `json:"details"`
	Parameters     Parameters     `json:"parameters,omitzero"`
	ContextRequest string         `json:"context_request"`
	StoryTitle     string         `json:"story_title"`
	Personas       agent.Personas `json:"personas,omitempty"`
	Graph          *chapter.Graph `json:"chapter_graph"`
	// Current is the most recently created chapter.
	Current chapter.ID `json:"chapter_id_current"`
	// Viewing is the chapter the writer has in front of them; continue
	// and rewrite act on it.
	Viewing chapter.ID `json:"chapter_id_viewing"`
}

// NewState returns the state of a story with no chapters.
func NewState() *State {
	return &State{Graph: chapter.NewGraph()}
}

// Empty reports whether the story has no chapters yet.
func (s *State) Empty() bool {
	return s.Graph == nil || s.Graph.Len() == 0
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	out := *s
	if s.Graph != nil {
		out.Graph = s.Graph.Clone()
	} else {
		out.Graph = chapter.NewGraph()
	}
	if s.Personas != nil {
		out.Personas = agent.Personas{}.Merge(s.Personas)
	}
	return &out
}

// ViewedChapter returns the chapter under the viewing pointer.
func (s *State) ViewedChapter() (chapter.Chapter, error) {
	if s.Empty() {
		return chapter.Chapter{}, fmt.Errorf("%w: the story has no chapters yet", ErrUnknownChapter)
	}
	c, err := s.Graph.Get(s.Viewing)
	if err != nil {
		return chapter.Chapter{}, fmt.Errorf("%w: %w", ErrUnknownChapter, err)
	}
	return c, nil
}

// Validate checks the graph and that both pointers are consistent with it.
func (s *State) Validate() error {
	if s.Graph == nil {
		return fmt.Errorf("%w: missing chapter graph", ErrInvariantViolation)
	}
	if err := s.Graph.Validate(); err != nil {
		return err
	}
	if s.Current < s.Graph.MaxID() {
		return fmt.Errorf("%w: current chapter %s is older than chapter %s", ErrInvariantViolation, s.Current, s.Graph.MaxID())
	}
	if s.Viewing != chapter.None && !s.Graph.Has(s.Viewing) {
		return fmt.Errorf("%w: viewing pointer %s is not in the graph", ErrInvariantViolation, s.Viewing)
	}
	return nil
}

type stateJSON State

// UnmarshalJSON decodes a snapshot and validates it.
func (s *State) UnmarshalJSON(data []byte) error {
	var decoded stateJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	if decoded.Graph == nil {
		decoded.Graph = chapter.NewGraph()
	}
	st := State(decoded)
	if err := st.Validate(); err != nil {
		return err
	}
	*s = st
	return nil
}
