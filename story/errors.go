package story

import (
	"errors"

	"story-creation-assistant/agent"
	"story-creation-assistant/chapter"
)

var (
	// ErrInvalidRequest reports a request that cannot apply to the state,
	// such as a continuation without instructions.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnknownChapter reports a viewing pointer or chapter id that is
	// not in the graph.
	ErrUnknownChapter = errors.New("unknown chapter")

	// ErrGeneration matches every failed model call.
	ErrGeneration = agent.ErrGeneration

	// ErrInvariantViolation reports a graph that would become inconsistent.
	ErrInvariantViolation = chapter.ErrInvariantViolation
)
