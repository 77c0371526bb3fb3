package story

import (
	"strings"

	"story-creation-assistant/agent"
)

// Kind is the transition a request asks for.
type Kind string

const (
	KindFirst    Kind = "first"
	KindContinue Kind = "continue"
	KindRewrite  Kind = "rewrite"
)

// Request is one of FirstChapterRequest, ContinueRequest or RewriteRequest.
type Request interface {
	Kind() Kind
}

// FirstChapterRequest starts a story.
type FirstChapterRequest struct {
	Instruction string
	Details     string
	Parameters  Parameters
	Personas    agent.Personas
}

func (FirstChapterRequest) Kind() Kind { return KindFirst }

// ContinueRequest writes a new chapter following the viewed one.
type ContinueRequest struct {
	Instructions string
}

func (ContinueRequest) Kind() Kind { return KindContinue }

// RewriteRequest writes an alternate version of the viewed chapter.
type RewriteRequest struct {
	Instructions string
}

func (RewriteRequest) Kind() Kind { return KindRewrite }

// Input is the loose form hosts collect from users; Route turns it into a
// Request.
type Input struct {
	Instruction          string
	Details              string
	ContinueInstructions string
	RewriteInstructions  string
	Parameters           Parameters
	Personas             agent.Personas
}

// Classify picks the transition for in. An empty story always starts with
// the first chapter; otherwise rewrite instructions win over continue
// instructions.
func Classify(s *State, in Input) Kind {
	switch {
	case s.Empty():
		return KindFirst
	case strings.TrimSpace(in.RewriteInstructions) != "":
		return KindRewrite
	default:
		return KindContinue
	}
}

// Route builds the request Classify selects.
func Route(s *State, in Input) Request {
	switch Classify(s, in) {
	case KindFirst:
		return FirstChapterRequest{Instruction: in.Instruction, Details: in.Details, Parameters: in.Parameters, Personas: in.Personas}
	case KindRewrite:
		return RewriteRequest{Instructions: in.RewriteInstructions}
	default:
		return ContinueRequest{Instructions: in.ContinueInstructions}
	}
}
