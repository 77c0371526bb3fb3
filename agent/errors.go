package agent

import (
	"errors"
	"fmt"
)

// ErrGeneration matches every *GenerationError.
var ErrGeneration = errors.New("generation failed")

// ErrEmptyOutput is wrapped when a model answered with nothing usable.
var ErrEmptyOutput = errors.New("empty model output")

// GenerationError reports a failed agent call.
type GenerationError struct {
	Role Role
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrGeneration, e.Role, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}
