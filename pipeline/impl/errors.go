package impl

import (
	"errors"
	"fmt"
)

var (
	// Returned by the groupers when there is nothing to group.
	ErrEmptyInput = errors.New("empty input")
	// The OCR collaborator found no text in the image.
	ErrEmptyDetectionResult = errors.New("no text detected")
)

// StageError records the pipeline stage a run stopped in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
