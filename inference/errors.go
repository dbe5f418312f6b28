package inference

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned while no artifact bundle is loaded.
var ErrUnavailable = errors.New("model not loaded")

// ValidationError rejects a request before any prediction runs.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// PredictionError fails a whole batch because one item could not be predicted.
type PredictionError struct {
	Index int
	Text  string
	Err   error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed for comment %d (%q): %v", e.Index, e.Text, e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}
