package ml

import "errors"

var (
	ErrEmptyCorpus      = errors.New("corpus is empty")
	ErrDegenerateLabels = errors.New("corpus needs at least two distinct labels")
	ErrEmptyVocabulary  = errors.New("no terms remain after document-frequency pruning")
	ErrNotFitted        = errors.New("model not trained")
	ErrSizeMismatch     = errors.New("features and labels size mismatch")
)

// ErrDiverged reports an optimizer run that left the finite domain.
var ErrDiverged = errors.New("optimizer diverged")
