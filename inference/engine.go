// Package inference serves batch sentiment predictions from a loaded artifact bundle.
package inference

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"sentilyzer/artifact"
	"sentilyzer/cache"
	"sentilyzer/ml"
)

// Engine predicts batches against an immutable bundle. The bundle is swapped as a
// whole, so a batch always sees one consistent vectorizer/model pair.
type Engine struct {
	bundle atomic.Pointer[artifact.Bundle]
	cache  cache.Cache
	logger *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

func WithCache(c cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine wraps bundle, which may be nil until artifacts become available.
func NewEngine(bundle *artifact.Bundle, opts ...Option) *Engine {
	e := &Engine{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if bundle != nil {
		e.bundle.Store(bundle)
	}
	return e
}

// Ready reports whether a bundle is loaded.
func (e *Engine) Ready() bool {
	return e.bundle.Load() != nil
}

// Bundle returns the active bundle or nil.
func (e *Engine) Bundle() *artifact.Bundle {
	return e.bundle.Load()
}

// Swap installs a new bundle; in-flight batches finish on the old one.
func (e *Engine) Swap(b *artifact.Bundle) {
	if b == nil {
		return
	}
	e.bundle.Store(b)
}

// PredictBatch classifies 1..100 texts. Any failing item fails the batch with a
// *PredictionError; nothing is partially returned.
func (e *Engine) PredictBatch(ctx context.Context, texts []string) (result *BatchResult, err error) {
	b := e.bundle.Load()
	if b == nil {
		return nil, ErrUnavailable
	}
	if err := validateBatchSize(texts); err != nil {
		return nil, err
	}

	current := -1
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("prediction panicked", zap.Int("index", current), zap.Any("panic", r))
			text := ""
			if current >= 0 && current < len(texts) {
				text = texts[current]
			}
			result = nil
			err = &PredictionError{Index: current, Text: Truncate(text), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	results := make([]Prediction, len(texts))
	for i, text := range texts {
		current = i
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := e.predictOne(ctx, b, text)
		if err != nil {
			return nil, &PredictionError{Index: i, Text: Truncate(text), Err: err}
		}
		results[i] = p
	}

	return &BatchResult{
		Results:       results,
		Statistics:    ComputeStatistics(results),
		TotalComments: len(results),
	}, nil
}

func (e *Engine) predictOne(ctx context.Context, b *artifact.Bundle, text string) (Prediction, error) {
	normalized := ml.Normalize(text)
	if normalized == "" {
		// Nothing survives cleaning: answer undecided with the uniform distribution.
		return Prediction{
			Text:       Truncate(text),
			Sentiment:  b.LabelName(ml.LabelNeutral),
			Label:      ml.LabelNeutral,
			Confidence: 1 / float64(len(b.Manifest.Labels)),
		}, nil
	}

	key := cache.Key(b.Manifest.CacheScope(), normalized)
	if e.cache != nil {
		if entry, ok := e.cache.Get(ctx, key); ok {
			return e.prediction(b, text, entry.Label, entry.Confidence), nil
		}
	}

	label, confidence, err := b.Model.Predict(b.Vectorizer.TransformOne(normalized))
	if err != nil {
		return Prediction{}, err
	}
	if e.cache != nil {
		e.cache.Add(ctx, key, cache.Entry{Label: label, Confidence: confidence})
	}
	return e.prediction(b, text, label, confidence), nil
}

func (e *Engine) prediction(b *artifact.Bundle, text string, label int, confidence float64) Prediction {
	return Prediction{
		Text:       Truncate(text),
		Sentiment:  b.LabelName(label),
		Label:      label,
		Confidence: confidence,
	}
}
