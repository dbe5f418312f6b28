package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// ParameterGrid is the cartesian product searched by GridSearch.
type ParameterGrid struct {
	C       []float64 `json:"C" yaml:"c"`
	MaxIter []int     `json:"max_iter" yaml:"max_iter"`
	Solver  []Solver  `json:"solver" yaml:"solver"`
}

// DefaultGrid is the 12-point grid searched by default.
func DefaultGrid() ParameterGrid {
	return ParameterGrid{
		C:       []float64{0.1, 1, 10},
		MaxIter: []int{100, 200},
		Solver:  []Solver{SolverLBFGS, SolverOVR},
	}
}

// Configs enumerates the grid with C varying slowest and Solver fastest. Ties in the
// search are broken by this order.
func (g ParameterGrid) Configs() []Hyperparameters {
	configs := make([]Hyperparameters, 0, len(g.C)*len(g.MaxIter)*len(g.Solver))
	for _, c := range g.C {
		for _, iter := range g.MaxIter {
			for _, solver := range g.Solver {
				configs = append(configs, Hyperparameters{C: c, MaxIter: iter, Solver: solver})
			}
		}
	}
	return configs
}

// Scorer compares predictions against the truth; higher is better.
type Scorer func(yTrue, yPred, classes []int) float64

// CVResult is the cross-validated outcome of one grid point.
type CVResult struct {
	ID         int             `json:"id"`
	Params     Hyperparameters `json:"params"`
	FoldScores []float64       `json:"fold_scores"`
	MeanScore  float64         `json:"mean_score"`
	StdScore   float64         `json:"std_score"`
	Duration   time.Duration   `json:"duration"`
	Status     string          `json:"status"` // completed, failed
	Error      string          `json:"error,omitempty"`
}

// SearchResult holds every grid point and the model refit on the full training set.
type SearchResult struct {
	Best      Hyperparameters `json:"best_params"`
	BestScore float64         `json:"best_score"`
	Results   []CVResult      `json:"results"`
	Model     Classifier      `json:"-"`
}

// GridSearch cross-validates each grid point on a bounded worker pool.
type GridSearch struct {
	Grid          ParameterGrid
	Folds         int
	Workers       int
	Scorer        Scorer
	NewClassifier ClassifierFactory
	Logger        *zap.Logger
}

// NewGridSearch scores by weighted F1 and trains LogisticRegression.
func NewGridSearch(grid ParameterGrid, folds, workers int, logger *zap.Logger) *GridSearch {
	return &GridSearch{
		Grid:          grid,
		Folds:         folds,
		Workers:       workers,
		Scorer:        WeightedF1,
		NewClassifier: NewLogisticClassifier,
		Logger:        logger,
	}
}

type foldOutcome struct {
	score    float64
	err      error
	duration time.Duration
}

// Run cross-validates every grid point on (features, labels) and refits the winner
// on all of it. Each (config, fold) pair is an independent task writing its own slot.
func (gs *GridSearch) Run(ctx context.Context, features []SparseVector, labels []int, numFeatures int) (*SearchResult, error) {
	if len(features) == 0 {
		return nil, ErrEmptyCorpus
	}
	if len(features) != len(labels) {
		return nil, ErrSizeMismatch
	}
	classes := DistinctLabels(labels)
	if len(classes) < 2 {
		return nil, ErrDegenerateLabels
	}
	configs := gs.Grid.Configs()
	if len(configs) == 0 {
		return nil, errors.New("parameter grid is empty")
	}
	folds, err := StratifiedKFold(labels, gs.folds())
	if err != nil {
		return nil, err
	}
	logger := gs.logger()
	scorer := gs.Scorer
	if scorer == nil {
		scorer = WeightedF1
	}
	factory := gs.NewClassifier
	if factory == nil {
		factory = NewLogisticClassifier
	}

	logger.Info("starting grid search",
		zap.Int("configs", len(configs)),
		zap.Int("folds", len(folds)),
		zap.Int("workers", gs.workers()))

	outcomes := make([][]foldOutcome, len(configs))
	for i := range outcomes {
		outcomes[i] = make([]foldOutcome, len(folds))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(gs.workers())
	for ci := range configs {
		for fi := range folds {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				start := time.Now()
				score, err := scoreFold(factory(configs[ci]), features, labels, folds[fi], numFeatures, classes, scorer)
				outcomes[ci][fi] = foldOutcome{score: score, err: err, duration: time.Since(start)}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]CVResult, len(configs))
	bestIdx := -1
	for ci, params := range configs {
		res := CVResult{ID: ci, Params: params, Status: "completed"}
		for _, out := range outcomes[ci] {
			res.Duration += out.duration
			if out.err != nil && res.Error == "" {
				res.Status = "failed"
				res.Error = out.err.Error()
			}
			res.FoldScores = append(res.FoldScores, out.score)
		}
		if res.Status == "completed" {
			res.MeanScore, res.StdScore = stat.MeanStdDev(res.FoldScores, nil)
			if math.IsNaN(res.StdScore) {
				res.StdScore = 0
			}
			if bestIdx < 0 || res.MeanScore > results[bestIdx].MeanScore {
				bestIdx = ci
			}
		} else {
			logger.Warn("grid point failed", zap.Stringer("params", params), zap.String("error", res.Error))
		}
		results[ci] = res
	}
	if bestIdx < 0 {
		return nil, fmt.Errorf("grid search: all %d configurations failed: %s", len(configs), results[0].Error)
	}

	best := results[bestIdx]
	logger.Info("grid search finished",
		zap.Stringer("best_params", best.Params),
		zap.Float64("best_score", best.MeanScore))

	model := factory(best.Params)
	if err := model.Fit(features, labels, numFeatures); err != nil {
		return nil, fmt.Errorf("refit %s: %w", best.Params, err)
	}
	return &SearchResult{
		Best:      best.Params,
		BestScore: best.MeanScore,
		Results:   results,
		Model:     model,
	}, nil
}

func scoreFold(model Classifier, features []SparseVector, labels []int, fold Fold, numFeatures int, classes []int, scorer Scorer) (float64, error) {
	trainX := make([]SparseVector, len(fold.Train))
	trainY := make([]int, len(fold.Train))
	for i, idx := range fold.Train {
		trainX[i] = features[idx]
		trainY[i] = labels[idx]
	}
	if err := model.Fit(trainX, trainY, numFeatures); err != nil {
		return 0, err
	}

	yTrue := make([]int, len(fold.Test))
	yPred := make([]int, len(fold.Test))
	for i, idx := range fold.Test {
		label, _, err := model.Predict(features[idx])
		if err != nil {
			return 0, err
		}
		yTrue[i] = labels[idx]
		yPred[i] = label
	}
	return scorer(yTrue, yPred, classes), nil
}

func (gs *GridSearch) folds() int {
	if gs.Folds <= 0 {
		return 3
	}
	return gs.Folds
}

func (gs *GridSearch) workers() int {
	if gs.Workers <= 0 {
		return runtime.NumCPU()
	}
	return gs.Workers
}

func (gs *GridSearch) logger() *zap.Logger {
	if gs.Logger == nil {
		return zap.NewNop()
	}
	return gs.Logger
}
