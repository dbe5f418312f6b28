// Package training runs the offline pipeline: clean, vectorize, grid-search,
// evaluate and persist one artifact bundle.
package training

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"sentilyzer/artifact"
	"sentilyzer/baseline"
	"sentilyzer/ml"
)

// Config controls one training run.
type Config struct {
	// DataPath is a single labeled CSV split into train/test with TestRatio and Seed.
	// When TrainPath and TestPath are both set they are used as-is instead.
	DataPath      string           `yaml:"data_path"`
	TrainPath     string           `yaml:"train_path"`
	TestPath      string           `yaml:"test_path"`
	TextColumn    string           `yaml:"text_column"`
	LabelColumn   string           `yaml:"label_column"`
	ArtifactDir   string           `yaml:"artifact_dir"`
	Seed          int64            `yaml:"seed"`
	TestRatio     float64          `yaml:"test_ratio"`
	Folds         int              `yaml:"cv_folds"`
	Workers       int              `yaml:"workers"`
	Tfidf         ml.TfidfConfig   `yaml:"tfidf"`
	Grid          ml.ParameterGrid `yaml:"grid"`
	LatencySample int              `yaml:"latency_sample"`
	Baseline      bool             `yaml:"baseline"`
}

// DefaultConfig mirrors the grid and split the service was tuned with.
func DefaultConfig() Config {
	return Config{
		TextColumn:    ml.TextColumn,
		LabelColumn:   ml.LabelColumn,
		ArtifactDir:   "models",
		Seed:          42,
		TestRatio:     0.2,
		Folds:         3,
		Tfidf:         ml.DefaultTfidfConfig(),
		Grid:          ml.DefaultGrid(),
		LatencySample: 50,
		Baseline:      true,
	}
}

// Report is everything one run produced.
type Report struct {
	TrainSize   int
	TestSize    int
	Vocabulary  int
	Search      *ml.SearchResult
	Evaluation  ml.EvaluationReport
	Baseline    *ml.EvaluationReport
	Latency     ml.LatencyReport
	Bundle      *artifact.Bundle
	ArtifactDir string
	StartedAt   time.Time
	Duration    time.Duration
}

// renderConfusionMatrix is swapped out in tests.
var renderConfusionMatrix = ConfusionMatrixPNG

// Pipeline trains, evaluates and persists a bundle.
type Pipeline struct {
	cfg    Config
	logger *zap.Logger
}

func NewPipeline(cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, logger: logger}
}

// LoadSplits reads the configured CSVs and returns the train and test comments.
func (p *Pipeline) LoadSplits() (train, test []ml.Comment, err error) {
	cfg := p.cfg
	if cfg.TrainPath != "" && cfg.TestPath != "" {
		if train, err = ml.LoadComments(cfg.TrainPath, cfg.TextColumn, cfg.LabelColumn); err != nil {
			return nil, nil, err
		}
		if test, err = ml.LoadComments(cfg.TestPath, cfg.TextColumn, cfg.LabelColumn); err != nil {
			return nil, nil, err
		}
		return train, test, nil
	}
	if cfg.DataPath == "" {
		return nil, nil, errors.New("either data_path or both train_path and test_path are required")
	}
	comments, err := ml.LoadComments(cfg.DataPath, cfg.TextColumn, cfg.LabelColumn)
	if err != nil {
		return nil, nil, err
	}
	return ml.StratifiedSplit(ml.CleanCorpus(comments), cfg.TestRatio, cfg.Seed)
}

// Run trains on train, evaluates on test and, only when every step succeeded,
// writes the artifacts.
func (p *Pipeline) Run(ctx context.Context, train, test []ml.Comment) (*Report, error) {
	started := time.Now()
	cfg := p.cfg

	train = ml.CleanCorpus(train)
	test = ml.CleanCorpus(test)
	if err := ml.ValidateLabels(ml.Labels(train)); err != nil {
		return nil, fmt.Errorf("training split: %w", err)
	}
	if len(test) == 0 {
		return nil, fmt.Errorf("test split: %w", ml.ErrEmptyCorpus)
	}
	p.logger.Info("corpus ready",
		zap.Int("train", len(train)),
		zap.Int("test", len(test)),
		zap.Any("train_distribution", ml.ClassDistribution(ml.Labels(train))))

	vectorizer := ml.NewTfidfVectorizer(cfg.Tfidf)
	if err := vectorizer.Fit(ml.Texts(train)); err != nil {
		return nil, fmt.Errorf("fit vectorizer: %w", err)
	}
	trainX, err := vectorizer.Transform(ml.Texts(train))
	if err != nil {
		return nil, err
	}
	p.logger.Info("vectorizer fitted", zap.Int("features", vectorizer.NumFeatures()))

	search := ml.NewGridSearch(cfg.Grid, cfg.Folds, cfg.Workers, p.logger)
	result, err := search.Run(ctx, trainX, ml.Labels(train), vectorizer.NumFeatures())
	if err != nil {
		return nil, fmt.Errorf("grid search: %w", err)
	}
	model, ok := result.Model.(*ml.LogisticRegression)
	if !ok {
		return nil, fmt.Errorf("grid search returned %T, want *ml.LogisticRegression", result.Model)
	}

	testX, err := vectorizer.Transform(ml.Texts(test))
	if err != nil {
		return nil, err
	}
	yPred := make([]int, len(testX))
	for i, x := range testX {
		if yPred[i], _, err = model.Predict(x); err != nil {
			return nil, fmt.Errorf("predict test comment %d: %w", i, err)
		}
	}
	evaluation := ml.Evaluate(ml.Labels(test), yPred, ml.DefaultClasses)

	var baselineReport *ml.EvaluationReport
	if cfg.Baseline {
		r := baseline.NewVader(baseline.DefaultThreshold).Evaluate(test)
		baselineReport = &r
	}

	latency, err := ml.MeasureLatency(vectorizer, model, ml.Texts(test), cfg.LatencySample)
	if err != nil {
		return nil, fmt.Errorf("measure latency: %w", err)
	}

	bundle, err := artifact.NewBundle(vectorizer, model, artifact.Metrics{
		CVScore:    result.BestScore,
		Accuracy:   evaluation.Accuracy,
		WeightedF1: evaluation.WeightedF1,
		MacroF1:    evaluation.MacroF1,
		PerClass:   evaluation.PerClass,
		Baseline:   baselineReport,
	})
	if err != nil {
		return nil, err
	}
	names := make([]string, len(evaluation.Classes))
	for i, c := range evaluation.Classes {
		names[i] = ml.SentimentName(c)
	}
	matrixPNG, err := renderConfusionMatrix(evaluation.Confusion, names, "Confusion Matrix")
	if err != nil {
		return nil, fmt.Errorf("render confusion matrix: %w", err)
	}
	if err := artifact.Save(cfg.ArtifactDir, bundle, artifact.File{Name: artifact.ConfusionMatrixFile, Data: matrixPNG}); err != nil {
		return nil, fmt.Errorf("save artifacts: %w", err)
	}

	report := &Report{
		TrainSize:   len(train),
		TestSize:    len(test),
		Vocabulary:  vectorizer.NumFeatures(),
		Search:      result,
		Evaluation:  evaluation,
		Baseline:    baselineReport,
		Latency:     latency,
		Bundle:      bundle,
		ArtifactDir: cfg.ArtifactDir,
		StartedAt:   started,
		Duration:    time.Since(started),
	}
	p.logger.Info("training finished",
		zap.Stringer("best_params", result.Best),
		zap.Float64("cv_weighted_f1", result.BestScore),
		zap.Float64("accuracy", evaluation.Accuracy),
		zap.Float64("weighted_f1", evaluation.WeightedF1),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// Summary renders the run the way the CLI prints it.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "train=%d test=%d vocabulary=%d\n", r.TrainSize, r.TestSize, r.Vocabulary)
	fmt.Fprintf(&b, "best parameters: %s (cv weighted f1 %.4f)\n\n", r.Search.Best, r.Search.BestScore)
	b.WriteString("classification report\n")
	b.WriteString(r.Evaluation.String())
	if r.Baseline != nil {
		fmt.Fprintf(&b, "\nvader baseline: accuracy %.4f weighted f1 %.4f\n", r.Baseline.Accuracy, r.Baseline.WeightedF1)
	}
	fmt.Fprintf(&b, "\ninference latency: %s for %d comments (%s per comment)\n",
		r.Latency.Total, r.Latency.Samples, r.Latency.PerComment)
	fmt.Fprintf(&b, "artifacts written to %s\n", r.ArtifactDir)
	return b.String()
}
