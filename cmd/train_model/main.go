package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"sentilyzer/config"
	"sentilyzer/db"
	"sentilyzer/logging"
	"sentilyzer/training"
)

type options struct {
	configPath  string
	dataPath    string
	trainPath   string
	testPath    string
	artifactDir string
	seed        int64
	folds       int
	workers     int
	noBaseline  bool
	noRecord    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to config.yaml")
	flag.StringVar(&opts.dataPath, "data", "", "labeled CSV split into train/test")
	flag.StringVar(&opts.trainPath, "train", "", "training CSV (with -test)")
	flag.StringVar(&opts.testPath, "test", "", "test CSV (with -train)")
	flag.StringVar(&opts.artifactDir, "artifacts", "", "artifact output directory")
	flag.Int64Var(&opts.seed, "seed", 0, "split seed (0 keeps the configured seed)")
	flag.IntVar(&opts.folds, "folds", 0, "cross-validation folds (0 keeps the configured value)")
	flag.IntVar(&opts.workers, "workers", 0, "grid search workers (0 uses every CPU)")
	flag.BoolVar(&opts.noBaseline, "no-baseline", false, "skip the VADER baseline")
	flag.BoolVar(&opts.noRecord, "no-record", false, "do not record the run in the database")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "train_model: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	tc := cfg.Training
	if opts.dataPath != "" {
		tc.DataPath = opts.dataPath
	}
	if opts.trainPath != "" {
		tc.TrainPath = opts.trainPath
	}
	if opts.testPath != "" {
		tc.TestPath = opts.testPath
	}
	if opts.artifactDir != "" {
		tc.ArtifactDir = opts.artifactDir
	}
	if opts.seed != 0 {
		tc.Seed = opts.seed
	}
	if opts.folds != 0 {
		tc.Folds = opts.folds
	}
	if opts.workers != 0 {
		tc.Workers = opts.workers
	}
	if opts.noBaseline {
		tc.Baseline = false
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline := training.NewPipeline(tc, logger)
	train, test, err := pipeline.LoadSplits()
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}
	report, err := pipeline.Run(ctx, train, test)
	if err != nil {
		logger.Error("training failed", zap.Error(err))
		return err
	}
	fmt.Print(report.Summary())

	if opts.noRecord {
		return nil
	}
	if err := recordRun(ctx, cfg.Database.Path, report); err != nil {
		return fmt.Errorf("record training run: %w", err)
	}
	return nil
}

func recordRun(ctx context.Context, path string, report *training.Report) error {
	store, err := db.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	perClass, err := json.Marshal(report.Evaluation.PerClass)
	if err != nil {
		return fmt.Errorf("marshal per-class metrics: %w", err)
	}
	run := db.TrainingRun{
		StartedAt:   report.StartedAt,
		DurationMS:  report.Duration.Milliseconds(),
		TrainSize:   report.TrainSize,
		TestSize:    report.TestSize,
		Vocabulary:  report.Vocabulary,
		BestParams:  report.Search.Best.String(),
		CVScore:     report.Search.BestScore,
		Accuracy:    report.Evaluation.Accuracy,
		WeightedF1:  report.Evaluation.WeightedF1,
		MacroF1:     report.Evaluation.MacroF1,
		PerClass:    perClass,
		Fingerprint: report.Bundle.Manifest.VocabularyFingerprint,
		ArtifactDir: report.ArtifactDir,
	}
	if report.Baseline != nil {
		f1 := report.Baseline.WeightedF1
		run.BaselineWeightedF1 = &f1
	}
	_, err = store.RecordTrainingRun(ctx, run)
	return err
}
