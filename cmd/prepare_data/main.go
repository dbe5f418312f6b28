package main

import (
	"flag"
	"fmt"
	"log"

	"sentilyzer/logging"
	"sentilyzer/training"
)

func main() {
	cfg := training.DefaultPrepareConfig()
	flag.StringVar(&cfg.InputPath, "input", "", "raw CSV with clean_comment,category columns")
	flag.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "directory for train.csv and test.csv")
	flag.StringVar(&cfg.TextColumn, "text-column", cfg.TextColumn, "text column in the raw CSV")
	flag.StringVar(&cfg.LabelColumn, "label-column", cfg.LabelColumn, "label column in the raw CSV")
	flag.Float64Var(&cfg.TestRatio, "test-ratio", cfg.TestRatio, "share of rows held out for testing")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "shuffle seed")
	flag.Parse()

	if cfg.InputPath == "" {
		log.Fatal("-input is required")
	}
	logger, err := logging.New(logging.DefaultConfig())
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	report, err := training.Prepare(cfg, logger)
	if err != nil {
		log.Fatalf("failed to prepare data: %v", err)
	}
	fmt.Print(report.Summary())
}
