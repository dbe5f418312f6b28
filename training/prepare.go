package training

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"sentilyzer/ml"
)

// Raw Reddit dump column names.
const (
	RawTextColumn  = "clean_comment"
	RawLabelColumn = "category"
)

// PrepareConfig drives conversion of a raw export into train/test CSVs.
type PrepareConfig struct {
	InputPath   string
	OutputDir   string
	TextColumn  string
	LabelColumn string
	TestRatio   float64
	Seed        int64
}

func DefaultPrepareConfig() PrepareConfig {
	return PrepareConfig{
		OutputDir:   "data",
		TextColumn:  RawTextColumn,
		LabelColumn: RawLabelColumn,
		TestRatio:   0.2,
		Seed:        42,
	}
}

// PrepareReport describes one Prepare run.
type PrepareReport struct {
	RawRows      int
	Dropped      int
	Train        []ml.Comment
	Test         []ml.Comment
	Distribution map[int]int
	Lengths      ml.LengthStats
	TrainPath    string
	TestPath     string
}

// Prepare cleans the raw dump, drops rows that clean to nothing and writes a
// stratified train.csv/test.csv pair in the text,label layout training reads.
func Prepare(cfg PrepareConfig, logger *zap.Logger) (*PrepareReport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	raw, err := ml.LoadComments(cfg.InputPath, cfg.TextColumn, cfg.LabelColumn)
	if err != nil {
		return nil, err
	}
	cleaned := ml.CleanCorpus(raw)
	if err := ml.ValidateLabels(ml.Labels(cleaned)); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.InputPath, err)
	}
	train, test, err := ml.StratifiedSplit(cleaned, cfg.TestRatio, cfg.Seed)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	report := &PrepareReport{
		RawRows:      len(raw),
		Dropped:      len(raw) - len(cleaned),
		Train:        train,
		Test:         test,
		Distribution: ml.ClassDistribution(ml.Labels(cleaned)),
		Lengths:      ml.TextLengthStats(cleaned),
		TrainPath:    filepath.Join(cfg.OutputDir, "train.csv"),
		TestPath:     filepath.Join(cfg.OutputDir, "test.csv"),
	}
	if err := ml.SaveComments(report.TrainPath, train); err != nil {
		return nil, err
	}
	if err := ml.SaveComments(report.TestPath, test); err != nil {
		return nil, err
	}
	logger.Info("data prepared",
		zap.Int("raw", report.RawRows),
		zap.Int("dropped", report.Dropped),
		zap.Int("train", len(train)),
		zap.Int("test", len(test)))
	return report, nil
}

// Summary renders the report for the CLI.
func (r *PrepareReport) Summary() string {
	var b strings.Builder
	total := len(r.Train) + len(r.Test)
	fmt.Fprintf(&b, "rows: %d raw, %d dropped, %d kept\n", r.RawRows, r.Dropped, total)
	b.WriteString("class distribution:\n")
	labels := make([]int, 0, len(r.Distribution))
	for l := range r.Distribution {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	for _, l := range labels {
		n := r.Distribution[l]
		fmt.Fprintf(&b, "  %-8s %6d (%.1f%%)\n", ml.SentimentName(l), n, float64(n)/float64(total)*100)
	}
	fmt.Fprintf(&b, "text length: min %d, max %d, mean %.1f, median %.1f\n",
		r.Lengths.Min, r.Lengths.Max, r.Lengths.Mean, r.Lengths.Median)
	fmt.Fprintf(&b, "train: %d rows -> %s\ntest: %d rows -> %s\n", len(r.Train), r.TrainPath, len(r.Test), r.TestPath)
	return b.String()
}
