package training

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sentilyzer/artifact"
	"sentilyzer/inference"
	"sentilyzer/ml"
	"sentilyzer/ml/mltest"
)

func TestPipelineEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.ArtifactDir = dir
	cfg.Workers = 4

	train, test, err := ml.StratifiedSplit(mltest.SyntheticCorpus(100), cfg.TestRatio, cfg.Seed)
	require.NoError(t, err)
	require.Len(t, train, 240)
	require.Len(t, test, 60)

	report, err := NewPipeline(cfg, zap.NewNop()).Run(context.Background(), train, test)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, report.Evaluation.Accuracy, 0.8)
	assert.Len(t, report.Search.Results, 12)
	assert.NotNil(t, report.Baseline)
	assert.Equal(t, 50, report.Latency.Samples)
	assert.Contains(t, report.Summary(), "best parameters")

	for _, name := range []string{artifact.VectorizerFile, artifact.ModelFile, artifact.ManifestFile, artifact.ConfusionMatrixFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	bundle, err := artifact.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, report.Search.Best, bundle.Manifest.Hyperparameters)
	assert.InDelta(t, report.Evaluation.Accuracy, bundle.Manifest.Metrics.Accuracy, 1e-12)

	engine := inference.NewEngine(bundle)
	result, err := engine.PredictBatch(context.Background(), []string{"I love this", "meh", "I hate this"})
	require.NoError(t, err)
	labels := make([]int, len(result.Results))
	for i, p := range result.Results {
		labels[i] = p.Label
	}
	assert.Equal(t, []int{1, 0, -1}, labels)
	assert.InDelta(t, 33.33, result.Statistics.PositivePercent, 0.01)
	assert.InDelta(t, 33.33, result.Statistics.NeutralPercent, 0.01)
	assert.InDelta(t, 33.33, result.Statistics.NegativePercent, 0.01)
}

func TestPipelineWritesNothingOnFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	cfg := DefaultConfig()
	cfg.ArtifactDir = dir

	degenerate := []ml.Comment{{Text: "good stuff", Label: 1}, {Text: "good things", Label: 1}}
	_, err := NewPipeline(cfg, nil).Run(context.Background(), degenerate, degenerate)
	assert.ErrorIs(t, err, ml.ErrDegenerateLabels)

	_, err = NewPipeline(cfg, nil).Run(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ml.ErrEmptyCorpus)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func quickConfig(dir string) Config {
	cfg := DefaultConfig()
	cfg.ArtifactDir = dir
	cfg.Grid = ml.ParameterGrid{C: []float64{10}, MaxIter: []int{200}, Solver: []ml.Solver{ml.SolverLBFGS}}
	cfg.Baseline = false
	cfg.LatencySample = 5
	return cfg
}

func TestPipelineWritesNothingOnLateFailure(t *testing.T) {
	train, test, err := ml.StratifiedSplit(mltest.SyntheticCorpus(100), 0.2, 42)
	require.NoError(t, err)

	t.Run("render fails", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "models")
		renderConfusionMatrix = func([][]int, []string, string) ([]byte, error) {
			return nil, errors.New("no font")
		}
		defer func() { renderConfusionMatrix = ConfusionMatrixPNG }()

		_, err := NewPipeline(quickConfig(dir), nil).Run(context.Background(), train, test)
		assert.ErrorContains(t, err, "render confusion matrix")
		_, statErr := os.Stat(dir)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("commit fails", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, artifact.ConfusionMatrixFile, "taken"), 0o755))

		_, err := NewPipeline(quickConfig(dir), nil).Run(context.Background(), train, test)
		assert.ErrorContains(t, err, "save artifacts")
		for _, name := range []string{artifact.VectorizerFile, artifact.ModelFile, artifact.ManifestFile} {
			assert.NoFileExists(t, filepath.Join(dir, name))
		}
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1, "only the pre-existing directory remains")
	})
}

func TestLoadSplits(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data.csv")
	require.NoError(t, ml.SaveComments(data, mltest.SyntheticCorpus(20)))

	cfg := DefaultConfig()
	cfg.DataPath = data
	train, test, err := NewPipeline(cfg, nil).LoadSplits()
	require.NoError(t, err)
	assert.Len(t, train, 48)
	assert.Len(t, test, 12)

	cfg = DefaultConfig()
	cfg.TrainPath = data
	cfg.TestPath = data
	train, test, err = NewPipeline(cfg, nil).LoadSplits()
	require.NoError(t, err)
	assert.Len(t, train, 60)
	assert.Len(t, test, 60)

	_, _, err = NewPipeline(DefaultConfig(), nil).LoadSplits()
	assert.Error(t, err)
}

func TestRenderConfusionMatrix(t *testing.T) {
	var buf bytes.Buffer
	matrix := [][]int{{9, 1, 0}, {0, 5, 0}, {1, 0, 8}}
	require.NoError(t, RenderConfusionMatrix(&buf, matrix, []string{"negative", "neutral", "positive"}, "Confusion Matrix"))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	b := img.Bounds()
	assert.Equal(t, labelMargin+3*cellSize+10, b.Dx())

	// Top-left corner of the largest cell is darker than that of an empty one.
	top := titleHeight + axisHeight
	r1, _, _, _ := img.At(labelMargin+3, top+3).RGBA()
	r2, _, _, _ := img.At(labelMargin+2*cellSize+3, top+3).RGBA()
	assert.Less(t, r1, r2)

	assert.Error(t, RenderConfusionMatrix(&buf, matrix, []string{"a"}, "x"))
}
