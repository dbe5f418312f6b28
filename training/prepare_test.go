package training

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentilyzer/ml"
	"sentilyzer/ml/mltest"
)

func writeRaw(t *testing.T, comments []ml.Comment) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reddit.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.Write([]string{RawTextColumn, RawLabelColumn}))
	for _, c := range comments {
		require.NoError(t, w.Write([]string{c.Text, strconv.Itoa(c.Label)}))
	}
	w.Flush()
	require.NoError(t, w.Error())
	require.NoError(t, f.Close())
	return path
}

func TestPrepare(t *testing.T) {
	raw := append(mltest.SyntheticCorpus(100),
		ml.Comment{Text: "@someone", Label: 1},
		ml.Comment{Text: "https://spam.example", Label: 0},
	)
	cfg := DefaultPrepareConfig()
	cfg.InputPath = writeRaw(t, raw)
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")

	report, err := Prepare(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 302, report.RawRows)
	assert.Equal(t, 2, report.Dropped)
	assert.Len(t, report.Train, 240)
	assert.Len(t, report.Test, 60)
	assert.Equal(t, map[int]int{-1: 100, 0: 100, 1: 100}, report.Distribution)
	assert.Positive(t, report.Lengths.Min)

	train, err := ml.LoadComments(report.TrainPath, ml.TextColumn, ml.LabelColumn)
	require.NoError(t, err)
	assert.Equal(t, report.Train, train)
	test, err := ml.LoadComments(report.TestPath, ml.TextColumn, ml.LabelColumn)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{-1: 20, 0: 20, 1: 20}, ml.ClassDistribution(ml.Labels(test)))

	summary := report.Summary()
	assert.Contains(t, summary, "positive")
	assert.Contains(t, summary, "2 dropped")
}

func TestPrepareRejectsDegenerateLabels(t *testing.T) {
	cfg := DefaultPrepareConfig()
	cfg.InputPath = writeRaw(t, []ml.Comment{{Text: "great", Label: 1}, {Text: "super", Label: 1}})
	cfg.OutputDir = t.TempDir()

	_, err := Prepare(cfg, nil)
	assert.ErrorIs(t, err, ml.ErrDegenerateLabels)
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "train.csv"))
}
