package ml

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func separableData() ([]SparseVector, []int) {
	var xs []SparseVector
	var ys []int
	for i := 0; i < 4; i++ {
		for k, label := range DefaultClasses {
			xs = append(xs, SparseVector{Indices: []int{k}, Values: []float64{1}})
			ys = append(ys, label)
		}
	}
	return xs, ys
}

func TestLogisticRegressionSolvers(t *testing.T) {
	xs, ys := separableData()
	for _, solver := range []Solver{SolverLBFGS, SolverOVR} {
		t.Run(string(solver), func(t *testing.T) {
			model := NewLogisticRegression(Hyperparameters{C: 10, MaxIter: 200, Solver: solver})
			require.NoError(t, model.Fit(xs, ys, 3))
			assert.Equal(t, DefaultClasses, model.Labels())

			for k, label := range DefaultClasses {
				x := SparseVector{Indices: []int{k}, Values: []float64{1}}
				probs, err := model.PredictProba(x)
				require.NoError(t, err)
				require.Len(t, probs, 3)
				assert.InDelta(t, 1.0, probs[0]+probs[1]+probs[2], 1e-9)

				got, confidence, err := model.Predict(x)
				require.NoError(t, err)
				assert.Equal(t, label, got)
				assert.Greater(t, confidence, 1.0/3)
			}
		})
	}
}

func TestLogisticRegressionZeroVector(t *testing.T) {
	xs, ys := separableData()
	model := NewLogisticRegression(Hyperparameters{C: 1, MaxIter: 100, Solver: SolverLBFGS})
	require.NoError(t, model.Fit(xs, ys, 3))

	probs, err := model.PredictProba(SparseVector{})
	require.NoError(t, err)
	// Balanced classes leave the intercepts equal, so the empty text is undecided.
	for _, p := range probs {
		assert.InDelta(t, 1.0/3, p, 1e-3)
	}
}

func TestLogisticRegressionErrors(t *testing.T) {
	params := Hyperparameters{C: 1, MaxIter: 100, Solver: SolverLBFGS}
	xs, ys := separableData()

	assert.ErrorIs(t, NewLogisticRegression(params).Fit(nil, nil, 3), ErrEmptyCorpus)
	assert.ErrorIs(t, NewLogisticRegression(params).Fit(xs, ys[:2], 3), ErrSizeMismatch)
	assert.ErrorIs(t, NewLogisticRegression(params).Fit(xs[:1], ys[:1], 3), ErrDegenerateLabels)
	assert.ErrorIs(t, NewLogisticRegression(params).Fit(xs, ys, 2), ErrSizeMismatch)
	assert.Error(t, NewLogisticRegression(Hyperparameters{C: 0, MaxIter: 100, Solver: SolverLBFGS}).Fit(xs, ys, 3))
	assert.Error(t, NewLogisticRegression(Hyperparameters{C: 1, MaxIter: 100, Solver: "newton"}).Fit(xs, ys, 3))

	_, _, err := NewLogisticRegression(params).Predict(SparseVector{})
	assert.ErrorIs(t, err, ErrNotFitted)

	model := NewLogisticRegression(params)
	require.NoError(t, model.Fit(xs, ys, 3))
	_, err = model.PredictProba(SparseVector{Indices: []int{7}, Values: []float64{1}})
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestLogisticRegressionSaveLoad(t *testing.T) {
	xs, ys := separableData()
	model := NewLogisticRegression(Hyperparameters{C: 1, MaxIter: 100, Solver: SolverOVR})
	require.NoError(t, model.Fit(xs, ys, 3))

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, model.Save(path))

	loaded, err := LoadModel("logistic_regression", path)
	require.NoError(t, err)
	for _, x := range xs {
		want, err := model.PredictProba(x)
		require.NoError(t, err)
		got, err := loaded.PredictProba(x)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = LoadModel("decision_tree", path)
	assert.Error(t, err)
	assert.ErrorIs(t, NewLogisticRegression(Hyperparameters{}).Save(path), ErrNotFitted)
}

func TestLogisticRegressionFingerprint(t *testing.T) {
	xs, ys := separableData()
	model := NewLogisticRegression(Hyperparameters{C: 1, MaxIter: 100, Solver: SolverLBFGS})
	require.NoError(t, model.Fit(xs, ys, 3))

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, model.Save(path))
	loaded, err := LoadModel("logistic_regression", path)
	require.NoError(t, err)
	assert.Equal(t, model.Fingerprint(), loaded.(*LogisticRegression).Fingerprint())

	stronger := NewLogisticRegression(Hyperparameters{C: 10, MaxIter: 100, Solver: SolverLBFGS})
	require.NoError(t, stronger.Fit(xs, ys, 3))
	assert.NotEqual(t, model.Fingerprint(), stronger.Fingerprint())
}
