package ml

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

const gradientTolerance = 1e-5

// LogisticRegression is an L2-regularized linear classifier. Weights[k] and
// Intercepts[k] belong to Classes[k]; the intercept is not regularized.
type LogisticRegression struct {
	Params      Hyperparameters `json:"params"`
	Classes     []int           `json:"classes"`
	NumFeatures int             `json:"num_features"`
	Weights     [][]float64     `json:"weights"`
	Intercepts  []float64       `json:"intercepts"`
	Iterations  int             `json:"iterations"`
	Status      string          `json:"status"`
}

func NewLogisticRegression(params Hyperparameters) *LogisticRegression {
	return &LogisticRegression{Params: params}
}

// Labels returns a copy of the class labels in weight order.
func (lr *LogisticRegression) Labels() []int {
	return append([]int(nil), lr.Classes...)
}

// Fingerprint hashes the solver, class order and every coefficient, so two models
// share it only if they answer identically.
func (lr *LogisticRegression) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(lr.Params.Solver))
	var buf [8]byte
	for _, c := range lr.Classes {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(c)))
		h.Write(buf[:])
	}
	for k, row := range lr.Weights {
		for _, w := range row {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(w))
			h.Write(buf[:])
		}
		if k < len(lr.Intercepts) {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(lr.Intercepts[k]))
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Fit trains from scratch. Labels must cover at least two classes.
func (lr *LogisticRegression) Fit(features []SparseVector, labels []int, numFeatures int) error {
	if len(features) == 0 || len(labels) == 0 {
		return ErrEmptyCorpus
	}
	if len(features) != len(labels) {
		return ErrSizeMismatch
	}
	if err := lr.Params.validate(); err != nil {
		return err
	}
	classes := DistinctLabels(labels)
	if len(classes) < 2 {
		return ErrDegenerateLabels
	}

	dim := numFeatures
	for _, x := range features {
		if x.MaxIndex() >= dim {
			if numFeatures > 0 {
				return fmt.Errorf("%w: feature index %d exceeds %d features", ErrSizeMismatch, x.MaxIndex(), numFeatures)
			}
			dim = x.MaxIndex() + 1
		}
	}
	if dim == 0 {
		return ErrEmptyVocabulary
	}

	classIndex := make(map[int]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}
	y := make([]int, len(labels))
	for i, label := range labels {
		y[i] = classIndex[label]
	}

	var (
		weights    [][]float64
		intercepts []float64
		iterations int
		status     string
		err        error
	)
	switch lr.Params.Solver {
	case SolverOVR:
		weights, intercepts, iterations, status, err = fitOneVsRest(features, y, len(classes), dim, lr.Params)
	default:
		weights, intercepts, iterations, status, err = fitMultinomial(features, y, len(classes), dim, lr.Params)
	}
	if err != nil {
		return fmt.Errorf("fit %s: %w", lr.Params, err)
	}

	lr.Classes = classes
	lr.NumFeatures = dim
	lr.Weights = weights
	lr.Intercepts = intercepts
	lr.Iterations = iterations
	lr.Status = status
	return nil
}

func (lr *LogisticRegression) trained() bool {
	return len(lr.Classes) >= 2 && len(lr.Weights) == len(lr.Classes) && len(lr.Intercepts) == len(lr.Classes)
}

// PredictProba returns one probability per class in Classes order, summing to 1.
func (lr *LogisticRegression) PredictProba(x SparseVector) ([]float64, error) {
	if !lr.trained() {
		return nil, ErrNotFitted
	}
	if x.MaxIndex() >= lr.NumFeatures {
		return nil, fmt.Errorf("%w: feature index %d exceeds %d features", ErrSizeMismatch, x.MaxIndex(), lr.NumFeatures)
	}
	scores := make([]float64, len(lr.Classes))
	for k := range scores {
		scores[k] = x.Dot(lr.Weights[k]) + lr.Intercepts[k]
	}

	if lr.Params.Solver == SolverOVR {
		for k, z := range scores {
			scores[k] = sigmoid(z)
		}
		total := floats.Sum(scores)
		if total == 0 {
			for k := range scores {
				scores[k] = 1 / float64(len(scores))
			}
			return scores, nil
		}
		floats.Scale(1/total, scores)
		return scores, nil
	}

	lse := floats.LogSumExp(scores)
	for k, z := range scores {
		scores[k] = math.Exp(z - lse)
	}
	return scores, nil
}

// Predict returns the most probable label and its probability. Ties go to the
// earliest class.
func (lr *LogisticRegression) Predict(x SparseVector) (int, float64, error) {
	probs, err := lr.PredictProba(x)
	if err != nil {
		return 0, 0, err
	}
	best := floats.MaxIdx(probs)
	return lr.Classes[best], probs[best], nil
}

func (lr *LogisticRegression) Save(path string) error {
	if !lr.trained() {
		return ErrNotFitted
	}
	return SaveJSON(path, lr)
}

func (lr *LogisticRegression) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded LogisticRegression
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return err
	}
	if !loaded.trained() {
		return errors.New("invalid model payload")
	}
	for k, row := range loaded.Weights {
		if len(row) != loaded.NumFeatures {
			return fmt.Errorf("invalid model payload: class %d has %d weights, want %d", loaded.Classes[k], len(row), loaded.NumFeatures)
		}
	}
	*lr = loaded
	return nil
}

// DistinctLabels returns the sorted set of labels.
func DistinctLabels(labels []int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Ints(out)
	return out
}

// fitMultinomial minimizes the mean softmax cross-entropy plus ||W||^2/(2Cn) over
// the packed parameters [W (k*d) | b (k)].
func fitMultinomial(x []SparseVector, y []int, k, d int, params Hyperparameters) ([][]float64, []float64, int, string, error) {
	n := float64(len(x))
	reg := 1 / (params.C * n)

	eval := func(theta, grad []float64) float64 {
		w, b := theta[:k*d], theta[k*d:]
		if grad != nil {
			for i := range grad {
				grad[i] = 0
			}
		}
		scores := make([]float64, k)
		loss := 0.0
		for i, xi := range x {
			for c := 0; c < k; c++ {
				scores[c] = xi.Dot(w[c*d:(c+1)*d]) + b[c]
			}
			lse := floats.LogSumExp(scores)
			loss += lse - scores[y[i]]
			if grad == nil {
				continue
			}
			for c := 0; c < k; c++ {
				p := math.Exp(scores[c] - lse)
				if c == y[i] {
					p--
				}
				row := grad[c*d : (c+1)*d]
				for j, idx := range xi.Indices {
					row[idx] += p * xi.Values[j] / n
				}
				grad[k*d+c] += p / n
			}
		}
		loss = loss/n + 0.5*reg*floats.Dot(w, w)
		if grad != nil {
			floats.AddScaled(grad[:k*d], reg, w)
		}
		return loss
	}

	result, err := minimize(eval, make([]float64, k*d+k), params.MaxIter, &optimize.LBFGS{})
	if err != nil {
		return nil, nil, 0, "", err
	}
	weights := make([][]float64, k)
	for c := range weights {
		weights[c] = append([]float64(nil), result.X[c*d:(c+1)*d]...)
	}
	intercepts := append([]float64(nil), result.X[k*d:]...)
	return weights, intercepts, result.Stats.MajorIterations, result.Status.String(), nil
}

// fitOneVsRest trains one binary problem per class over [w (d) | b].
func fitOneVsRest(x []SparseVector, y []int, k, d int, params Hyperparameters) ([][]float64, []float64, int, string, error) {
	n := float64(len(x))
	reg := 1 / (params.C * n)
	weights := make([][]float64, k)
	intercepts := make([]float64, k)
	iterations := 0
	status := ""

	for c := 0; c < k; c++ {
		target := c
		eval := func(theta, grad []float64) float64 {
			w, b := theta[:d], theta[d]
			if grad != nil {
				for i := range grad {
					grad[i] = 0
				}
			}
			loss := 0.0
			for i, xi := range x {
				t := 0.0
				if y[i] == target {
					t = 1
				}
				z := xi.Dot(w) + b
				loss += softplus(z) - t*z
				if grad == nil {
					continue
				}
				r := sigmoid(z) - t
				for j, idx := range xi.Indices {
					grad[idx] += r * xi.Values[j] / n
				}
				grad[d] += r / n
			}
			loss = loss/n + 0.5*reg*floats.Dot(w, w)
			if grad != nil {
				floats.AddScaled(grad[:d], reg, w)
			}
			return loss
		}

		result, err := minimize(eval, make([]float64, d+1), params.MaxIter, &optimize.CG{})
		if err != nil {
			return nil, nil, 0, "", fmt.Errorf("class %d: %w", c, err)
		}
		weights[c] = append([]float64(nil), result.X[:d]...)
		intercepts[c] = result.X[d]
		if result.Stats.MajorIterations > iterations {
			iterations = result.Stats.MajorIterations
		}
		status = result.Status.String()
	}
	return weights, intercepts, iterations, status, nil
}

// minimize runs a gradient-based method with an iteration cap. Any finite location is
// accepted, including one where the line search gave up before convergence.
func minimize(eval func(theta, grad []float64) float64, init []float64, maxIter int, method optimize.Method) (*optimize.Result, error) {
	problem := optimize.Problem{
		Func: func(theta []float64) float64 { return eval(theta, nil) },
		Grad: func(grad, theta []float64) { eval(theta, grad) },
	}
	settings := &optimize.Settings{
		MajorIterations:   maxIter,
		GradientThreshold: gradientTolerance,
	}
	result, err := optimize.Minimize(problem, init, settings, method)
	if result == nil {
		if err == nil {
			err = errors.New("optimizer returned no result")
		}
		return nil, err
	}
	if floats.HasNaN(result.X) || math.IsNaN(result.F) || math.IsInf(result.F, 0) {
		return nil, ErrDiverged
	}
	return result, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
