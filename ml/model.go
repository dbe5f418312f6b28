package ml

import "fmt"

// Classifier is a multi-class model over sparse TF-IDF features. Probability columns
// follow Labels().
type Classifier interface {
	Fit(features []SparseVector, labels []int, numFeatures int) error
	PredictProba(features SparseVector) ([]float64, error)
	Predict(features SparseVector) (int, float64, error)
	Labels() []int
}

// Solver names the optimization strategy of a LogisticRegression.
type Solver string

const (
	// SolverLBFGS minimizes the multinomial softmax loss.
	SolverLBFGS Solver = "lbfgs"
	// SolverOVR fits one binary logistic loss per class.
	SolverOVR Solver = "ovr"
)

func (s Solver) Valid() bool {
	return s == SolverLBFGS || s == SolverOVR
}

// Hyperparameters is one point of a ParameterGrid.
type Hyperparameters struct {
	C       float64 `json:"C"`
	MaxIter int     `json:"max_iter"`
	Solver  Solver  `json:"solver"`
}

func (h Hyperparameters) String() string {
	return fmt.Sprintf("C=%g max_iter=%d solver=%s", h.C, h.MaxIter, h.Solver)
}

func (h Hyperparameters) validate() error {
	if h.C <= 0 {
		return fmt.Errorf("regularization strength C must be positive, got %g", h.C)
	}
	if h.MaxIter <= 0 {
		return fmt.Errorf("max_iter must be positive, got %d", h.MaxIter)
	}
	if !h.Solver.Valid() {
		return fmt.Errorf("unsupported solver %q", h.Solver)
	}
	return nil
}

// ClassifierFactory builds an untrained classifier for one grid point.
type ClassifierFactory func(params Hyperparameters) Classifier

func NewLogisticClassifier(params Hyperparameters) Classifier {
	return NewLogisticRegression(params)
}
