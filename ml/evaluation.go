package ml

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"
)

// ClassMetrics are precision, recall and F1 for one label.
type ClassMetrics struct {
	Label     int     `json:"label"`
	Name      string  `json:"name"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// EvaluationReport describes a model on held-out data. Confusion rows are true
// labels and columns predicted labels, both in Classes order.
type EvaluationReport struct {
	Classes    []int          `json:"classes"`
	Accuracy   float64        `json:"accuracy"`
	WeightedF1 float64        `json:"weighted_f1"`
	MacroF1    float64        `json:"macro_f1"`
	PerClass   []ClassMetrics `json:"per_class"`
	Confusion  [][]int        `json:"confusion"`
	Support    int            `json:"support"`
}

// ConfusionMatrix counts (true, predicted) pairs. Labels outside classes are ignored.
func ConfusionMatrix(yTrue, yPred, classes []int) [][]int {
	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	matrix := make([][]int, len(classes))
	for i := range matrix {
		matrix[i] = make([]int, len(classes))
	}
	for i := range yTrue {
		if i >= len(yPred) {
			break
		}
		t, okT := index[yTrue[i]]
		p, okP := index[yPred[i]]
		if okT && okP {
			matrix[t][p]++
		}
	}
	return matrix
}

// Evaluate computes accuracy, per-class metrics and their macro and weighted averages.
func Evaluate(yTrue, yPred, classes []int) EvaluationReport {
	confusion := ConfusionMatrix(yTrue, yPred, classes)
	report := EvaluationReport{
		Classes:   append([]int(nil), classes...),
		Confusion: confusion,
		PerClass:  make([]ClassMetrics, len(classes)),
	}

	correct, total := 0, 0
	for k, label := range classes {
		tp := confusion[k][k]
		predicted, actual := 0, 0
		for j := range classes {
			predicted += confusion[j][k]
			actual += confusion[k][j]
		}
		correct += tp
		total += actual

		m := ClassMetrics{Label: label, Name: SentimentName(label), Support: actual}
		if predicted > 0 {
			m.Precision = float64(tp) / float64(predicted)
		}
		if actual > 0 {
			m.Recall = float64(tp) / float64(actual)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		report.PerClass[k] = m
	}

	report.Support = total
	if total == 0 {
		return report
	}
	report.Accuracy = float64(correct) / float64(total)
	for _, m := range report.PerClass {
		report.WeightedF1 += m.F1 * float64(m.Support) / float64(total)
		report.MacroF1 += m.F1
	}
	if len(classes) > 0 {
		report.MacroF1 /= float64(len(classes))
	}
	return report
}

// WeightedF1 averages per-class F1 weighted by true support.
func WeightedF1(yTrue, yPred, classes []int) float64 {
	return Evaluate(yTrue, yPred, classes).WeightedF1
}

// String renders the report as a classification-report table.
func (r EvaluationReport) String() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "\tprecision\trecall\tf1-score\tsupport\t")
	for _, m := range r.PerClass {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%d\t\n", m.Name, m.Precision, m.Recall, m.F1, m.Support)
	}
	fmt.Fprintln(w, "\t\t\t\t\t")
	fmt.Fprintf(w, "accuracy\t\t\t%.2f\t%d\t\n", r.Accuracy, r.Support)
	fmt.Fprintf(w, "macro avg\t\t\t%.2f\t%d\t\n", r.MacroF1, r.Support)
	fmt.Fprintf(w, "weighted avg\t\t\t%.2f\t%d\t\n", r.WeightedF1, r.Support)
	w.Flush()

	b.WriteString("\nconfusion matrix (rows: true, cols: predicted)\n")
	cw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := make([]string, 0, len(r.Classes)+1)
	header = append(header, "")
	for _, c := range r.Classes {
		header = append(header, SentimentName(c))
	}
	fmt.Fprintln(cw, strings.Join(header, "\t")+"\t")
	for i, row := range r.Confusion {
		cells := []string{SentimentName(r.Classes[i])}
		for _, v := range row {
			cells = append(cells, fmt.Sprint(v))
		}
		fmt.Fprintln(cw, strings.Join(cells, "\t")+"\t")
	}
	cw.Flush()
	return b.String()
}

type LatencyReport struct {
	Samples    int           `json:"samples"`
	Total      time.Duration `json:"total"`
	PerComment time.Duration `json:"per_comment"`
}

// MeasureLatency times transform plus predict over at most sampleSize texts.
func MeasureLatency(vectorizer *TfidfVectorizer, model Classifier, texts []string, sampleSize int) (LatencyReport, error) {
	if len(texts) == 0 {
		return LatencyReport{}, errors.New("no texts to time")
	}
	if sampleSize > 0 && sampleSize < len(texts) {
		texts = texts[:sampleSize]
	}
	start := time.Now()
	features, err := vectorizer.Transform(texts)
	if err != nil {
		return LatencyReport{}, err
	}
	for _, x := range features {
		if _, _, err := model.Predict(x); err != nil {
			return LatencyReport{}, err
		}
	}
	total := time.Since(start)
	return LatencyReport{
		Samples:    len(texts),
		Total:      total,
		PerComment: total / time.Duration(len(texts)),
	}, nil
}
