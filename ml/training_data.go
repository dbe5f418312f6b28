package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

const (
	LabelNegative = -1
	LabelNeutral  = 0
	LabelPositive = 1
)

// DefaultClasses is the fixed probability column order of every trained model.
var DefaultClasses = []int{LabelNegative, LabelNeutral, LabelPositive}

// SentimentName maps a label onto its display name.
func SentimentName(label int) string {
	switch label {
	case LabelNegative:
		return "negative"
	case LabelNeutral:
		return "neutral"
	case LabelPositive:
		return "positive"
	default:
		return fmt.Sprintf("label_%d", label)
	}
}

// Comment is one labeled training example.
type Comment struct {
	Text  string `json:"text"`
	Label int    `json:"label"`
}

// Texts projects the comment texts.
func Texts(comments []Comment) []string {
	out := make([]string, len(comments))
	for i, c := range comments {
		out[i] = c.Text
	}
	return out
}

// Labels projects the comment labels.
func Labels(comments []Comment) []int {
	out := make([]int, len(comments))
	for i, c := range comments {
		out[i] = c.Label
	}
	return out
}

// ValidateLabels rejects labels outside {-1, 0, 1} and corpora with fewer than two
// distinct labels.
func ValidateLabels(labels []int) error {
	if len(labels) == 0 {
		return ErrEmptyCorpus
	}
	for i, l := range labels {
		if l < LabelNegative || l > LabelPositive {
			return fmt.Errorf("row %d: label %d outside {-1, 0, 1}", i, l)
		}
	}
	if len(DistinctLabels(labels)) < 2 {
		return ErrDegenerateLabels
	}
	return nil
}

// CleanCorpus normalizes every comment and drops those left empty.
func CleanCorpus(comments []Comment) []Comment {
	cleaned := make([]Comment, 0, len(comments))
	for _, c := range comments {
		text := Normalize(c.Text)
		if text == "" {
			continue
		}
		cleaned = append(cleaned, Comment{Text: text, Label: c.Label})
	}
	return cleaned
}

// StratifiedSplit shuffles each class with a seeded source and moves round(ratio*size)
// of it to the test side. Both sides keep the input's relative order.
func StratifiedSplit(comments []Comment, testRatio float64, seed int64) (train, test []Comment, err error) {
	if len(comments) == 0 {
		return nil, nil, ErrEmptyCorpus
	}
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("test ratio must be in (0, 1), got %g", testRatio)
	}

	byClass := groupByLabel(Labels(comments))
	rng := rand.New(rand.NewSource(seed))
	inTest := make([]bool, len(comments))
	for _, label := range sortedKeys(byClass) {
		idx := byClass[label]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(math.Round(testRatio * float64(len(idx))))
		if nTest >= len(idx) && len(idx) > 1 {
			nTest = len(idx) - 1
		}
		for _, i := range idx[:nTest] {
			inTest[i] = true
		}
	}

	for i, c := range comments {
		if inTest[i] {
			test = append(test, c)
		} else {
			train = append(train, c)
		}
	}
	return train, test, nil
}

// Fold holds the row indices of one cross-validation round.
type Fold struct {
	Train []int
	Test  []int
}

// StratifiedKFold deals each class's rows round-robin across k folds without
// shuffling, so the folds are reproducible.
func StratifiedKFold(labels []int, k int) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("need at least 2 folds, got %d", k)
	}
	if len(labels) < k {
		return nil, fmt.Errorf("%d rows cannot fill %d folds", len(labels), k)
	}
	assignment := make([]int, len(labels))
	byClass := groupByLabel(labels)
	for _, label := range sortedKeys(byClass) {
		for pos, i := range byClass[label] {
			assignment[i] = pos % k
		}
	}

	folds := make([]Fold, k)
	for i, f := range assignment {
		for j := range folds {
			if j == f {
				folds[j].Test = append(folds[j].Test, i)
			} else {
				folds[j].Train = append(folds[j].Train, i)
			}
		}
	}
	for j, f := range folds {
		if len(f.Test) == 0 {
			return nil, fmt.Errorf("fold %d is empty", j)
		}
	}
	return folds, nil
}

// ClassDistribution counts rows per label.
func ClassDistribution(labels []int) map[int]int {
	dist := make(map[int]int)
	for _, l := range labels {
		dist[l]++
	}
	return dist
}

// LengthStats is what TextLengthStats reports.
type LengthStats struct {
	Min    int
	Max    int
	Mean   float64
	Median float64
}

// TextLengthStats summarizes comment lengths in characters.
func TextLengthStats(comments []Comment) LengthStats {
	if len(comments) == 0 {
		return LengthStats{}
	}
	lengths := make([]int, len(comments))
	total := 0
	for i, c := range comments {
		lengths[i] = len([]rune(c.Text))
		total += lengths[i]
	}
	sort.Ints(lengths)
	mid := len(lengths) / 2
	median := float64(lengths[mid])
	if len(lengths)%2 == 0 {
		median = float64(lengths[mid-1]+lengths[mid]) / 2
	}
	return LengthStats{
		Min:    lengths[0],
		Max:    lengths[len(lengths)-1],
		Mean:   float64(total) / float64(len(lengths)),
		Median: median,
	}
}

func groupByLabel(labels []int) map[int][]int {
	groups := make(map[int][]int)
	for i, l := range labels {
		groups[l] = append(groups[l], i)
	}
	return groups
}

func sortedKeys(m map[int][]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
