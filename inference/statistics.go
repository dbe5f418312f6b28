package inference

import (
	"fmt"
	"unicode/utf8"

	"sentilyzer/ml"
)

const (
	MinBatchSize  = 1
	MaxBatchSize  = 100
	MaxTextLength = 5000

	displayLength = 100
)

// Prediction is the answer for one comment.
type Prediction struct {
	Text       string  `json:"text"`
	Sentiment  string  `json:"sentiment"`
	Label      int     `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Statistics is the sentiment mix of one batch in percent.
type Statistics struct {
	PositivePercent float64 `json:"positive_percent"`
	NeutralPercent  float64 `json:"neutral_percent"`
	NegativePercent float64 `json:"negative_percent"`
}

// BatchResult is the response body of a served batch.
type BatchResult struct {
	Results       []Prediction `json:"results"`
	Statistics    Statistics   `json:"statistics"`
	TotalComments int          `json:"total_comments"`
}

// ComputeStatistics reports count/total*100 per class. Classes absent from the batch
// report 0.
func ComputeStatistics(results []Prediction) Statistics {
	if len(results) == 0 {
		return Statistics{}
	}
	var pos, neu, neg int
	for _, r := range results {
		switch r.Label {
		case ml.LabelPositive:
			pos++
		case ml.LabelNeutral:
			neu++
		case ml.LabelNegative:
			neg++
		}
	}
	total := float64(len(results))
	return Statistics{
		PositivePercent: float64(pos) / total * 100,
		NeutralPercent:  float64(neu) / total * 100,
		NegativePercent: float64(neg) / total * 100,
	}
}

// ValidateRequest checks what the HTTP layer accepts: 1..100 comments of
// 1..5000 characters each.
func ValidateRequest(texts []string) error {
	if err := validateBatchSize(texts); err != nil {
		return err
	}
	for i, text := range texts {
		n := utf8.RuneCountInString(text)
		if n < 1 || n > MaxTextLength {
			return &ValidationError{
				Field:   "comments",
				Message: fmt.Sprintf("comment %d must be between 1 and %d characters", i, MaxTextLength),
			}
		}
	}
	return nil
}

func validateBatchSize(texts []string) error {
	if len(texts) < MinBatchSize || len(texts) > MaxBatchSize {
		return &ValidationError{
			Field:   "comments",
			Message: fmt.Sprintf("batch must hold between %d and %d comments, got %d", MinBatchSize, MaxBatchSize, len(texts)),
		}
	}
	return nil
}

// Truncate shortens text for display only: the first 100 characters plus "...".
func Truncate(text string) string {
	if utf8.RuneCountInString(text) <= displayLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:displayLength]) + "..."
}
