// Package baseline scores comments with the VADER lexicon so a trained model can be
// compared against a rule-based reference on the same held-out split.
package baseline

import (
	"html"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"

	"sentilyzer/ml"
)

// DefaultThreshold is the compound score cutoff for a non-neutral label.
const DefaultThreshold = 0.20

var (
	markdownLink = regexp.MustCompile(`\[(.*?)\]\((https?://[^\s)]+)\)`)
	bareURL      = regexp.MustCompile(`https?://\S+|www\.\S+`)
	htmlTag      = regexp.MustCompile(`<[^>]*>`)
)

// Vader is the lexicon baseline the trained model is compared against.
type Vader struct {
	analyzer  *govader.SentimentIntensityAnalyzer
	threshold float64
}

// NewVader labels compound scores >= threshold positive and <= -threshold negative.
func NewVader(threshold float64) *Vader {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Vader{
		analyzer:  govader.NewSentimentIntensityAnalyzer(),
		threshold: threshold,
	}
}

// PlainText renders Reddit-style markdown and keeps only the visible text.
func PlainText(input string) string {
	input = markdownLink.ReplaceAllString(input, "$1")
	rendered := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	text := html.UnescapeString(htmlTag.ReplaceAllString(string(rendered), " "))
	text = bareURL.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// Score returns the VADER compound score in [-1, 1].
func (v *Vader) Score(text string) float64 {
	return v.analyzer.PolarityScores(PlainText(text)).Compound
}

// Predict maps Score onto -1, 0 or 1.
func (v *Vader) Predict(text string) int {
	score := v.Score(text)
	switch {
	case score >= v.threshold:
		return ml.LabelPositive
	case score <= -v.threshold:
		return ml.LabelNegative
	default:
		return ml.LabelNeutral
	}
}

// Evaluate scores the lexicon on labeled comments with the same report as the model.
func (v *Vader) Evaluate(comments []ml.Comment) ml.EvaluationReport {
	yTrue := make([]int, len(comments))
	yPred := make([]int, len(comments))
	for i, c := range comments {
		yTrue[i] = c.Label
		yPred[i] = v.Predict(c.Text)
	}
	return ml.Evaluate(yTrue, yPred, ml.DefaultClasses)
}
