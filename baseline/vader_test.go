package baseline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sentilyzer/ml"
)

func TestPlainText(t *testing.T) {
	assert.Equal(t, "this is awesome see here", PlainText("this is **awesome** see [here](https://example.com/x)"))
	assert.Equal(t, "visit now", PlainText("visit https://example.com now"))
	assert.Equal(t, "Tom & Jerry", PlainText("Tom & Jerry"))
}

func TestVaderPredict(t *testing.T) {
	v := NewVader(0)
	assert.Equal(t, ml.LabelPositive, v.Predict("I love this, it is great!"))
	assert.Equal(t, ml.LabelNegative, v.Predict("I hate this, it is terrible and awful"))
	assert.Equal(t, ml.LabelNeutral, v.Predict("the table is brown"))
	assert.Greater(t, v.Score("**wonderful**"), 0.0)
}

func TestVaderEvaluate(t *testing.T) {
	report := NewVader(DefaultThreshold).Evaluate([]ml.Comment{
		{Text: "I love this, it is great!", Label: 1},
		{Text: "I hate this, it is terrible", Label: -1},
		{Text: "the table is brown", Label: 0},
	})
	assert.InDelta(t, 1.0, report.Accuracy, 1e-12)
	assert.Equal(t, 3, report.Support)
}
