package ml

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func balancedComments(perClass int) []Comment {
	var comments []Comment
	for i := 0; i < perClass; i++ {
		for _, label := range DefaultClasses {
			comments = append(comments, Comment{Text: SentimentName(label) + " comment", Label: label})
		}
	}
	return comments
}

func TestStratifiedSplit(t *testing.T) {
	comments := balancedComments(100)
	for i := range comments {
		comments[i].Text += " " + strings.Repeat("x", i%7+2) + string(rune('a'+i%26))
	}

	train, test, err := StratifiedSplit(comments, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, train, 240)
	assert.Len(t, test, 60)

	dist := ClassDistribution(Labels(test))
	for _, label := range DefaultClasses {
		assert.Equal(t, 20, dist[label])
	}

	again, againTest, err := StratifiedSplit(comments, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, train, again)
	assert.Equal(t, test, againTest)

	_, other, err := StratifiedSplit(comments, 0.2, 7)
	require.NoError(t, err)
	assert.NotEqual(t, test, other)
}

func TestStratifiedSplitErrors(t *testing.T) {
	_, _, err := StratifiedSplit(nil, 0.2, 42)
	assert.ErrorIs(t, err, ErrEmptyCorpus)
	_, _, err = StratifiedSplit(balancedComments(3), 1.5, 42)
	assert.Error(t, err)
}

func TestStratifiedKFold(t *testing.T) {
	labels := Labels(balancedComments(10))
	folds, err := StratifiedKFold(labels, 3)
	require.NoError(t, err)
	require.Len(t, folds, 3)

	seen := make(map[int]int)
	for _, f := range folds {
		assert.Len(t, f.Train, len(labels)-len(f.Test))
		for _, idx := range f.Test {
			seen[idx]++
		}
		dist := ClassDistribution(pick(labels, f.Test))
		assert.Len(t, dist, 3, "every fold holds every class")
	}
	assert.Len(t, seen, len(labels))
	for _, n := range seen {
		assert.Equal(t, 1, n)
	}

	_, err = StratifiedKFold(labels, 1)
	assert.Error(t, err)
	_, err = StratifiedKFold([]int{1, -1}, 3)
	assert.Error(t, err)
}

func pick(labels, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = labels[j]
	}
	return out
}

func TestCleanCorpus(t *testing.T) {
	cleaned := CleanCorpus([]Comment{
		{Text: "Great VIDEO!!", Label: 1},
		{Text: "@bot https://spam.example", Label: 0},
		{Text: "", Label: -1},
		{Text: "meh", Label: 0},
	})
	assert.Equal(t, []Comment{{Text: "great video!!", Label: 1}, {Text: "meh", Label: 0}}, cleaned)
}

func TestValidateLabels(t *testing.T) {
	assert.NoError(t, ValidateLabels([]int{-1, 0, 1}))
	assert.ErrorIs(t, ValidateLabels(nil), ErrEmptyCorpus)
	assert.ErrorIs(t, ValidateLabels([]int{1, 1, 1}), ErrDegenerateLabels)
	assert.Error(t, ValidateLabels([]int{0, 2}))
}

func TestTextLengthStats(t *testing.T) {
	stats := TextLengthStats([]Comment{{Text: "ab"}, {Text: "abcd"}, {Text: "abcdef"}, {Text: "café"}})
	assert.Equal(t, 2, stats.Min)
	assert.Equal(t, 6, stats.Max)
	assert.InDelta(t, 4.0, stats.Mean, 1e-12)
	assert.InDelta(t, 4.0, stats.Median, 1e-12)
}

func TestReadComments(t *testing.T) {
	input := "clean_comment,category\n" +
		"\"love it, really\",1\n" +
		",0\n" +
		"bad stuff,-1.0\n" +
		"no label,\n"
	comments, err := ReadComments(strings.NewReader(input), "clean_comment", "category")
	require.NoError(t, err)
	assert.Equal(t, []Comment{
		{Text: "love it, really", Label: 1},
		{Text: "", Label: 0},
		{Text: "bad stuff", Label: -1},
	}, comments)

	_, err = ReadComments(strings.NewReader("text,label\nhi,abc\n"), TextColumn, LabelColumn)
	assert.Error(t, err)
	_, err = ReadComments(strings.NewReader("foo,bar\n"), TextColumn, LabelColumn)
	assert.Error(t, err)
	_, err = ReadComments(strings.NewReader(""), TextColumn, LabelColumn)
	assert.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestWriteComments(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteComments(&buf, []Comment{{Text: "hi, there", Label: 1}}))
	assert.Equal(t, "text,label\n\"hi, there\",1\n", buf.String())

	path := filepath.Join(t.TempDir(), "train.csv")
	require.NoError(t, SaveComments(path, []Comment{{Text: "a", Label: 0}, {Text: "b", Label: 1}}))
	loaded, err := LoadComments(path, TextColumn, LabelColumn)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}
