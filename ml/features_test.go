package ml

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fitVectorizer(t *testing.T, cfg TfidfConfig, texts []string) *TfidfVectorizer {
	t.Helper()
	v := NewTfidfVectorizer(cfg)
	require.NoError(t, v.Fit(texts))
	return v
}

func TestTfidfVectorizerFit(t *testing.T) {
	v := fitVectorizer(t, DefaultTfidfConfig(), []string{"good movie", "bad movie", "good film", "bad film", "great"})

	assert.Equal(t, []string{"bad", "film", "good", "movie"}, v.Terms())
	assert.Equal(t, 4, v.NumFeatures())
	want := math.Log(6.0/3.0) + 1
	for _, idf := range v.IDF {
		assert.InDelta(t, want, idf, 1e-12)
	}

	x := v.TransformOne("Good MOVIE!")
	assert.Equal(t, []int{2, 3}, x.Indices)
	assert.InDelta(t, 1/math.Sqrt2, x.Values[0], 1e-12)
	assert.InDelta(t, 1/math.Sqrt2, x.Values[1], 1e-12)
}

func TestTfidfVectorizerMaxDF(t *testing.T) {
	v := fitVectorizer(t, DefaultTfidfConfig(), []string{"the cat", "the dog", "the cat", "the dog"})
	assert.Equal(t, []string{"cat", "dog", "the cat", "the dog"}, v.Terms())
}

func TestTfidfVectorizerMaxFeatures(t *testing.T) {
	cfg := DefaultTfidfConfig()
	cfg.MaxFeatures = 2
	v := fitVectorizer(t, cfg, []string{"good movie good", "bad movie", "good film", "bad film", "good"})
	// good appears 4 times, then bad/film/movie tie on 2 and the lexical order decides.
	assert.Equal(t, []string{"bad", "good"}, v.Terms())
}

func TestTfidfVectorizerZeroConfigUsesDefaults(t *testing.T) {
	v := NewTfidfVectorizer(TfidfConfig{})
	assert.Equal(t, DefaultTfidfConfig(), v.Config)

	require.NoError(t, v.Fit([]string{"good movie", "bad movie", "good film", "bad film", "great"}))
	assert.NotContains(t, v.Terms(), "great", "terms in a single document stay below min_df")

	capped := NewTfidfVectorizer(TfidfConfig{MaxDF: 3})
	assert.Equal(t, 1.0, capped.Config.MaxDF)
}

func TestTfidfVectorizerUnknownTerms(t *testing.T) {
	v := fitVectorizer(t, DefaultTfidfConfig(), []string{"good movie", "bad movie", "good film", "bad film"})
	assert.True(t, v.TransformOne("completely unseen words").IsZero())
	assert.True(t, v.TransformOne("").IsZero())

	x := v.TransformOne("good unseen")
	require.Len(t, x.Indices, 1)
	assert.InDelta(t, 1.0, x.Values[0], 1e-12)
}

func TestTfidfVectorizerErrors(t *testing.T) {
	v := NewTfidfVectorizer(DefaultTfidfConfig())
	assert.ErrorIs(t, v.Fit(nil), ErrEmptyCorpus)
	assert.ErrorIs(t, v.Fit([]string{"alpha", "beta", "gamma"}), ErrEmptyVocabulary)

	_, err := v.Transform([]string{"alpha"})
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestTfidfVectorizerFingerprint(t *testing.T) {
	a := fitVectorizer(t, DefaultTfidfConfig(), []string{"good movie", "bad movie", "good film", "bad film"})
	b := fitVectorizer(t, DefaultTfidfConfig(), []string{"bad film", "good film", "bad movie", "good movie"})
	c := fitVectorizer(t, DefaultTfidfConfig(), []string{"nice song", "nice song", "poor song"})

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestTfidfVectorizerSaveLoad(t *testing.T) {
	v := fitVectorizer(t, DefaultTfidfConfig(), []string{"good movie", "bad movie", "good film", "bad film"})
	path := filepath.Join(t.TempDir(), "vectorizer.json")
	require.NoError(t, v.Save(path))

	loaded, err := LoadVectorizer(path)
	require.NoError(t, err)
	assert.Equal(t, v.Fingerprint(), loaded.Fingerprint())
	assert.Equal(t, v.TransformOne("good film"), loaded.TransformOne("good film"))
}

func TestSparseVector(t *testing.T) {
	x := SparseVector{Indices: []int{0, 3}, Values: []float64{0.5, 2}}
	assert.Equal(t, 3, x.MaxIndex())
	assert.InDelta(t, 0.5*2+2*1, x.Dot([]float64{2, 9, 9, 1}), 1e-12)

	dense, err := x.Dense(4)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0, 0, 2}, dense)

	_, err = x.Dense(3)
	assert.Error(t, err)
	assert.Equal(t, -1, SparseVector{}.MaxIndex())
}
