package ml

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
)

// TfidfConfig bounds the vocabulary built by TfidfVectorizer.Fit.
type TfidfConfig struct {
	MaxFeatures int     `json:"max_features" yaml:"max_features"`
	NGramMin    int     `json:"ngram_min" yaml:"ngram_min"`
	NGramMax    int     `json:"ngram_max" yaml:"ngram_max"`
	MinDF       int     `json:"min_df" yaml:"min_df"`
	MaxDF       float64 `json:"max_df" yaml:"max_df"`
}

// DefaultTfidfConfig matches the vectorizer the service ships with.
func DefaultTfidfConfig() TfidfConfig {
	return TfidfConfig{
		MaxFeatures: 5000,
		NGramMin:    1,
		NGramMax:    2,
		MinDF:       2,
		MaxDF:       0.9,
	}
}

func (c TfidfConfig) withDefaults() TfidfConfig {
	d := DefaultTfidfConfig()
	if c.MaxFeatures <= 0 {
		c.MaxFeatures = d.MaxFeatures
	}
	if c.NGramMin <= 0 {
		c.NGramMin = d.NGramMin
	}
	if c.NGramMax <= 0 {
		c.NGramMax = d.NGramMax
	}
	if c.NGramMax < c.NGramMin {
		c.NGramMax = c.NGramMin
	}
	if c.MinDF <= 0 {
		c.MinDF = d.MinDF
	}
	if c.MaxDF <= 0 {
		c.MaxDF = d.MaxDF
	}
	if c.MaxDF > 1 {
		c.MaxDF = 1
	}
	return c
}

// TfidfVectorizer maps comments onto a frozen unigram/bigram vocabulary weighted by
// term frequency times smoothed inverse document frequency. After Fit it is never
// mutated, so Transform is safe for concurrent use.
type TfidfVectorizer struct {
	Config     TfidfConfig    `json:"config"`
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
	NumDocs    int            `json:"num_docs"`
}

// NewTfidfVectorizer returns an unfitted vectorizer. Zero fields in config take defaults.
func NewTfidfVectorizer(config TfidfConfig) *TfidfVectorizer {
	return &TfidfVectorizer{Config: config.withDefaults()}
}

type termStat struct {
	term  string
	count int
	df    int
}

// Fit builds the vocabulary and IDF weights from the training texts only.
func (v *TfidfVectorizer) Fit(texts []string) error {
	if len(texts) == 0 {
		return ErrEmptyCorpus
	}
	cfg := v.Config.withDefaults()

	stats := make(map[string]*termStat)
	for _, text := range texts {
		seen := make(map[string]bool)
		for _, term := range v.analyze(text, cfg) {
			st, ok := stats[term]
			if !ok {
				st = &termStat{term: term}
				stats[term] = st
			}
			st.count++
			if !seen[term] {
				seen[term] = true
				st.df++
			}
		}
	}

	n := len(texts)
	maxDocs := cfg.MaxDF * float64(n)
	if maxDocs < float64(cfg.MinDF) {
		return fmt.Errorf("%w: max_df covers %.1f documents, fewer than min_df %d", ErrEmptyVocabulary, maxDocs, cfg.MinDF)
	}

	kept := make([]*termStat, 0, len(stats))
	for _, st := range stats {
		if st.df >= cfg.MinDF && float64(st.df) <= maxDocs {
			kept = append(kept, st)
		}
	}
	if len(kept) == 0 {
		return ErrEmptyVocabulary
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].count != kept[j].count {
			return kept[i].count > kept[j].count
		}
		return kept[i].term < kept[j].term
	})
	if len(kept) > cfg.MaxFeatures {
		kept = kept[:cfg.MaxFeatures]
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].term < kept[j].term })

	vocabulary := make(map[string]int, len(kept))
	idf := make([]float64, len(kept))
	for i, st := range kept {
		vocabulary[st.term] = i
		idf[i] = math.Log(float64(1+n)/float64(1+st.df)) + 1
	}

	v.Config = cfg
	v.Vocabulary = vocabulary
	v.IDF = idf
	v.NumDocs = n
	return nil
}

// Transform maps every text into the fitted feature space.
func (v *TfidfVectorizer) Transform(texts []string) ([]SparseVector, error) {
	if !v.Fitted() {
		return nil, ErrNotFitted
	}
	vectors := make([]SparseVector, len(texts))
	for i, text := range texts {
		vectors[i] = v.TransformOne(text)
	}
	return vectors, nil
}

// TransformOne maps a single text. Terms outside the vocabulary contribute nothing;
// an unfitted vectorizer yields the zero vector.
func (v *TfidfVectorizer) TransformOne(text string) SparseVector {
	if !v.Fitted() {
		return SparseVector{}
	}
	counts := make(map[int]int)
	for _, term := range v.analyze(text, v.Config) {
		if idx, ok := v.Vocabulary[term]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return SparseVector{}
	}

	indices := make([]int, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	values := make([]float64, len(indices))
	for i, idx := range indices {
		values[i] = float64(counts[idx]) * v.IDF[idx]
	}
	normalizeL2(values)
	return SparseVector{Indices: indices, Values: values}
}

func (v *TfidfVectorizer) analyze(text string, cfg TfidfConfig) []string {
	return NGrams(Tokenize(Normalize(text)), cfg.NGramMin, cfg.NGramMax)
}

func (v *TfidfVectorizer) Fitted() bool {
	return v != nil && len(v.Vocabulary) > 0 && len(v.IDF) == len(v.Vocabulary)
}

// NumFeatures is the fixed dimensionality of the transformed vectors.
func (v *TfidfVectorizer) NumFeatures() int {
	if v == nil {
		return 0
	}
	return len(v.IDF)
}

// Terms lists the vocabulary in feature-index order.
func (v *TfidfVectorizer) Terms() []string {
	terms := make([]string, len(v.Vocabulary))
	for term, idx := range v.Vocabulary {
		if idx >= 0 && idx < len(terms) {
			terms[idx] = term
		}
	}
	return terms
}

// Fingerprint identifies the vocabulary so a model can be checked against the
// vectorizer it was trained with.
func (v *TfidfVectorizer) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(strings.Join(v.Terms(), "\n")))
	return hex.EncodeToString(h.Sum(nil))
}
