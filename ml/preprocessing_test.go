package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lowercase", "I LOVE This", "i love this"},
		{"strips urls", "check https://example.com/x now www.site.org ok", "check now ok"},
		{"strips mentions", "@someone thanks a lot", "thanks a lot"},
		{"keeps punctuation whitelist", "wow!!! really? yes, fine.", "wow!!! really? yes, fine."},
		{"drops other symbols", "great #product :) 100% <3", "great product 100 3"},
		{"folds accents", "Café crème", "cafe creme"},
		{"collapses whitespace", "  too\tmany \n  spaces ", "too many spaces"},
		{"only symbols", "### $$$ ***", ""},
		{"emoji only", "😀😀", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"ht-tpabc is here",
		"w-ww.example hello",
		"@@user hi",
		"Ünïcödé   TEXT!! http://x.y",
		"plain text",
		"h t t p s",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"love", "this", "movie"}, Tokenize("i love this movie!"))
	assert.Equal(t, []string{"ok", "fine"}, Tokenize("ok, fine."))
	assert.Empty(t, Tokenize("a b c"))
	assert.Empty(t, Tokenize(""))
}

func TestNGrams(t *testing.T) {
	grams := NGrams([]string{"love", "this", "movie"}, 1, 2)
	assert.Equal(t, []string{"love", "this", "movie", "love this", "this movie"}, grams)
	assert.Equal(t, []string{"love"}, NGrams([]string{"love"}, 1, 2))
	assert.Empty(t, NGrams(nil, 1, 2))
}
