package ml

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	urlPattern     = regexp.MustCompile(`https?\S+|www\S+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
)

// Normalize cleans a comment for feature extraction. It is total, deterministic and
// idempotent: Normalize(Normalize(x)) == Normalize(x).
//
// Accented letters are folded to their base letter before the character whitelist is
// applied, so "café" becomes "cafe" rather than "caf".
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	cleaned := normalizePass(fold(text))
	// A pass can glue fragments into a new URL-looking token ("ht-tpx" -> "httpx"),
	// so run to the fixed point. Every pass after the first only removes characters.
	for {
		next := normalizePass(cleaned)
		if next == cleaned {
			return cleaned
		}
		cleaned = next
	}
}

func normalizePass(text string) string {
	text = strings.ToLower(text)
	text = urlPattern.ReplaceAllString(text, "")
	text = mentionPattern.ReplaceAllString(text, "")
	text = whitelist(text)
	return strings.Join(strings.Fields(text), " ")
}

// fold strips combining marks after compatibility decomposition. The transformer chain
// carries state, so one is built per call.
func fold(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return folded
}

func whitelist(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',', r == '.', r == '!', r == '?', r == ' ':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// Tokenize splits normalized text into word tokens of at least two characters.
// Punctuation separates tokens and is never part of one.
func Tokenize(normalized string) []string {
	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// NGrams returns every contiguous n-gram of tokens for n in [minN, maxN], unigrams first.
func NGrams(tokens []string, minN, maxN int) []string {
	if minN < 1 {
		minN = 1
	}
	if maxN < minN {
		maxN = minN
	}
	grams := make([]string, 0, len(tokens)*(maxN-minN+1))
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			if n == 1 {
				grams = append(grams, tokens[i])
				continue
			}
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}
