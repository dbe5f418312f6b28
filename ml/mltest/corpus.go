// Package mltest provides fixtures shared by the training and serving tests.
package mltest

import (
	"fmt"

	"sentilyzer/ml"
)

var nouns = []string{"movie", "song", "video", "product", "game", "book", "show", "phone", "album", "channel"}

var templates = map[int][]string{
	ml.LabelPositive: {
		"i love this %s",
		"this %s is great",
		"absolutely love it, amazing %s",
		"best %s ever, love it",
	},
	ml.LabelNegative: {
		"i hate this %s",
		"this %s is terrible",
		"worst %s ever, hate it",
		"awful %s, really bad",
	},
	ml.LabelNeutral: {
		"meh, the %s is okay",
		"the %s was fine i guess, meh",
		"it is an average %s",
		"okay %s, nothing special, meh",
	},
}

// SyntheticCorpus returns perClass comments for each of the three labels, classes
// interleaved so any prefix stays roughly balanced.
func SyntheticCorpus(perClass int) []ml.Comment {
	comments := make([]ml.Comment, 0, perClass*len(ml.DefaultClasses))
	for i := 0; i < perClass; i++ {
		for _, label := range ml.DefaultClasses {
			tpl := templates[label][i%len(templates[label])]
			comments = append(comments, ml.Comment{
				Text:  fmt.Sprintf(tpl, nouns[i%len(nouns)]),
				Label: label,
			})
		}
	}
	return comments
}
