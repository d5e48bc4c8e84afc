package affect

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"
)

var quoteReplacer = strings.NewReplacer("’", "'", "‘", "'")

// Tokenize lower-cases text and splits it into word and punctuation tokens
// with the prose tokenizer.
//
// Contractions ending in "n't" become two tokens ("didn't" -> "did", "n't");
// other apostrophe suffixes split the same way ("it's" -> "it", "'s").
// "dont" and "cannot" stay whole.
func Tokenize(text string) []string {
	text = strings.ToLower(quoteReplacer.Replace(text))
	tokens := make([]string, 0, len(text)/4)

	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return append(tokens, strings.Fields(text)...)
	}
	for _, tok := range doc.Tokens() {
		if tok.Text != "" {
			tokens = append(tokens, tok.Text)
		}
	}
	return tokens
}

// isWord reports whether tok starts with a letter or digit.
func isWord(tok string) bool {
	r, _ := utf8.DecodeRuneInString(tok)
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
