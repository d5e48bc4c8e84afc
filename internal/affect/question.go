package affect

import "strings"

var interrogatives = map[string]struct{}{
	"who": {}, "what": {}, "when": {}, "where": {}, "why": {}, "how": {},
	"is": {}, "are": {}, "do": {}, "does": {}, "did": {},
	"can": {}, "could": {}, "will": {}, "would": {}, "should": {},
}

// clauseBreaks end a sentence or clause; the next word may lead a question.
var clauseBreaks = map[string]struct{}{
	".": {}, "!": {}, "?": {}, ";": {}, ",": {}, "...": {},
}

// IsQuestioning reports whether text reads as a question: it contains a
// question mark, or some sentence or comma-separated clause opens with an
// interrogative word. An interrogative in mid-clause does not count.
//
//	IsQuestioning("Is it raining")        // true
//	IsQuestioning("Well, is it raining")  // true
//	IsQuestioning("It is raining.")       // false
func IsQuestioning(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	lead := true
	for _, tok := range Tokenize(text) {
		if _, ok := clauseBreaks[tok]; ok {
			lead = true
			continue
		}
		if !isWord(tok) {
			continue
		}
		if lead {
			if _, ok := interrogatives[tok]; ok {
				return true
			}
			lead = false
		}
	}
	return false
}
