// Package affect turns an utterance into a tone record: lexicon emotions,
// blended polarity and valence scores, an optional pitch override and
// interrogative intent.
//
// # Pipeline
//
// Analysis runs in a fixed order:
//
//  1. Tokenize lower-cases the text and splits punctuation and "n't" forms.
//  2. Matcher finds emotion triggers and inverts happy/sad when a negation
//     token sits in the look-back window before the first occurrence.
//  3. The blender merges lexicon emotions with the polarity score and derives
//     the overall mood from polarity alone.
//  4. ApplyPitch forces the mood for very low or very high pitch and adds the
//     matching emotion.
//  5. IsQuestioning looks for a question mark or an interrogative lead word.
//  6. NewToneRecord assembles the result and enforces the record invariants.
//
// # Usage
//
//	lex, _ := affect.DefaultLexicon()
//	engine, err := affect.NewEngine(lex, affect.DefaultOptions(), polarity, valence)
//	if err != nil {
//	    return err
//	}
//	tone, degraded := engine.Analyze("I am not happy about this.", nil)
//
// # Negation asymmetry
//
// Only happy and sad invert into each other under negation. A negated angry,
// fear, surprise or disgust trigger still yields that emotion. This mirrors
// the rule set the lexicon was written for and is kept on purpose.
//
// # Concurrency Safety
//
// Engine, Matcher and Lexicon hold no mutable state after construction and
// are safe for concurrent use. Scorer implementations must be safe for
// concurrent use as well.
package affect
