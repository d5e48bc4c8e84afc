package affect

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// maxLexiconFileSize caps user-supplied lexicon files.
const maxLexiconFileSize = 1024 * 1024

// Trigger is a lexicon entry: a word or phrase, pre-tokenized.
type Trigger struct {
	Text   string
	Tokens []string
}

// EmotionEntry maps one emotion label to its triggers.
type EmotionEntry struct {
	Label    Emotion
	Triggers []Trigger
}

// Lexicon maps emotion labels to trigger words and phrases. It is immutable
// after construction.
type Lexicon struct {
	entries   []EmotionEntry
	negations NegationSet
}

// NegationSet is an immutable set of negation tokens.
type NegationSet struct {
	tokens map[string]struct{}
}

// NewNegationSet builds a negation set from lower-cased tokens.
func NewNegationSet(tokens ...string) NegationSet {
	set := NegationSet{tokens: make(map[string]struct{}, len(tokens))}
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set.tokens[t] = struct{}{}
		}
	}
	return set
}

// Contains reports whether tok is a negation token.
func (n NegationSet) Contains(tok string) bool {
	_, ok := n.tokens[tok]
	return ok
}

// Len returns the number of negation tokens.
func (n NegationSet) Len() int {
	return len(n.tokens)
}

// lexiconFile is the on-disk YAML layout.
type lexiconFile struct {
	Emotions []struct {
		Label    string   `yaml:"label"`
		Triggers []string `yaml:"triggers"`
	} `yaml:"emotions"`
	Negations []string `yaml:"negations"`
}

// DefaultLexicon returns the built-in emotion lexicon and negation set.
func DefaultLexicon() (*Lexicon, error) {
	return ParseLexicon(defaultLexiconYAML)
}

// LoadLexicon reads a lexicon YAML file from path.
func LoadLexicon(path string) (*Lexicon, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat lexicon: %w", err)
	}
	if info.Size() > maxLexiconFileSize {
		return nil, fmt.Errorf("%w: file too large: %d bytes (max %d)", ErrInvalidLexicon, info.Size(), maxLexiconFileSize)
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	return ParseLexicon(data)
}

// ParseLexicon parses lexicon YAML. Labels must be known lexicon emotions and
// may appear only once. Triggers are tokenized the same way utterances are.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var file lexiconFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLexicon, err)
	}
	if len(file.Emotions) == 0 {
		return nil, fmt.Errorf("%w: no emotions defined", ErrInvalidLexicon)
	}

	seen := make(map[Emotion]bool, len(file.Emotions))
	entries := make([]EmotionEntry, 0, len(file.Emotions))
	for _, e := range file.Emotions {
		label := Emotion(strings.ToLower(strings.TrimSpace(e.Label)))
		if !IsLexiconEmotion(label) {
			return nil, fmt.Errorf("%w: unknown emotion label %q", ErrInvalidLexicon, e.Label)
		}
		if seen[label] {
			return nil, fmt.Errorf("%w: duplicate emotion label %q", ErrInvalidLexicon, label)
		}
		seen[label] = true

		entry := EmotionEntry{Label: label, Triggers: make([]Trigger, 0, len(e.Triggers))}
		for _, raw := range e.Triggers {
			toks := Tokenize(raw)
			if len(toks) == 0 {
				continue
			}
			entry.Triggers = append(entry.Triggers, Trigger{Text: strings.Join(toks, " "), Tokens: toks})
		}
		entries = append(entries, entry)
	}

	return &Lexicon{
		entries:   entries,
		negations: NewNegationSet(file.Negations...),
	}, nil
}

// NewLexicon builds a lexicon from in-memory tables. Entry order is scan order.
func NewLexicon(entries map[Emotion][]string, negations NegationSet) (*Lexicon, error) {
	for label := range entries {
		if !IsLexiconEmotion(label) {
			return nil, fmt.Errorf("%w: unknown emotion label %q", ErrInvalidLexicon, label)
		}
	}

	lex := &Lexicon{negations: negations}
	for _, label := range lexiconEmotions {
		words, ok := entries[label]
		if !ok {
			continue
		}
		entry := EmotionEntry{Label: label}
		for _, raw := range words {
			if toks := Tokenize(raw); len(toks) > 0 {
				entry.Triggers = append(entry.Triggers, Trigger{Text: strings.Join(toks, " "), Tokens: toks})
			}
		}
		lex.entries = append(lex.entries, entry)
	}
	return lex, nil
}

// Entries returns a copy of the lexicon entries in scan order.
func (l *Lexicon) Entries() []EmotionEntry {
	out := make([]EmotionEntry, len(l.entries))
	for i, e := range l.entries {
		out[i] = EmotionEntry{Label: e.Label, Triggers: append([]Trigger(nil), e.Triggers...)}
	}
	return out
}

// Negations returns the negation set shipped with the lexicon.
func (l *Lexicon) Negations() NegationSet {
	return l.negations
}
