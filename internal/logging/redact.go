package logging

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/perceptd/internal/config"
)

// secretMarshaler logs a config.Secret as its length only.
type secretMarshaler struct {
	key string
	val config.Secret
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s *secretMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString(s.key, fmt.Sprintf("[REDACTED:%d]", len(s.val.Value())))
	return nil
}

// Secret creates a field for a credential such as the transcription API key.
func Secret(key string, val config.Secret) zap.Field {
	return zap.Object(key, &secretMarshaler{key: key, val: val})
}

// maxPatternLen bounds redaction regexes.
const maxPatternLen = 200

type fieldClass int

const (
	plainField fieldClass = iota
	secretField
	contentField
)

// RedactingEncoder masks credentials and utterance content before
// encoding. Credential fields become [REDACTED]; content fields such as
// transcripts become [TEXT:<runes>] unless content logging is on; string
// values matching a pattern become [REDACTED:pattern].
type RedactingEncoder struct {
	zapcore.Encoder
	classes  map[string]fieldClass
	patterns []*regexp.Regexp
}

// NewRedactingEncoder wraps base according to cfg.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) (*RedactingEncoder, error) {
	enc := &RedactingEncoder{Encoder: base, classes: make(map[string]fieldClass)}
	if !cfg.Enabled {
		return enc, nil
	}

	for _, f := range cfg.Fields {
		enc.classes[strings.ToLower(f)] = secretField
	}
	if !cfg.LogContent {
		for _, f := range cfg.ContentFields {
			if _, taken := enc.classes[strings.ToLower(f)]; !taken {
				enc.classes[strings.ToLower(f)] = contentField
			}
		}
	}

	for _, p := range cfg.Patterns {
		re, err := compilePattern(p)
		if err != nil {
			return nil, err
		}
		enc.patterns = append(enc.patterns, re)
	}
	return enc, nil
}

func compilePattern(p string) (*regexp.Regexp, error) {
	if len(p) > maxPatternLen {
		return nil, fmt.Errorf("redaction pattern too long (max %d chars): %q", maxPatternLen, p)
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
	}
	return re, nil
}

func (e *RedactingEncoder) class(key string) fieldClass {
	return e.classes[strings.ToLower(key)]
}

// masked returns the replacement for a non-string value under key.
func (e *RedactingEncoder) masked(key string) (string, bool) {
	switch e.class(key) {
	case secretField:
		return "[REDACTED]", true
	case contentField:
		return "[TEXT]", true
	}
	return "", false
}

// AddString applies field classes, then value patterns.
func (e *RedactingEncoder) AddString(key, val string) {
	switch e.class(key) {
	case secretField:
		e.Encoder.AddString(key, "[REDACTED]")
		return
	case contentField:
		e.Encoder.AddString(key, "[TEXT:"+strconv.Itoa(len([]rune(val)))+"]")
		return
	}
	for _, re := range e.patterns {
		if re.MatchString(val) {
			e.Encoder.AddString(key, "[REDACTED:pattern]")
			return
		}
	}
	e.Encoder.AddString(key, val)
}

// AddByteString implements zapcore.ObjectEncoder.
func (e *RedactingEncoder) AddByteString(key string, val []byte) {
	if e.class(key) != plainField {
		e.AddString(key, string(val))
		return
	}
	e.Encoder.AddByteString(key, val)
}

// AddBinary implements zapcore.ObjectEncoder.
func (e *RedactingEncoder) AddBinary(key string, val []byte) {
	if m, ok := e.masked(key); ok {
		e.Encoder.AddString(key, m)
		return
	}
	e.Encoder.AddBinary(key, val)
}

// AddReflected implements zapcore.ObjectEncoder.
func (e *RedactingEncoder) AddReflected(key string, val interface{}) error {
	if m, ok := e.masked(key); ok {
		e.Encoder.AddString(key, m)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

// AddArray implements zapcore.ObjectEncoder.
func (e *RedactingEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	if m, ok := e.masked(key); ok {
		e.Encoder.AddString(key, m)
		return nil
	}
	return e.Encoder.AddArray(key, arr)
}

// AddObject implements zapcore.ObjectEncoder.
func (e *RedactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if m, ok := e.masked(key); ok {
		e.Encoder.AddString(key, m)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

// Clone implements zapcore.Encoder.
func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{
		Encoder:  e.Encoder.Clone(),
		classes:  e.classes,
		patterns: e.patterns,
	}
}
