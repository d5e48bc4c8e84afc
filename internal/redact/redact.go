// Package redact removes secrets from perception records before they leave
// the process. Detection uses the gitleaks default rule set.
package redact

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	gitleaksconfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksregexp "github.com/zricethezav/gitleaks/v8/regexp"
)

// Finding is one detected secret. Secret is never logged or returned to
// callers outside this package.
type Finding struct {
	RuleID      string
	Description string
	secret      string
}

// Result is the outcome of Redact.
type Result struct {
	Text     string
	Findings []Finding
}

// Redactor detects and masks secrets. The gitleaks detector is built once;
// Redact serializes access to it.
type Redactor struct {
	mu       sync.Mutex
	detector *detect.Detector
}

// New builds a Redactor. allowlist may be nil.
func New(allowlist *Allowlist) (*Redactor, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("building secret detector: %w", err)
	}
	if allowlist != nil && len(allowlist.Regexes) > 0 {
		if err := applyAllowlist(&detector.Config, allowlist); err != nil {
			return nil, err
		}
	}
	return &Redactor{detector: detector}, nil
}

func applyAllowlist(cfg *gitleaksconfig.Config, allowlist *Allowlist) error {
	global := &gitleaksconfig.Allowlist{Description: "perceptd allowlist"}
	for _, pattern := range allowlist.Regexes {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidRegex, pattern, err)
		}
		global.Regexes = append(global.Regexes, (*gitleaksregexp.Regexp)(re))
	}
	cfg.Allowlists = append(cfg.Allowlists, global)
	return nil
}

// Redact replaces every detected secret in text with [REDACTED:<rule>].
func (r *Redactor) Redact(text string) Result {
	if text == "" {
		return Result{Text: text}
	}

	r.mu.Lock()
	raw := r.detector.DetectString(text)
	r.mu.Unlock()

	findings := make([]Finding, 0, len(raw))
	for _, f := range raw {
		secret := f.Secret
		if secret == "" {
			secret = f.Match
		}
		if secret == "" {
			continue
		}
		findings = append(findings, Finding{RuleID: f.RuleID, Description: f.Description, secret: secret})
	}
	if len(findings) == 0 {
		return Result{Text: text}
	}

	// Longest first so a secret containing another is replaced whole.
	ordered := append([]Finding(nil), findings...)
	sort.SliceStable(ordered, func(i, j int) bool { return len(ordered[i].secret) > len(ordered[j].secret) })
	for _, f := range ordered {
		text = strings.ReplaceAll(text, f.secret, "[REDACTED:"+f.RuleID+"]")
	}
	return Result{Text: text, Findings: findings}
}

// containsSecret reports whether word is a meaningful piece of any finding.
func (r Result) containsSecret(word string) bool {
	if utf8.RuneCountInString(word) < 4 {
		return false
	}
	for _, f := range r.Findings {
		if strings.Contains(f.secret, word) {
			return true
		}
	}
	return false
}
