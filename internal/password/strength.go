// Package password scores candidate passwords for the registration form.
package password

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	DefaultMinLength = 8

	// MaxBytes is bcrypt's input limit; longer passwords cannot be hashed.
	MaxBytes = 72

	longLength     = 12
	veryLongLength = 16
)

const (
	LabelVeryWeak = "very weak"
	LabelWeak     = "weak"
	LabelAverage  = "average"
	LabelStrong   = "strong"
)

const (
	FeedbackCommon   = "Password is very weak: avoid common passwords."
	FeedbackTooShort = "Password is very weak: use at least 8 characters."
	FeedbackTooLong  = "Password must be at most 72 bytes."
	missingPrefix    = "You also need to include: "
)

// defaultCommon is the list shipped with the registration form.
var defaultCommon = []string{
	"123456", "password", "123456789", "12345678", "12345", "qwerty", "abc123",
	"admin", "welcome", "letmein", "1234567", "master", "123123",
	"welcome1", "password1", "qwerty123", "123qwe", "123abc", "qwe123", "admin123",
	"pass123", "qwertyuiop", "123321", "654321",
}

// DefaultCommonPasswords returns a fresh copy of the built-in list.
func DefaultCommonPasswords() []string {
	out := make([]string, len(defaultCommon))
	copy(out, defaultCommon)
	return out
}

// Policy is the immutable configuration of an Evaluator.
type Policy struct {
	common map[string]struct{}
}

// NewPolicy builds a policy from the given common passwords. Entries are
// compared lower-cased; blanks are ignored.
func NewPolicy(common []string) Policy {
	set := make(map[string]struct{}, len(common))
	for _, p := range common {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		set[p] = struct{}{}
	}
	return Policy{common: set}
}

func DefaultPolicy() Policy {
	return NewPolicy(defaultCommon)
}

// ReadCommonPasswords reads one password per line, skipping blanks and
// lines starting with '#'.
func ReadCommonPasswords(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read common passwords: %w", err)
	}
	return out, nil
}

func (p Policy) IsCommon(pw string) bool {
	_, ok := p.common[strings.ToLower(pw)]
	return ok
}

func (p Policy) Size() int { return len(p.common) }

// Result is the outcome of Evaluate. Label and Score are only meaningful when
// Valid is true.
type Result struct {
	Valid    bool
	Feedback string
	Label    string
	Score    int
}

// Evaluator is safe for concurrent use; it holds no mutable state.
type Evaluator struct {
	policy Policy
}

func NewEvaluator(p Policy) *Evaluator {
	return &Evaluator{policy: p}
}

type classes struct {
	lower, upper, digit, symbol bool
}

func classify(pw string) classes {
	var c classes
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			c.lower = true
		case r >= 'A' && r <= 'Z':
			c.upper = true
		case r >= '0' && r <= '9':
			c.digit = true
		case r == '_':
			// word character, not a symbol
		default:
			c.symbol = true
		}
	}
	return c
}

func (c classes) missing() []string {
	var m []string
	if !c.lower {
		m = append(m, "lowercase")
	}
	if !c.upper {
		m = append(m, "uppercase")
	}
	if !c.digit {
		m = append(m, "number")
	}
	if !c.symbol {
		m = append(m, "special character")
	}
	return m
}

func (c classes) count() int {
	n := 0
	for _, ok := range []bool{c.lower, c.upper, c.digit, c.symbol} {
		if ok {
			n++
		}
	}
	return n
}

// Evaluate applies, in order: common-password check, minimum length,
// maximum byte length, character classes, then scores the survivors.
func (e *Evaluator) Evaluate(pw string) Result {
	if e.policy.IsCommon(pw) {
		return Result{Feedback: FeedbackCommon, Label: LabelVeryWeak}
	}

	length := utf8.RuneCountInString(pw)
	if length < DefaultMinLength {
		return Result{Feedback: FeedbackTooShort, Label: LabelVeryWeak}
	}

	if len(pw) > MaxBytes {
		return Result{Feedback: FeedbackTooLong}
	}

	c := classify(pw)
	if missing := c.missing(); len(missing) > 0 {
		return Result{Feedback: missingPrefix + joinWithAnd(missing), Label: LabelVeryWeak}
	}

	score := c.count()
	if length >= longLength {
		score++
	}
	if length >= veryLongLength {
		score++
	}

	label := LabelWeak
	switch {
	case score >= 6:
		label = LabelStrong
	case score >= 4:
		label = LabelAverage
	}

	return Result{
		Valid:    true,
		Feedback: "Password is " + label + ".",
		Label:    label,
		Score:    score,
	}
}

// joinWithAnd renders ["a","b","c"] as "a, b and c".
func joinWithAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
