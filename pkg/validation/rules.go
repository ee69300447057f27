// Package validation provides typed, declarative request validation rules.
// Rules are plain values evaluated by a single interpreter, so a malformed
// rule is a compile error rather than a string-parsing surprise.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind identifies a rule variant.
type Kind int

const (
	KindRequired Kind = iota
	KindEmail
	KindStringLength
	KindIntRange
	KindOneOf
	KindRegex
)

// Rule is one validation constraint. Construct rules with the functions
// below; zero values are not meaningful.
type Rule struct {
	kind    Kind
	min     int
	max     int
	choices []string
	pattern *regexp.Regexp
}

// Required rejects empty or whitespace-only strings and nil values.
func Required() Rule {
	return Rule{kind: KindRequired}
}

// Email requires a syntactically plausible email address.
func Email() Rule {
	return Rule{kind: KindEmail}
}

// StringLength requires the string length to be within [min, max] bytes.
func StringLength(min, max int) Rule {
	return Rule{kind: KindStringLength, min: min, max: max}
}

// IntRange requires an int value within [min, max].
func IntRange(min, max int) Rule {
	return Rule{kind: KindIntRange, min: min, max: max}
}

// OneOf requires the string to equal one of the listed choices.
func OneOf(choices ...string) Rule {
	return Rule{kind: KindOneOf, choices: choices}
}

// Regex requires the string to match the compiled pattern.
func Regex(pattern *regexp.Regexp) Rule {
	return Rule{kind: KindRegex, pattern: pattern}
}

// Field pairs a named value with the rules it must satisfy.
type Field struct {
	Name  string
	Value interface{}
	Rules []Rule
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Evaluate runs every rule for every field and returns a map of field name to
// first failure message. An empty map means all fields passed.
func Evaluate(fields ...Field) map[string]string {
	failures := make(map[string]string)

	for _, f := range fields {
		for _, rule := range f.Rules {
			if msg, ok := apply(rule, f.Value); !ok {
				failures[f.Name] = msg
				break
			}
		}
	}

	return failures
}

// apply interprets a single rule against a value. Returns (message, false)
// on failure.
func apply(rule Rule, value interface{}) (string, bool) {
	switch rule.kind {
	case KindRequired:
		s, isStr := value.(string)
		if value == nil || (isStr && strings.TrimSpace(s) == "") {
			return "is required", false
		}

	case KindEmail:
		s, _ := value.(string)
		if !emailPattern.MatchString(s) {
			return "must be a valid email address", false
		}

	case KindStringLength:
		s, _ := value.(string)
		if len(s) < rule.min {
			return fmt.Sprintf("must be at least %d characters", rule.min), false
		}
		if len(s) > rule.max {
			return fmt.Sprintf("must be at most %d characters", rule.max), false
		}

	case KindIntRange:
		n, ok := value.(int)
		if !ok || n < rule.min || n > rule.max {
			return fmt.Sprintf("must be between %d and %d", rule.min, rule.max), false
		}

	case KindOneOf:
		s, _ := value.(string)
		for _, choice := range rule.choices {
			if s == choice {
				return "", true
			}
		}
		return fmt.Sprintf("must be one of: %s", strings.Join(rule.choices, ", ")), false

	case KindRegex:
		s, _ := value.(string)
		if rule.pattern == nil || !rule.pattern.MatchString(s) {
			return "has an invalid format", false
		}
	}

	return "", true
}
