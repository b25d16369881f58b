// Package glob compiles and matches the shell-style pattern language used
// by Registry.Discover and Registry.Watch (spec.md §6): '*' matches any run
// of characters — including '/' — '?' matches exactly one character
// (including '/'), and '[...]' character classes are supported. This
// mirrors the `glob` crate's default MatchOptions{require_literal_separator:
// false} used by the original implementation's Registry pattern matcher
// (original_source/crates/wind-registry/src/pattern.rs): a pattern segment
// boundary is not a literal barrier, so "SENSOR/*" matches
// "SENSOR/ROOM_A/TEMP" and "*" matches every registered name regardless of
// how many '/'-delimited segments it has.
package glob

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a compiled glob ready for repeated matching.
type Pattern struct {
	raw string
	re  *regexp.Regexp
}

// Compile validates pattern and returns a Pattern, translating the glob
// syntax into an anchored regular expression: '*' becomes ".*", '?' becomes
// ".", and '[...]' character classes are carried through largely as-is
// (a leading '!' is translated to '^' to negate, matching shell glob
// convention) since Go's regexp already accepts the same class syntax.
// Every other rune is matched literally.
func Compile(pattern string) (Pattern, error) {
	re, err := compileRegexp(pattern)
	if err != nil {
		return Pattern{}, err
	}
	return Pattern{raw: pattern, re: re}, nil
}

// MustCompile is Compile but panics on an invalid pattern; useful for
// patterns that are compile-time constants.
func MustCompile(pattern string) Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the original pattern text.
func (p Pattern) String() string { return p.raw }

// Match reports whether name satisfies the pattern. '*' and '?' are free to
// span '/'-delimited segments, so segment count is not considered at all —
// only full-string matching against the compiled regular expression.
func (p Pattern) Match(name string) bool {
	return p.re.MatchString(name)
}

func compileRegexp(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")

	runes := []rune(pattern)
	n := len(runes)
	for i := 0; i < n; i++ {
		switch c := runes[i]; c {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		case '[':
			j := i + 1
			var cls strings.Builder
			cls.WriteByte('[')
			if j < n && (runes[j] == '!' || runes[j] == '^') {
				cls.WriteByte('^')
				j++
			}
			if j < n && runes[j] == ']' {
				cls.WriteString(`\]`)
				j++
			}
			closed := false
			for j < n {
				if runes[j] == ']' {
					closed = true
					break
				}
				if runes[j] == '\\' || runes[j] == '^' {
					cls.WriteByte('\\')
				}
				cls.WriteRune(runes[j])
				j++
			}
			if !closed {
				return nil, fmt.Errorf("glob: unterminated character class in pattern %q", pattern)
			}
			cls.WriteByte(']')
			sb.WriteString(cls.String())
			i = j
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("glob: invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}
