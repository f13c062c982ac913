package srcline

import (
	"regexp"
	"strings"
)

// StripLiterals blanks out the contents of single, double and backtick quoted
// literals while keeping the quotes, so brace and keyword counting does not
// see text inside strings. Escaped quotes are honoured. An unterminated
// literal runs to the end of the line.
func StripLiterals(line string) string {
	var b strings.Builder
	b.Grow(len(line))

	var quote rune
	escaped := false
	for _, r := range line {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\' && quote != '`':
				escaped = true
			case r == quote:
				quote = 0
				b.WriteRune(r)
			}
			continue
		}
		if r == '"' || r == '\'' || r == '`' {
			quote = r
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Code returns the executable part of a line: literals blanked and any
// trailing // comment removed.
func Code(line string) string {
	s := StripLiterals(line)
	if idx := strings.Index(s, "//"); idx >= 0 {
		s = s[:idx]
	}
	return s
}

// Indent returns the indentation width of a line (tabs count as 4).
func Indent(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

var identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// Identifiers returns the identifiers appearing in the code part of a line,
// in order of appearance.
func Identifiers(line string) []string {
	return identifierPattern.FindAllString(Code(line), -1)
}

// Identifiers returns the identifiers in the code part of line i.
func (f *File) Identifiers(i int) []string {
	return identifierPattern.FindAllString(f.Code(i), -1)
}

var quotedPattern = regexp.MustCompile(`"([^"\\]|\\.)*"|'([^'\\]|\\.)*'`)

// QuotedLiterals returns the contents of every quoted literal in the line.
func QuotedLiterals(line string) []string {
	matches := quotedPattern.FindAllString(line, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1:len(m)-1])
	}
	return out
}

// HasConcatenation reports whether the line builds a string dynamically:
// concatenation with a literal, template interpolation or format calls.
func HasConcatenation(line string) bool {
	return concatPattern.MatchString(line)
}

var concatPattern = regexp.MustCompile(
	`"\s*\+|\+\s*"|'\s*\+|\+\s*'|\$\{|"[^"]*\$[A-Za-z_][^"]*"|\bf"|\bf'|\.format\(|String\.format\(|fmt\.Sprintf\(|"\s*%\s*[\w(]|'\s*%\s*[\w(]|\+=\s*"`,
)

// =============================================================================
// Snippet redaction
// =============================================================================

const (
	redactMinLiteral = 20
	snippetMaxLen    = 160
	redactedLiteral  = `"<redacted>"`
)

var longLiteralPattern = regexp.MustCompile(`"[^"]{20,}"|'[^']{20,}'|` + "`[^`]{20,}`")

// Redact prepares a line for inclusion in a finding: whitespace is trimmed,
// every quoted literal of 20 or more characters is replaced so secrets are
// never echoed back, and the result is truncated.
func Redact(line string) string {
	s := strings.TrimSpace(line)
	s = longLiteralPattern.ReplaceAllStringFunc(s, func(m string) string {
		if len([]rune(m))-2 < redactMinLiteral {
			return m
		}
		return redactedLiteral
	})
	if r := []rune(s); len(r) > snippetMaxLen {
		s = string(r[:snippetMaxLen]) + "..."
	}
	return s
}
