// Package srcline splits source text into lines and answers the questions every
// detector asks about them: is this line a comment, is it obviously test or
// sample code, and what do the neighbouring lines contain.
//
// A File is built once per scan and read concurrently by nothing; it is never
// shared between scans.
package srcline

import (
	"regexp"
	"strings"
)

// File is a line-indexed view of one source text. Indices are 0-based;
// finding line numbers are index+1.
type File struct {
	lines   []string
	lower   []string
	code    []string
	comment []bool
	test    []bool
}

// New splits code into lines. CRLF endings are normalized and a single
// trailing newline does not produce an extra empty line. Empty input yields a
// File with no lines.
func New(code string) *File {
	lines := Split(code)
	f := &File{
		lines:   lines,
		lower:   make([]string, len(lines)),
		code:    make([]string, len(lines)),
		comment: CommentMask(lines),
		test:    make([]bool, len(lines)),
	}
	for i, l := range lines {
		f.lower[i] = strings.ToLower(l)
		f.code[i] = Code(l)
		f.test[i] = isTestLine(l, f.lower[i])
	}
	return f
}

// Split breaks code into lines without a trailing empty element.
func Split(code string) []string {
	if code == "" {
		return []string{}
	}
	code = strings.ReplaceAll(code, "\r\n", "\n")
	code = strings.TrimSuffix(code, "\n")
	return strings.Split(code, "\n")
}

// Len returns the number of lines.
func (f *File) Len() int {
	return len(f.lines)
}

// Lines returns the raw lines. Callers must not modify the slice.
func (f *File) Lines() []string {
	return f.lines
}

// Line returns the raw text of line i, or "" when i is out of range.
func (f *File) Line(i int) string {
	if i < 0 || i >= len(f.lines) {
		return ""
	}
	return f.lines[i]
}

// Lower returns the lowercased text of line i.
func (f *File) Lower(i int) string {
	if i < 0 || i >= len(f.lower) {
		return ""
	}
	return f.lower[i]
}

// Code returns the code part of line i, as computed by Code.
func (f *File) Code(i int) string {
	if i < 0 || i >= len(f.code) {
		return ""
	}
	return f.code[i]
}

// IsComment reports whether line i is a comment line, including lines inside
// block comments and docstrings.
func (f *File) IsComment(i int) bool {
	return i >= 0 && i < len(f.comment) && f.comment[i]
}

// IsTestCode reports whether line i is obviously test, mock or sample code.
func (f *File) IsTestCode(i int) bool {
	return i >= 0 && i < len(f.test) && f.test[i]
}

// IsBlank reports whether line i contains only whitespace.
func (f *File) IsBlank(i int) bool {
	return strings.TrimSpace(f.Line(i)) == ""
}

// Skip reports whether detectors should ignore line i: blank lines, comment
// lines and test or sample code.
func (f *File) Skip(i int) bool {
	return f.IsBlank(i) || f.IsComment(i) || f.IsTestCode(i)
}

// Window returns the lowercased lines in [i-before, i+after], clamped to the
// file bounds.
func (f *File) Window(i, before, after int) []string {
	start := max(0, i-before)
	end := min(len(f.lower)-1, i+after)
	if start > end {
		return nil
	}
	return f.lower[start : end+1]
}

// NearAny reports whether any of the lowercased needles appears in the window
// around line i. Needles must already be lowercase.
func (f *File) NearAny(i, before, after int, needles ...string) bool {
	for _, l := range f.Window(i, before, after) {
		if ContainsAny(l, needles...) {
			return true
		}
	}
	return false
}

// Text returns the whole file, lowercased, joined with newlines.
func (f *File) Text() string {
	return strings.Join(f.lower, "\n")
}

// ContainsAny reports whether s contains any of the needles.
func ContainsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// FirstOf returns the first needle contained in s.
func FirstOf(s string, needles ...string) (string, bool) {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return n, true
		}
	}
	return "", false
}

// =============================================================================
// Comment and test classification
// =============================================================================

var preprocessorDirectives = []string{"#include", "#define", "#import", "#pragma", "#if", "#endif", "#else", "#undef"}

// CommentMask classifies each line as comment or code using a small block
// comment state machine (/* */, <!-- -->, and triple-quoted docstrings that
// start a line).
func CommentMask(lines []string) []bool {
	mask := make([]bool, len(lines))
	inBlock := false
	blockEnd := ""

	for i, l := range lines {
		t := strings.TrimSpace(l)
		if inBlock {
			mask[i] = true
			if strings.Contains(t, blockEnd) {
				inBlock = false
			}
			continue
		}

		switch {
		case strings.HasPrefix(t, "/*"):
			mask[i] = true
			if !strings.Contains(t[2:], "*/") {
				inBlock, blockEnd = true, "*/"
			}
		case strings.HasPrefix(t, "<!--"):
			mask[i] = true
			if !strings.Contains(t[4:], "-->") {
				inBlock, blockEnd = true, "-->"
			}
		case strings.HasPrefix(t, `"""`) || strings.HasPrefix(t, "'''"):
			mask[i] = true
			delim := t[:3]
			if !strings.Contains(t[3:], delim) {
				inBlock, blockEnd = true, delim
			}
		case strings.HasPrefix(t, "//"), strings.HasPrefix(t, "*"):
			mask[i] = true
		case strings.HasPrefix(t, "#"):
			mask[i] = !hasAnyPrefix(t, preprocessorDirectives...)
		}
	}
	return mask
}

var (
	testWordPattern = regexp.MustCompile(`\b[Tt]est`)
	testMarkers     = []string{
		"mock", "dummy", "fake", "example", "sample", "placeholder", "stub(",
		"assert", "your_api_key", "your-api-key", "yourapikey", "<your", "xxxx", "changeme",
	}
)

func isTestLine(raw, lower string) bool {
	return ContainsAny(lower, testMarkers...) || testWordPattern.MatchString(raw)
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
