// Package compliance checks source text against the data-handling
// requirements of GDPR, HIPAA, PCI-DSS, SOC2 and COPPA.
//
// Every framework is gated on its own domain vocabulary: HIPAA rules only
// run when health data is mentioned in code, PCI-DSS rules only when card
// data is, and so on. Generic code therefore produces no compliance noise.
// Line-level issues carry a 1-based line number; missing controls are
// reported at file level with line 0.
package compliance

import (
	"fmt"
	"strings"

	"github.com/exploopio/codeguard/pkg/analyzer/detect"
	"github.com/exploopio/codeguard/pkg/analyzer/rules"
	"github.com/exploopio/codeguard/pkg/analyzer/srcline"
	"github.com/exploopio/codeguard/pkg/model"
)

// encryptionWindow is how many lines around a storage call are searched for
// an encryption indicator.
const encryptionWindow = 3

// scanner holds the per-file views every framework reads.
type scanner struct {
	f *srcline.File

	// words[i] is the word sequence of line i, empty for skipped lines
	words []string

	// lowercased code lines joined, comments and test code excluded
	code string
}

func newScanner(f *srcline.File) *scanner {
	s := &scanner{f: f, words: make([]string, f.Len())}
	var code []string
	for i := 0; i < f.Len(); i++ {
		if f.Skip(i) {
			continue
		}
		s.words[i] = Words(f.Line(i))
		code = append(code, f.Lower(i))
	}
	s.code = strings.Join(code, "\n")
	return s
}

// mentions reports whether any code line uses one of keywords.
func (s *scanner) mentions(keywords []string) bool {
	for _, w := range s.words {
		if _, ok := FirstWord(w, keywords); ok {
			return true
		}
	}
	return false
}

// codeHas reports whether the code contains any of the lowercase indicators.
func (s *scanner) codeHas(indicators []string) bool {
	return srcline.ContainsAny(s.code, indicators...)
}

// each calls fn for every non-skipped line.
func (s *scanner) each(fn func(i int, line, words string)) {
	for i := 0; i < s.f.Len(); i++ {
		if s.words[i] == "" {
			continue
		}
		fn(i, s.f.Line(i), s.words[i])
	}
}

// loggedLines returns lines whose log call mentions one of keywords.
func (s *scanner) loggedLines(keywords []string) []int {
	var out []int
	s.each(func(i int, line, words string) {
		if !rules.LogCall.MatchString(line) {
			return
		}
		if _, ok := FirstWord(words, keywords); ok {
			out = append(out, i)
		}
	})
	return out
}

// unencryptedStores returns storage writes of keyword data with no
// encryption indicator nearby.
func (s *scanner) unencryptedStores(keywords []string) []int {
	var out []int
	s.each(func(i int, line, words string) {
		if !rules.PersistCall.MatchString(line) {
			return
		}
		if _, ok := FirstWord(words, keywords); !ok {
			return
		}
		if s.f.NearAny(i, encryptionWindow, encryptionWindow, rules.EncryptionIndicators...) {
			return
		}
		out = append(out, i)
	})
	return out
}

// storesOf returns storage writes mentioning one of keywords.
func (s *scanner) storesOf(keywords []string) []int {
	var out []int
	s.each(func(i int, line, words string) {
		if !rules.PersistCall.MatchString(line) {
			return
		}
		if _, ok := FirstWord(words, keywords); ok {
			out = append(out, i)
		}
	})
	return out
}

// matching returns the lines match accepts.
func (s *scanner) matching(match func(line string) bool) []int {
	var out []int
	s.each(func(i int, line, _ string) {
		if match(line) {
			out = append(out, i)
		}
	})
	return out
}

func (s *scanner) insecureURLs() []int {
	return s.matching(func(line string) bool {
		_, ok := detect.InsecureURLHost(line)
		return ok
	})
}

func (s *scanner) hardcodedCredentials() []int {
	return s.matching(detect.IsHardcodedSecret)
}

// =============================================================================
// Issue collection
// =============================================================================

type issueKey struct {
	line  int
	title string
}

// collector accumulates one framework's issues, dropping repeats of the
// same (line, title).
type collector struct {
	framework model.Framework
	seen      map[issueKey]struct{}
	issues    []model.ComplianceIssue
}

func newCollector(fw model.Framework) *collector {
	return &collector{framework: fw, seen: map[issueKey]struct{}{}}
}

// add records t at line index i, or at file level when i < 0.
func (c *collector) add(t Template, i int) {
	line := 0
	if i >= 0 {
		line = i + 1
	}
	k := issueKey{line: line, title: t.Title}
	if _, ok := c.seen[k]; ok {
		return
	}
	c.seen[k] = struct{}{}
	c.issues = append(c.issues, model.ComplianceIssue{
		Framework:   c.framework,
		Article:     t.Article,
		Title:       t.Title,
		Description: t.Description,
		Line:        line,
		Fix:         t.Fix,
	})
}

func (c *collector) addLines(t Template, lines []int) {
	for _, i := range lines {
		c.add(t, i)
	}
}

// =============================================================================
// Entry point
// =============================================================================

// Check runs every framework over f.
func Check(f *srcline.File) *model.ComplianceResult {
	s := newScanner(f)

	var issues []model.ComplianceIssue
	for _, fw := range model.AllFrameworks() {
		c := newCollector(fw)
		frameworkChecks[fw](s, c)
		issues = append(issues, c.issues...)
	}

	res := &model.ComplianceResult{Issues: issues}
	if res.Issues == nil {
		res.Issues = []model.ComplianceIssue{}
	}
	res.GDPRCompliant = len(res.IssuesFor(model.FrameworkGDPR)) == 0
	res.HIPAACompliant = len(res.IssuesFor(model.FrameworkHIPAA)) == 0
	res.PCICompliant = len(res.IssuesFor(model.FrameworkPCI)) == 0
	res.Summary = summarize(res)
	return res
}

// CheckCode splits code and runs Check.
func CheckCode(code string) *model.ComplianceResult {
	return Check(srcline.New(code))
}

func summarize(res *model.ComplianceResult) string {
	if len(res.Issues) == 0 {
		return "No compliance issues detected."
	}
	var parts []string
	for _, fw := range model.AllFrameworks() {
		if n := len(res.IssuesFor(fw)); n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", fw, n))
		}
	}
	noun := "issues"
	if len(res.Issues) == 1 {
		noun = "issue"
	}
	return fmt.Sprintf("%d compliance %s found (%s).", len(res.Issues), noun, strings.Join(parts, ", "))
}

// =============================================================================
// Card numbers
// =============================================================================

// cardNumberLines returns lines holding a literal that passes the Luhn check.
func (s *scanner) cardNumberLines() []int {
	return s.matching(func(line string) bool {
		for _, m := range rules.CardNumberLiteral.FindAllStringSubmatch(line, -1) {
			if LuhnValid(m[1]) {
				return true
			}
		}
		return false
	})
}

// LuhnValid reports whether the digits in s (separators ignored) form a
// 13 to 19 digit number with a valid Luhn checksum.
func LuhnValid(s string) bool {
	var digits []int
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		case r == ' ' || r == '-':
		default:
			return false
		}
	}
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
