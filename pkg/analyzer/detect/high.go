package detect

import (
	"strings"

	"github.com/exploopio/codeguard/pkg/analyzer/rules"
	"github.com/exploopio/codeguard/pkg/analyzer/srcline"
	"github.com/exploopio/codeguard/pkg/model"
)

// checkSensitiveLogging reports at most one finding per log call line that
// mentions a sensitive keyword.
func checkSensitiveLogging(in *Input) []model.Vulnerability {
	var out []model.Vulnerability
	f := in.File
	for i := 0; i < f.Len(); i++ {
		if f.Skip(i) {
			continue
		}
		if !rules.LogCall.MatchString(f.Line(i)) {
			continue
		}
		if srcline.ContainsAny(f.Lower(i), rules.SensitiveKeywords...) {
			out = append(out, newFinding(rules.SensitiveLog, f, i))
		}
	}
	return out
}

// checkInsecureHTTP reports the first non-local, non-namespace http:// URL
// on each line.
func checkInsecureHTTP(in *Input) []model.Vulnerability {
	var out []model.Vulnerability
	f := in.File
	for i := 0; i < f.Len(); i++ {
		if f.Skip(i) {
			continue
		}
		if _, ok := InsecureURLHost(f.Line(i)); ok {
			out = append(out, newFinding(rules.InsecureURL, f, i))
		}
	}
	return out
}

// InsecureURLHost returns the host of the first http:// URL on line that is
// neither local nor an XML namespace identifier.
func InsecureURLHost(line string) (string, bool) {
	if strings.Contains(strings.ToLower(line), "xmlns") {
		return "", false
	}
	for _, m := range rules.InsecureURL.Pattern.FindAllStringSubmatch(line, -1) {
		if IsLocalHost(m[1]) || isNamespaceHost(m[1]) {
			continue
		}
		return m[1], true
	}
	return "", false
}

// IsLocalHost reports whether host is loopback or on a private network.
func IsLocalHost(host string) bool {
	host = strings.ToLower(host)
	for _, h := range rules.LocalHosts {
		if strings.HasPrefix(host, h) {
			return true
		}
	}
	return false
}

func isNamespaceHost(host string) bool {
	host = strings.ToLower(host)
	for _, h := range rules.NamespaceHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// checkEmptyHandlers reports exception handlers whose body does nothing:
// inline empty catch blocks, multi-line catch blocks holding only comments,
// Python except clauses containing only pass, and empty Go error checks.
func checkEmptyHandlers(in *Input) []model.Vulnerability {
	var out []model.Vulnerability
	f := in.File
	for i := 0; i < f.Len(); i++ {
		if f.Skip(i) {
			continue
		}
		if HandlerIsEmpty(f, i) {
			out = append(out, newFinding(rules.EmptyHandler, f, i))
		}
	}
	return out
}

// handlerScanLimit bounds how far a multi-line handler body is followed.
const handlerScanLimit = 25

// HandlerIsEmpty reports whether line i opens an exception handler with an
// empty body. Lines that do not open a handler report false.
func HandlerIsEmpty(f *srcline.File, i int) bool {
	line := f.Line(i)
	code := f.Code(i)

	switch {
	case rules.EmptyCatchInline.MatchString(code), rules.EmptyErrCheck.MatchString(code):
		return true
	case rules.ExceptPassInline.MatchString(line):
		return true
	case rules.CatchOpen.MatchString(code):
		return braceBodyEmpty(f, i)
	case rules.ExceptOpen.MatchString(line):
		return indentBodyEmpty(f, i)
	}
	return false
}

// braceBodyEmpty follows the block opened on line i and reports whether it
// closes before any statement.
func braceBodyEmpty(f *srcline.File, i int) bool {
	for j := i + 1; j < f.Len() && j <= i+handlerScanLimit; j++ {
		if f.IsComment(j) || f.IsBlank(j) {
			continue
		}
		c := strings.TrimSpace(f.Code(j))
		if c == "" || rules.NoOpStatement.MatchString(c) {
			continue
		}
		return strings.HasPrefix(c, "}")
	}
	return false
}

// indentBodyEmpty reports whether the indented block after line i holds
// only no-op statements.
func indentBodyEmpty(f *srcline.File, i int) bool {
	base := srcline.Indent(f.Line(i))
	seen := false
	for j := i + 1; j < f.Len() && j <= i+handlerScanLimit; j++ {
		if f.IsComment(j) || f.IsBlank(j) {
			continue
		}
		if srcline.Indent(f.Line(j)) <= base {
			break
		}
		c := f.Code(j)
		if k := strings.IndexByte(c, '#'); k >= 0 {
			c = c[:k]
		}
		if !rules.NoOpStatement.MatchString(c) {
			return false
		}
		seen = true
	}
	return seen
}

// checkOpenRedirect reports redirects whose target is tainted or built
// dynamically.
func checkOpenRedirect(in *Input) []model.Vulnerability {
	var out []model.Vulnerability
	f := in.File
	r := rules.OpenRedirect
	for i := 0; i < f.Len(); i++ {
		if f.Skip(i) || !matches(r, f, i, f.Line(i)) {
			continue
		}
		_, _, tainted := in.Ctx.TaintedIn(f.Line(i))
		if tainted || srcline.HasConcatenation(f.Line(i)) {
			out = append(out, newFinding(r, f, i))
		}
	}
	return out
}
