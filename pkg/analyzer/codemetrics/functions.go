package codemetrics

import (
	"regexp"
	"sort"
	"strings"

	"github.com/exploopio/codeguard/pkg/analyzer/srcline"
)

// Function is one function found in a file. Start and End are 0-based line
// indices, both inclusive.
type Function struct {
	Name  string
	Start int
	End   int
}

// Length returns the number of lines the function spans.
func (fn Function) Length() int {
	return fn.End - fn.Start + 1
}

var (
	// fun, func, def and function declarations, including Go receivers
	// and Kotlin extension functions. Group 1 is the name.
	keywordFuncDecl = regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|static|override|suspend|async|export|inline|open|abstract|final|operator|infix|tailrec|default)\s+)*(?:fun|func|def|function)\s+(?:<[^>]*>\s*)?(?:\([^)]*\)\s*)?(?:[A-Za-z_][\w<>?]*\.)?([A-Za-z_]\w*)\s*[(<]`)

	// Java, C# and C++ style method declarations with at least one modifier.
	methodDecl = regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|final|synchronized|abstract|virtual|override|async)\s+)+[\w<>\[\],.?]+\s+([A-Za-z_]\w*)\s*\([^;]*$`)

	// JavaScript arrow functions bound to a name.
	arrowDecl = regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?(?:\([^)]*\)|[A-Za-z_$][\w$]*)\s*=>`)

	classDecl = regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|abstract|final|open|sealed|data|enum|inner|static|export|annotation|value)\s+)*(?:class|interface|object|struct|trait|protocol)\s+[A-Za-z_]\w*|^\s*type\s+[A-Za-z_]\w*\s+(?:struct|interface)\b`)
)

var controlWords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true, "return": true,
	"new": true, "else": true, "when": true, "synchronized": true,
}

// FunctionName returns the name declared on line, if it declares a function.
func FunctionName(line string) (string, bool) {
	for _, re := range []*regexp.Regexp{keywordFuncDecl, methodDecl, arrowDecl} {
		if m := re.FindStringSubmatch(line); m != nil && !controlWords[m[1]] {
			return m[1], true
		}
	}
	return "", false
}

// IsClassDecl reports whether line declares a class-like type.
func IsClassDecl(line string) bool {
	return classDecl.MatchString(line)
}

// bodyOpenLookahead is how many lines after a declaration may hold the
// opening brace.
const bodyOpenLookahead = 2

// Blocks holds the last line of the block opened on every line of a file.
// All extents are resolved in one pass over brace depth and indentation, so
// an unclosed brace costs no more than a closed one.
type Blocks struct {
	f   *srcline.File
	end []int
}

// NewBlocks resolves the block extents of f.
func NewBlocks(f *srcline.File) *Blocks {
	n := f.Len()
	b := &Blocks{f: f, end: make([]int, n)}
	for i := range b.end {
		b.end[i] = i
	}
	if n == 0 {
		return b
	}

	// after[j] is the brace depth at the end of line j; comment lines carry
	// the depth of the line before them.
	after := make([]int, n)
	opens := make([]bool, n)
	depth := 0
	for j := range n {
		if !f.IsComment(j) {
			for _, r := range f.Code(j) {
				switch r {
				case '{':
					depth++
					opens[j] = true
				case '}':
					depth--
				}
			}
		}
		after[j] = depth
	}
	before := func(j int) int {
		if j == 0 {
			return 0
		}
		return after[j-1]
	}

	type query struct{ start, limit int }
	queries := make(map[int][]query)
	var indented []int
	for s := range n {
		if f.IsComment(s) || f.IsBlank(s) {
			continue
		}
		code := strings.TrimSpace(f.Code(s))
		if strings.HasSuffix(code, ":") && !strings.Contains(code, "{") {
			indented = append(indented, s)
			continue
		}
		if o, ok := b.opening(s, opens); ok {
			queries[o] = append(queries[o], query{start: s, limit: before(s)})
		}
	}
	b.resolveIndented(indented)

	// Walking backwards, stack holds the positions where the depth reaches
	// a new minimum when read forward from the current line. Depth rises
	// from stack[0] to the top, so the first line at or below a limit is
	// found by binary search.
	var stack []int
	for i := n - 1; i >= 0; i-- {
		for len(stack) > 0 && after[stack[len(stack)-1]] >= after[i] {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, i)
		for _, q := range queries[i] {
			k := sort.Search(len(stack), func(x int) bool { return after[stack[x]] > q.limit })
			if k == 0 {
				b.end[q.start] = n - 1
				continue
			}
			b.end[q.start] = stack[k-1]
		}
	}
	return b
}

// opening returns the line holding the brace that opens the block of the
// declaration on line s. Lines ending in ';' and expression bodies open no
// block, and the brace must appear within bodyOpenLookahead lines.
func (b *Blocks) opening(s int, opens []bool) (int, bool) {
	f := b.f
	for j := s; j < f.Len() && j-s <= bodyOpenLookahead; j++ {
		if f.IsComment(j) {
			continue
		}
		if opens[j] {
			return j, true
		}
		t := strings.TrimSpace(f.Code(j))
		if j == s && isExpressionBody(t) {
			return 0, false
		}
		if strings.HasSuffix(t, ";") {
			return 0, false
		}
	}
	return 0, false
}

// resolveIndented sets the end of every block opened by a trailing ':' to
// the last non-blank line indented deeper than its opener.
func (b *Blocks) resolveIndented(starts []int) {
	if len(starts) == 0 {
		return
	}
	f := b.f
	n := f.Len()

	lastNonBlank := make([]int, n)
	prev := -1
	for j := range n {
		if !f.IsBlank(j) {
			prev = j
		}
		lastNonBlank[j] = prev
	}

	// next[i] is the first code line after i indented no deeper than i.
	next := make([]int, n)
	var stack []int
	for i := n - 1; i >= 0; i-- {
		if f.IsBlank(i) || f.IsComment(i) {
			continue
		}
		indent := srcline.Indent(f.Line(i))
		for len(stack) > 0 && srcline.Indent(f.Line(stack[len(stack)-1])) > indent {
			stack = stack[:len(stack)-1]
		}
		next[i] = n
		if len(stack) > 0 {
			next[i] = stack[len(stack)-1]
		}
		stack = append(stack, i)
	}
	for _, s := range starts {
		b.end[s] = lastNonBlank[next[s]-1]
	}
}

// End returns the last line of the block opened on line start: the matching
// closing brace, or the last line indented deeper than start when the line
// ends in ':'. A line that opens no block ends where it starts, and an
// unclosed brace runs to the end of the file.
func (b *Blocks) End(start int) int {
	if start < 0 || start >= len(b.end) {
		return start
	}
	return b.end[start]
}

// Functions locates every function declared in the file and the extent of
// its body. A declaration with no body (expression bodies, abstract
// methods) spans one line.
func (b *Blocks) Functions() []Function {
	var out []Function
	f := b.f
	for i := 0; i < f.Len(); i++ {
		if f.IsComment(i) || f.IsBlank(i) {
			continue
		}
		name, ok := FunctionName(f.Line(i))
		if !ok {
			continue
		}
		out = append(out, Function{Name: name, Start: i, End: b.End(i)})
	}
	return out
}

// Functions locates every function declared in f. See Blocks.Functions.
func Functions(f *srcline.File) []Function {
	return NewBlocks(f).Functions()
}

// isExpressionBody reports whether a declaration line assigns its body after
// the parameter list (fun x() = 1, const f = () => 1).
func isExpressionBody(decl string) bool {
	rest := decl
	if open := strings.IndexByte(decl, '('); open >= 0 {
		depth := 0
		for k := open; k < len(decl); k++ {
			switch decl[k] {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth == 0 {
				rest = decl[k+1:]
				break
			}
		}
	}
	rest = strings.TrimSuffix(rest, "=")
	return strings.Contains(rest, "=")
}
