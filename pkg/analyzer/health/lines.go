package health

import (
	"regexp"
	"sort"

	"github.com/exploopio/codeguard/pkg/analyzer/codemetrics"
	"github.com/exploopio/codeguard/pkg/analyzer/srcline"
)

var callSite = regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\(`)

// lineIndex answers per-function questions from prefix sums built in one
// pass, so nested or unclosed functions never rescan their bodies.
// Comment lines contribute nothing.
type lineIndex struct {
	// sites maps a called name to the lines of its call sites, one entry
	// per call, in ascending order.
	sites        map[string][]int
	conditional  []int
	returnCount  []int
	decisionSums []int
}

func newLineIndex(f *srcline.File) *lineIndex {
	n := f.Len()
	x := &lineIndex{
		sites:        map[string][]int{},
		conditional:  make([]int, n+1),
		returnCount:  make([]int, n+1),
		decisionSums: make([]int, n+1),
	}
	for i := range n {
		x.conditional[i+1] = x.conditional[i]
		x.returnCount[i+1] = x.returnCount[i]
		x.decisionSums[i+1] = x.decisionSums[i]
		if f.IsComment(i) {
			continue
		}
		code := f.Code(i)
		for _, m := range callSite.FindAllStringSubmatch(code, -1) {
			x.sites[m[1]] = append(x.sites[m[1]], i)
		}
		if conditional.MatchString(code) {
			x.conditional[i+1]++
		}
		if returnKeyword.MatchString(code) {
			x.returnCount[i+1]++
		}
		x.decisionSums[i+1] += codemetrics.CodeComplexity(code)
	}
	return x
}

// calls counts the call sites of name on lines [from, to].
func (x *lineIndex) calls(name string, from, to int) int {
	lines := x.sites[name]
	return sort.SearchInts(lines, to+1) - sort.SearchInts(lines, from)
}

// conditionals counts lines in [from, to] holding a conditional.
func (x *lineIndex) conditionals(from, to int) int {
	return span(x.conditional, from, to)
}

// returns counts lines in [from, to] holding a return.
func (x *lineIndex) returns(from, to int) int {
	return span(x.returnCount, from, to)
}

// complexity sums the decision points on lines [from, to].
func (x *lineIndex) complexity(from, to int) int {
	return span(x.decisionSums, from, to)
}

func span(prefix []int, from, to int) int {
	if from > to {
		return 0
	}
	return prefix[to+1] - prefix[from]
}
