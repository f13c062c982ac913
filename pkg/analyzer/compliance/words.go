package compliance

import (
	"strings"
	"unicode"
)

// Words lowercases line and splits it into words on every non-alphanumeric
// rune and on camelCase boundaries. The result is space separated and
// padded with one space on each side so phrases can be matched with
// strings.Contains.
//
//	Words("val patientName = rec.DOB") == " val patient name rec dob "
func Words(line string) string {
	rs := []rune(line)
	var b strings.Builder
	b.Grow(len(line) + 8)
	b.WriteByte(' ')
	for i, r := range rs {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			b.WriteByte(' ')
			continue
		}
		if i > 0 && unicode.IsUpper(r) {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	fields := strings.Fields(b.String())
	if len(fields) == 0 {
		return ""
	}
	return " " + strings.Join(fields, " ") + " "
}

// HasWord reports whether the padded word sequence contains keyword as a
// whole word or phrase, optionally pluralized with a trailing "s".
func HasWord(words, keyword string) bool {
	if words == "" || keyword == "" {
		return false
	}
	return strings.Contains(words, " "+keyword+" ") || strings.Contains(words, " "+keyword+"s ")
}

// FirstWord returns the first keyword found in words.
func FirstWord(words string, keywords []string) (string, bool) {
	for _, k := range keywords {
		if HasWord(words, k) {
			return k, true
		}
	}
	return "", false
}
