package detect

import (
	"fmt"
	"strconv"

	"github.com/exploopio/codeguard/pkg/analyzer/rules"
	"github.com/exploopio/codeguard/pkg/model"
)

// checkHardcodedIP reports at most one public IPv4 literal per line.
func checkHardcodedIP(in *Input) []model.Vulnerability {
	var out []model.Vulnerability
	f := in.File
	r := rules.HardcodedIP
	for i := 0; i < f.Len(); i++ {
		if f.Skip(i) {
			continue
		}
		line := f.Line(i)
		if r.Exclude.MatchString(line) {
			continue
		}
		for _, m := range r.Pattern.FindAllStringSubmatch(line, -1) {
			if octets, ok := parseOctets(m[1:5]); ok && isPublicIPv4(octets) {
				out = append(out, newFinding(r, f, i))
				break
			}
		}
	}
	return out
}

func parseOctets(parts []string) ([4]int, bool) {
	var o [4]int
	for k, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n > 255 || (len(p) > 1 && p[0] == '0') {
			return o, false
		}
		o[k] = n
	}
	return o, true
}

// isPublicIPv4 excludes unspecified, loopback, private, link-local,
// multicast and broadcast ranges.
func isPublicIPv4(o [4]int) bool {
	switch {
	case o[0] == 0, o[0] == 10, o[0] == 127, o[0] >= 224:
		return false
	case o[0] == 169 && o[1] == 254:
		return false
	case o[0] == 172 && o[1] >= 16 && o[1] <= 31:
		return false
	case o[0] == 192 && o[1] == 168:
		return false
	case o[0] == 100 && o[1] >= 64 && o[1] <= 127:
		return false
	}
	return true
}

// checkNullSafety applies the null-safety rules to the code part of each
// line so operators inside strings are ignored.
func checkNullSafety(in *Input) []model.Vulnerability {
	var out []model.Vulnerability
	f := in.File
	for _, r := range rules.NullSafety.Rules {
		for i := 0; i < f.Len(); i++ {
			if f.Skip(i) {
				continue
			}
			if matches(r, f, i, f.Code(i)) {
				out = append(out, newFinding(r, f, i))
			}
		}
	}
	return out
}

const (
	minPlausibleKeyBits = 40
	maxPlausibleKeyBits = 16384
	rsaPublicExponent   = 65537
)

// checkKeySize reports key generation below the recommended size for the
// algorithm family named in the surrounding lines. Elliptic curve sizes are
// never reported.
func checkKeySize(in *Input) []model.Vulnerability {
	var out []model.Vulnerability
	f := in.File
	r := rules.KeyGeneration
	for i := 0; i < f.Len(); i++ {
		if f.Skip(i) {
			continue
		}
		line := f.Line(i)
		loc := r.Pattern.FindStringIndex(line)
		if loc == nil {
			continue
		}
		bits, ok := keyBits(line[loc[0]:])
		if !ok {
			continue
		}
		if f.NearAny(i, 3, 0, rules.EllipticKeyTokens...) {
			continue
		}

		minBits := 0
		switch {
		case f.NearAny(i, 3, 0, rules.AsymmetricKeyTokens...):
			minBits = rules.MinAsymmetricKeyBits
		case f.NearAny(i, 3, 0, rules.SymmetricKeyTokens...):
			minBits = rules.MinSymmetricKeyBits
		}
		if bits >= minBits {
			continue
		}

		v := newFinding(r, f, i)
		v.Description = fmt.Sprintf("%s A %d-bit key is generated where at least %d bits are required.", r.Description, bits, minBits)
		out = append(out, v)
	}
	return out
}

// keyBits returns the first plausible key size in s.
func keyBits(s string) (int, bool) {
	for _, m := range rules.KeySizeNumber.FindAllStringSubmatch(s, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n == rsaPublicExponent {
			continue
		}
		if n >= minPlausibleKeyBits && n <= maxPlausibleKeyBits && n%8 == 0 {
			return n, true
		}
	}
	return 0, false
}
