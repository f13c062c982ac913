package enrich

import (
	"strings"

	"github.com/exploopio/codeguard/pkg/shared/severity"
)

// CVSS v3.1 base vectors shared by several titles.
const (
	vectorNetworkRCE      = "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"
	vectorCredential      = "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:N"
	vectorNetworkRead     = "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:N/A:N"
	vectorMITM            = "CVSS:3.1/AV:A/AC:H/PR:N/UI:N/S:U/C:H/I:H/A:N"
	vectorLocalRead       = "CVSS:3.1/AV:L/AC:L/PR:L/UI:N/S:U/C:H/I:N/A:N"
	vectorLocalReadWrite  = "CVSS:3.1/AV:L/AC:L/PR:L/UI:N/S:U/C:H/I:H/A:N"
	vectorUserInteraction = "CVSS:3.1/AV:N/AC:L/PR:N/UI:R/S:C/C:L/I:L/A:N"
	vectorCrypto          = "CVSS:3.1/AV:N/AC:H/PR:N/UI:N/S:U/C:H/I:N/A:N"
	vectorLocalApp        = "CVSS:3.1/AV:L/AC:L/PR:N/UI:R/S:U/C:L/I:L/A:N"
	vectorAvailability    = "CVSS:3.1/AV:N/AC:H/PR:N/UI:N/S:U/C:N/I:N/A:L"
	vectorInformational   = "CVSS:3.1/AV:L/AC:H/PR:L/UI:N/S:U/C:L/I:N/A:N"
)

type cvssRule struct {
	// lowercase title fragment
	match  string
	score  float64
	vector string
}

// Ordered from specific to generic; the first fragment found wins.
var cvssRules = []cvssRule{
	{"sql injection", 9.8, vectorNetworkRCE},
	{"command injection", 9.8, vectorNetworkRCE},
	{"deserialization", 9.8, vectorNetworkRCE},
	{"xml external", 9.1, "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:N/A:H"},
	{"path traversal", 8.6, "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:N/A:N"},
	{"private key", 9.1, vectorCredential},
	{"aws secret", 9.1, vectorCredential},
	{"connection string", 9.1, vectorCredential},
	{"token", 8.2, "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:L/A:N"},
	{"api key", 8.2, "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:L/A:N"},
	{"access key", 8.2, "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:L/A:N"},
	{"webhook", 6.5, "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:N/I:L/A:L"},
	{"hardcoded secret", 7.5, vectorNetworkRead},
	{"tls certificate", 7.4, vectorMITM},
	{"cleartext", 7.4, vectorMITM},
	{"insecure http", 7.4, vectorMITM},
	{"mixed content", 6.8, vectorMITM},
	{"javascript interface", 8.8, "CVSS:3.1/AV:N/AC:L/PR:N/UI:R/S:U/C:H/I:H/A:H"},
	{"javascript enabled", 6.1, vectorUserInteraction},
	{"file access", 7.1, "CVSS:3.1/AV:N/AC:L/PR:N/UI:R/S:U/C:H/I:L/A:N"},
	{"open redirect", 6.1, vectorUserInteraction},
	{"sensitive data in logs", 5.5, vectorLocalRead},
	{"debuggable", 7.1, vectorLocalReadWrite},
	{"debugging enabled", 6.3, vectorLocalReadWrite},
	{"exported component", 7.1, "CVSS:3.1/AV:L/AC:L/PR:N/UI:N/S:U/C:H/I:L/A:N"},
	{"broadcast receiver", 6.2, "CVSS:3.1/AV:L/AC:L/PR:N/UI:N/S:U/C:N/I:H/A:N"},
	{"pendingintent", 6.2, "CVSS:3.1/AV:L/AC:L/PR:N/UI:N/S:U/C:N/I:H/A:N"},
	{"dynamic code", 7.8, "CVSS:3.1/AV:L/AC:L/PR:L/UI:N/S:U/C:H/I:H/A:H"},
	{"weak hashing", 5.9, vectorCrypto},
	{"weak encryption", 5.9, vectorCrypto},
	{"cipher mode", 5.9, vectorCrypto},
	{"key size", 5.9, vectorCrypto},
	{"initialization vector", 5.9, vectorCrypto},
	{"random", 5.3, "CVSS:3.1/AV:N/AC:H/PR:N/UI:N/S:U/C:L/I:L/A:N"},
	{"local storage", 5.5, vectorLocalRead},
	{"external storage", 5.5, vectorLocalRead},
	{"world-accessible", 6.1, vectorLocalReadWrite},
	{"clipboard", 4.6, "CVSS:3.1/AV:P/AC:L/PR:N/UI:N/S:U/C:H/I:N/A:N"},
	{"deep link", 5.4, vectorLocalApp},
	{"intent data", 4.4, vectorLocalApp},
	{"empty exception", 5.3, vectorAvailability},
	{"force unwrap", 5.3, vectorAvailability},
	{"type cast", 5.3, vectorAvailability},
	{"hardcoded ip", 3.7, "CVSS:3.1/AV:N/AC:H/PR:N/UI:N/S:U/C:L/I:N/A:N"},
	{"backup", 4.3, vectorLocalRead},
	{"obfuscation", 3.3, vectorInformational},
	{"reflection", 3.3, vectorInformational},
	{"broad exception", 3.1, vectorInformational},
	{"todo", 2.0, vectorInformational},
}

// Fallback scores per severity when no title fragment matches.
var severityScores = map[severity.Level]cvssRule{
	severity.Critical: {score: 9.0, vector: vectorNetworkRCE},
	severity.High:     {score: 7.5, vector: vectorNetworkRead},
	severity.Medium:   {score: 5.3, vector: "CVSS:3.1/AV:N/AC:H/PR:N/UI:N/S:U/C:L/I:L/A:N"},
	severity.Low:      {score: 3.1, vector: vectorInformational},
}

// CVSS returns a heuristic CVSS v3.1 base score and vector for a finding.
func CVSS(title string, level severity.Level) (float64, string) {
	lower := strings.ToLower(title)
	for _, r := range cvssRules {
		if strings.Contains(lower, r.match) {
			return r.score, r.vector
		}
	}
	if r, ok := severityScores[level]; ok {
		return r.score, r.vector
	}
	r := severityScores[severity.Low]
	return r.score, r.vector
}
