package rules

import (
	"regexp"

	"github.com/exploopio/codeguard/pkg/shared/severity"
)

// InsecureURL finds plain http:// URLs. Group 1 is the host.
var InsecureURL = Rule{
	Title:       "Insecure HTTP Connection",
	Category:    CategoryTransport,
	Severity:    severity.High,
	Confidence:  severity.ConfidenceHigh,
	Description: "Data is sent over plain HTTP. Traffic can be read and modified by anyone on the network path.",
	Fix:         "Use https:// for every remote endpoint and enforce TLS through the platform network security configuration.",
	Pattern:     regexp.MustCompile(`(?i)\bhttp://([^/\s"'<>):?#]+)`),
}

// LocalHosts are host prefixes that never leave the device or the private
// network.
var LocalHosts = []string{
	"localhost", "127.", "10.", "192.168.", "0.0.0.0", "[::1]", "::1", "10.0.2.2",
	"172.16.", "172.17.", "172.18.", "172.19.", "172.20.", "172.21.", "172.22.", "172.23.",
	"172.24.", "172.25.", "172.26.", "172.27.", "172.28.", "172.29.", "172.30.", "172.31.",
}

// NamespaceHosts appear in XML namespaces, schemas and licence headers and
// are identifiers, not endpoints.
var NamespaceHosts = []string{
	"schemas.android.com", "www.w3.org", "w3.org", "schemas.xmlsoap.org", "schemas.microsoft.com",
	"json-schema.org", "purl.org", "ns.adobe.com", "xmlpull.org", "www.apache.org", "apache.org",
	"maven.apache.org", "java.sun.com", "xmlns.jcp.org", "www.springframework.org", "ogp.me",
	"www.opengis.net", "schema.org",
}

// TLSBypass lists indicators that certificate or hostname validation is
// disabled.
var TLSBypass = Rule{
	Title:       "TLS Certificate Validation Disabled",
	Category:    CategoryTransport,
	Severity:    severity.High,
	Confidence:  severity.ConfidenceHigh,
	Description: "Certificate or hostname verification is turned off, so any certificate is accepted. This allows man-in-the-middle interception of encrypted traffic.",
	Fix:         "Keep the default trust manager and hostname verifier. Use certificate pinning or a custom trust store if a private CA is required.",
	Pattern:     regexp.MustCompile(`(?i)(insecureskipverify\s*:\s*true|\bverify\s*=\s*false\b|rejectunauthorized\s*:\s*false|_create_unverified_context|\bcert_none\b|allow_all_hostname_verifier|allowallhostnameverifier|noophostnameverifier|trustallcerts|trustall(?:x509)?(?:trust)?manager|\bhandler\.proceed\s*\(\s*\)|hostnameverifier\s*\{\s*_\s*,\s*_\s*->\s*true|hostnameverifier\s*\(\s*\)\s*\{[^}]*return\s+true|\bcheck_hostname\s*=\s*false|node_tls_reject_unauthorized\s*=\s*["']?0|sslv3|\.sslsocketfactory\s*=\s*trustall)`),
}

// CleartextTraffic finds configuration flags that allow unencrypted traffic.
var CleartextTraffic = Rule{
	Title:       "Cleartext Traffic Allowed",
	Category:    CategoryTransport,
	Severity:    severity.High,
	Confidence:  severity.ConfidenceHigh,
	Description: "The app configuration permits cleartext (non-TLS) network traffic.",
	Fix:         "Set usesCleartextTraffic to false and restrict exceptions to specific debug-only domains in the network security config.",
	Pattern:     regexp.MustCompile(`(?i)(usescleartexttraffic\s*=\s*"?true|cleartexttrafficpermitted\s*=\s*"?true|nsallowsarbitraryloads)`),
	Exclude:     regexp.MustCompile(`(?i)nsallowsarbitraryloads</key>\s*<false`),
}

// LogCall matches logging and console output calls.
var LogCall = regexp.MustCompile(`(?i)(\blog\.[dviwe]\s*\(|\blog\.(?:debug|info|warn|warning|error|fatal|trace|verbose|println|printf|print)\s*\(|\blogger\.\w+\s*\(|\btimber\.\w+\s*\(|\bprintln\s*\(|\bprint\s*\(|\bconsole\.(?:log|error|warn|info|debug)\s*\(|\bsystem\.(?:out|err)\.print|\.printstacktrace\s*\(|\bfmt\.(?:print|fprint)\w*\s*\(|\bnslog\s*\(|\bprintf\s*\(|\blogging\.\w+\s*\(|\bslog\.\w+\s*\()`)

// SensitiveLog is the finding raised for a log call that mentions sensitive
// data. Only one is reported per line.
var SensitiveLog = Rule{
	Title:       "Sensitive Data in Logs",
	Category:    CategoryLogging,
	Severity:    severity.High,
	Confidence:  severity.ConfidenceMedium,
	Description: "A log statement includes sensitive data. Logs are readable by other tools, crash reporters and support staff, and are often retained for a long time.",
	Fix:         "Remove sensitive values from log statements or mask them. Strip verbose logging from release builds.",
	Pattern:     LogCall,
}

// HardcodedIP matches dotted-quad IPv4 literals.
var HardcodedIP = Rule{
	Title:       "Hardcoded IP Address",
	Category:    CategoryNetwork,
	Severity:    severity.Medium,
	Confidence:  severity.ConfidenceMedium,
	Description: "A public IP address is hardcoded. Fixed addresses bypass DNS-based controls and leak infrastructure details.",
	Fix:         "Move endpoints to configuration and reference hosts by name over TLS.",
	Pattern:     regexp.MustCompile(`\b(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})\b`),
	Exclude:     regexp.MustCompile(`(?i)version|\bv\d+\.\d|\d+\.\d+\.\d+\.\d+\.\d`),
}
