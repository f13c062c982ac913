package rules

import (
	"regexp"

	"github.com/exploopio/codeguard/pkg/shared/severity"
)

// Crypto holds weak algorithm rules. Algorithm names only count inside a
// crypto API call.
var Crypto = Group{
	Name: "crypto",
	Rules: []Rule{
		{
			Title:       "Weak Hashing Algorithm",
			Category:    CategoryCryptography,
			Severity:    severity.Medium,
			Confidence:  severity.ConfidenceHigh,
			Description: "MD5 or SHA-1 is used. Both are broken for collision resistance and must not protect passwords, signatures or integrity checks.",
			Fix:         "Use SHA-256 or stronger for integrity and a dedicated password hash (Argon2, bcrypt, scrypt, PBKDF2) for credentials.",
			Pattern:     regexp.MustCompile(`(?i)(messagedigest\.getinstance\s*\(\s*"(?:md2|md4|md5|sha-?1)"|\bhashlib\.(?:md5|sha1)\s*\(|\bhashlib\.new\s*\(\s*['"](?:md5|sha1)['"]|createhash\s*\(\s*['"](?:md5|sha1)['"]|\bmd5\.(?:new|sum)\s*\(|\bsha1\.(?:new|sum)\s*\(|\bdigestutils\.(?:md5|sha1)\w*\s*\(|\bhashing\.(?:md5|sha1)\s*\(|\bmd5\s*\(|\bsha1\s*\(|\binsecure\.(?:md5|sha1))`),
		},
		{
			Title:       "Weak Encryption Algorithm",
			Category:    CategoryCryptography,
			Severity:    severity.Medium,
			Confidence:  severity.ConfidenceHigh,
			Description: "A deprecated cipher (DES, 3DES, RC2, RC4 or Blowfish) is used. These ciphers can be broken with modest resources.",
			Fix:         "Use AES-256-GCM or ChaCha20-Poly1305.",
			Pattern:     regexp.MustCompile(`(?i)(cipher\.getinstance\s*\(\s*"(?:des|desede|tripledes|rc2|rc4|arcfour|blowfish)\b|\bdes\.new\s*\(|\bdes3\.new\s*\(|\barc4\.new\s*\(|\bblowfish\.new\s*\(|createcipher(?:iv)?\s*\(\s*['"](?:des|rc4|rc2|bf|blowfish)|\bdes\.newcipher\s*\(|\bdes\.newtripledescipher\s*\(|\brc4\.newcipher\s*\(|\bsecretkeyspec\s*\([^)]*"(?:des|desede|rc4|blowfish)")`),
		},
		{
			Title:       "Insecure Cipher Mode (ECB)",
			Category:    CategoryCryptography,
			Severity:    severity.Medium,
			Confidence:  severity.ConfidenceHigh,
			Description: "ECB mode encrypts identical plaintext blocks to identical ciphertext blocks and leaks data patterns.",
			Fix:         "Use an authenticated mode such as AES/GCM/NoPadding with a random nonce.",
			Pattern:     regexp.MustCompile(`(?i)(cipher\.getinstance\s*\(\s*"[a-z0-9]+/ecb/|cipher\.getinstance\s*\(\s*"aes"\s*\)|\bmode_ecb\b|\bmodes\.ecb\s*\(|-ecb['"]|\bnewecb\w*\s*\()`),
		},
	},
}

// InsecureRandom finds non-cryptographic generators used near security
// sensitive values.
var InsecureRandom = Rule{
	Title:       "Insecure Random Number Generator",
	Category:    CategoryCryptography,
	Severity:    severity.Medium,
	Confidence:  severity.ConfidenceMedium,
	Description: "A predictable random number generator is used to produce a security-relevant value. Its output can be reproduced by an attacker.",
	Fix:         "Use SecureRandom, crypto/rand, the secrets module or crypto.getRandomValues for tokens, keys, salts and nonces.",
	Pattern:     regexp.MustCompile(`(?i)(\bjava\.util\.random\b|\bnew\s+random\s*\(|\brandom\s*\(\s*\)\s*\.next|\bmath\.random\s*\(|\brandom\.(?:nextint|nextlong|nextbytes|randint|random|choice|randrange|getrandbits)\s*\(|\bmath/rand\b|\brand\.(?:intn|int63|int31|int|read|float64)\s*\(|\bkotlin\.random\.random\b|\brandom\.default\b|\(\s*\d+\s*\.\.\s*\d+\s*\)\.random\s*\(|\barc4random\b|\bsrand\s*\(|\brand\s*\(\s*\))`),
	Exclude:     regexp.MustCompile(`(?i)securerandom|crypto/rand|\bsecrets\.|os\.urandom|getrandomvalues|randombytes|systemrandom`),
	Require: []string{
		"token", "password", "secret", "nonce", "salt", "otp", "session", "auth", "crypt",
		"apikey", "api_key", "private", "iv ", "iv=", "key =", "key=", "uuid", "verification",
	},
	Before: 3,
	After:  3,
}

// KeyGeneration matches key generation and key size parameters.
var KeyGeneration = Rule{
	Title:       "Insufficient Key Size",
	Category:    CategoryCryptography,
	Severity:    severity.Medium,
	Confidence:  severity.ConfidenceMedium,
	Description: "A cryptographic key is generated with a size below current recommendations and may be brute forced.",
	Fix:         "Use at least 2048-bit RSA/DSA/DH keys (3072 recommended) and at least 128-bit symmetric keys.",
	Pattern:     regexp.MustCompile(`(?i)(\bkeypairgenerator\b.*\binitialize\s*\(|\.initialize\s*\(\s*\d|\bkeygenerator\b.*\binit\s*\(|\.init\s*\(\s*\d|\brsa\.generatekey\s*\(|\brsa\.generate\s*\(|\bgenerate_private_key\s*\(|\bkey_?size\s*[=:]|\bgeneratekeypair\s*\(\s*\d|\bmodulusLength\s*:)`),
}

// KeySizeNumber extracts the first integer on a key generation line.
var KeySizeNumber = regexp.MustCompile(`\b(\d{2,5})\b`)

// Key size thresholds and the context tokens that select them.
const (
	MinAsymmetricKeyBits = 2048
	MinSymmetricKeyBits  = 128
)

var (
	AsymmetricKeyTokens = []string{"rsa", "dsa", "diffie", "\"dh\"", "'dh'", "keypairgenerator", "generatekeypair", "moduluslength", "public_exponent"}
	SymmetricKeyTokens  = []string{"aes", "des", "hmac", "keygenerator", "blowfish", "secretkey"}
	EllipticKeyTokens   = []string{"\"ec\"", "'ec'", "ecdsa", "ecdh", "secp", "ed25519", "x25519", "elliptic"}
)

// HardcodedIV finds initialization vectors built from constants.
var HardcodedIV = Rule{
	Title:       "Hardcoded Initialization Vector",
	Category:    CategoryCryptography,
	Severity:    severity.Medium,
	Confidence:  severity.ConfidenceMedium,
	Description: "An initialization vector or nonce is a constant. Reusing an IV with the same key breaks the confidentiality of CBC and the integrity of GCM.",
	Fix:         "Generate a fresh random IV for every encryption with a secure random generator and store it alongside the ciphertext.",
	Pattern:     regexp.MustCompile(`(?i)(\bivparameterspec\s*\(\s*(?:byte\s*\[\s*\]\s*\{|bytearrayof\s*\(|new\s+byte\s*\[\s*\]\s*\{|"[^"]*"\s*\.\s*(?:tobytearray|getbytes)|bytearray\s*\(\s*\d+\s*\)|new\s+byte\s*\[\s*\d+\s*\])|\bgcmparameterspec\s*\(\s*\d+\s*,\s*(?:"|bytearrayof|new\s+byte\s*\[\s*\]\s*\{)|\b(?:iv|nonce)\s*(?::\s*\w+\s*)?=\s*(?:b?["']|bytearrayof\s*\(|\[\]byte\s*\{|\[\]byte\s*\(\s*"|new\s+byte\s*\[\s*\]\s*\{|bytes\s*\(\s*\[|bytearray\s*\(\s*\d+\s*\)|new\s+byte\s*\[\s*\d+\s*\]))`),
	Exclude:     regexp.MustCompile(`(?i)securerandom|random|urandom|getrandomvalues|crypto/rand`),
}
