package rules

import "regexp"

// Compliance keyword sets. Entries are lowercase words or space separated
// phrases matched against the word sequence of a line, where identifiers
// are split on camelCase and underscores (patientName -> "patient name").
// A trailing "s" plural is accepted for every entry.
var (
	PersonalDataKeywords = []string{
		"email", "phone", "phone number", "mobile number", "address", "date of birth", "dob",
		"birthday", "birth date", "first name", "last name", "full name", "surname", "ssn",
		"passport", "national id", "ip address", "location", "latitude", "longitude", "gender",
		"ethnicity", "religion", "personal data", "personal info", "user profile", "gdpr",
		"postcode", "zip code",
	}

	HealthDataKeywords = []string{
		"patient", "diagnosis", "medical", "prescription", "phi", "treatment", "clinical",
		"ehr", "emr", "medication", "blood", "hipaa", "symptom", "doctor", "hospital",
		"heart rate", "health record", "insurance", "allergy", "vaccination", "lab result",
	}

	CardholderKeywords = []string{
		"card number", "cardnumber", "pan", "cvv", "cvc", "cvv2", "credit card", "debit card",
		"expiry", "expiry date", "expiration date", "cardholder", "card holder", "track data",
		"primary account number", "pci",
	}

	SecurityCodeKeywords = []string{"cvv", "cvc", "cvv2", "cvc2", "security code", "card verification"}

	AuthKeywords = []string{
		"login", "logout", "password", "credential", "session", "token", "authenticate",
		"authentication", "authorization", "admin", "sign in", "signin", "account", "oauth",
	}

	ChildKeywords = []string{
		"child", "children", "kid", "kids", "minor", "coppa", "parental", "under13", "under 13",
		"toddler", "preschool", "kids mode", "child mode",
	}

	AgeGateKeywords = []string{
		"age", "birth", "dob", "birthday", "age gate", "is adult", "under13", "year of birth",
		"is minor", "is over13", "age verification", "verify age", "age check",
	}

	ParentalConsentKeywords = []string{
		"parental consent", "parent consent", "parent email", "verify parent", "guardian",
		"parent permission", "parental approval",
	}
)

// Control indicators searched for across the whole file. Lowercase
// substrings of the raw text.
var (
	EncryptionIndicators = []string{
		"encrypt", "cipher", "aes", "keystore", "keychain", "encryptedsharedpreferences",
		"sqlcipher", "crypto", "bcrypt", "argon2", "hash", "tls", "https://", "securestorage",
	}

	DeletionIndicators = []string{
		"delete", "remove", "erase", "purge", "wipe", "forget", "right to be forgotten",
		"clear()", "clearall", "anonymize", "anonymise",
	}

	ConsentIndicators = []string{
		"consent", "opt-in", "optin", "opt_in", "agree", "accept terms", "acceptterms",
		"privacy policy", "privacypolicy", "gdpr",
	}

	AuditIndicators = []string{
		"audit", "accesslog", "access_log", "logaccess", "log_access", "trail", "recordaccess",
		"record_access",
	}
)

// Regexes shared by the compliance scanners.
var (
	// Writes to persistent storage.
	PersistCall = regexp.MustCompile(`(?i)(\bput(?:string|int|long)\s*\(|\bsharedpreferences\b|\blocalstorage\.setitem\s*\(|\buserdefaults\b|\bINSERT\s+INTO\b|\.save\w*\s*\(|\.persist\s*\(|\.insert\w*\s*\(|\.store\s*\(|\.write\w*\s*\(|\bfileoutputstream\b|\bfilewriter\b|\bdatastore\b|\.setitem\s*\(|\.adddocument\s*\(|\bdao\.)`)

	// Reads from persistent storage.
	QueryCall = regexp.MustCompile(`(?i)(\bSELECT\s.+?\sFROM\b|\.query\w*\s*\(|\.find\w*\s*\(|\.get(?:document|record)\w*\s*\(|\.load\s*\(|\brawquery\s*\(|\.read\w*\s*\()`)

	// Authentication events (calls and definitions).
	AuthEvent = regexp.MustCompile(`(?i)\b(?:login|logout|signin|sign_in|signout|sign_out|authenticate|verifypassword|verify_password|checkpassword|check_password|checkcredentials|validatecredentials)\w*\s*\(`)

	// Persistent identifiers, analytics and location tracking.
	TrackingCall = regexp.MustCompile(`(?i)(\banalytics\b|\blogevent\s*\(|\btrack\w*\s*\(|\badvertisingid\b|\badvertising_id\b|\bidfa\b|\bgaid\b|\bfirebaseanalytics\b|\bmixpanel\b|\bamplitude\b|\bappsflyer\b|\badjust\.track|\brequestlocationupdates\s*\(|\bgetlastknownlocation\s*\(|\bfusedlocation|\bcllocationmanager\b|\bgetcurrentposition\s*\()`)

	// 13 to 19 digit card numbers with optional single space or dash
	// separators, inside a literal.
	CardNumberLiteral = regexp.MustCompile(`["']((?:\d[ -]?){12,18}\d)["']`)
)
