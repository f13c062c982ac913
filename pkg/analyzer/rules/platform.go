package rules

import (
	"regexp"

	"github.com/exploopio/codeguard/pkg/shared/severity"
)

// WebView holds dangerous WebView settings.
var WebView = Group{
	Name: "webview",
	Rules: []Rule{
		{
			Title:       "JavaScript Enabled in WebView",
			Category:    CategoryWebView,
			Severity:    severity.High,
			Confidence:  severity.ConfidenceMedium,
			Description: "JavaScript is enabled in a WebView. Combined with untrusted content this enables cross-site scripting inside the app.",
			Fix:         "Enable JavaScript only for trusted, HTTPS-served content and never load arbitrary URLs in the same WebView.",
			Pattern:     regexp.MustCompile(`(?i)setjavascriptenabled\s*\(\s*true\s*\)|\bjavascriptenabled\s*=\s*true`),
		},
		{
			Title:       "JavaScript Interface Exposed",
			Category:    CategoryWebView,
			Severity:    severity.High,
			Confidence:  severity.ConfidenceHigh,
			Description: "A native object is exposed to WebView JavaScript. Any script running in the page can call its public methods.",
			Fix:         "Expose only minimal, @JavascriptInterface-annotated methods and load exclusively trusted content in that WebView.",
			Pattern:     regexp.MustCompile(`(?i)\baddjavascriptinterface\s*\(`),
		},
		{
			Title:       "WebView File Access Enabled",
			Category:    CategoryWebView,
			Severity:    severity.High,
			Confidence:  severity.ConfidenceHigh,
			Description: "The WebView may read local files through file:// URLs.",
			Fix:         "Call setAllowFileAccess(false) unless local file loading is strictly required.",
			Pattern:     regexp.MustCompile(`(?i)setallowfileaccess\s*\(\s*true\s*\)|\ballowfileaccess\s*=\s*true`),
		},
		{
			Title:       "Universal File Access in WebView",
			Category:    CategoryWebView,
			Severity:    severity.High,
			Confidence:  severity.ConfidenceHigh,
			Description: "Scripts loaded from file:// URLs may access content from any origin, which allows local files to be exfiltrated.",
			Fix:         "Keep setAllowUniversalAccessFromFileURLs and setAllowFileAccessFromFileURLs disabled.",
			Pattern:     regexp.MustCompile(`(?i)setallow(?:universalaccess|fileaccess)fromfileurls\s*\(\s*true\s*\)|\ballow(?:universalaccess|fileaccess)fromfileurls\s*=\s*true`),
		},
		{
			Title:       "WebView Debugging Enabled",
			Category:    CategoryWebView,
			Severity:    severity.High,
			Confidence:  severity.ConfidenceHigh,
			Description: "Remote WebView debugging is enabled, letting anyone with USB access inspect and script page content.",
			Fix:         "Enable WebView debugging only in debug builds, guarded by BuildConfig.DEBUG.",
			Pattern:     regexp.MustCompile(`(?i)setwebcontentsdebuggingenabled\s*\(\s*true\s*\)`),
			Suppress:    []string{"buildconfig.debug", "isdebug"},
			Before:      2,
		},
		{
			Title:       "Mixed Content Allowed",
			Category:    CategoryWebView,
			Severity:    severity.High,
			Confidence:  severity.ConfidenceHigh,
			Description: "The WebView loads HTTP resources into HTTPS pages, undoing the protection of TLS.",
			Fix:         "Use MIXED_CONTENT_NEVER_ALLOW.",
			Pattern:     regexp.MustCompile(`(?i)mixed_content_always_allow|mixed_content_compatibility_mode`),
		},
	},
}

// Debuggable finds release configurations with debugging switched on.
var Debuggable = Rule{
	Title:       "Debuggable Build Enabled",
	Category:    CategoryConfiguration,
	Severity:    severity.High,
	Confidence:  severity.ConfidenceHigh,
	Description: "The application is marked debuggable. A debugger can attach to it and read memory, keys and tokens.",
	Fix:         "Remove android:debuggable from the manifest and let the build system set it for debug variants only.",
	Pattern:     regexp.MustCompile(`(?i)android:debuggable\s*=\s*"true"|\bisdebuggable\s*=\s*true|\bdebuggable\s*(?:=\s*)?true\b|\bdebug\s*=\s*true\b.*\b(?:app\.run|flask|django|settings)|\bapp\.run\([^)]*debug\s*=\s*true`),
}

// Components holds exported Android component rules.
var Components = Group{
	Name: "components",
	Rules: []Rule{
		{
			Title:       "Exported Component Without Permission",
			Category:    CategoryPlatform,
			Severity:    severity.High,
			Confidence:  severity.ConfidenceMedium,
			Description: "An activity, service, receiver or provider is exported without a protecting permission, so any installed app can invoke it.",
			Fix:         "Set android:exported=\"false\" or protect the component with a signature-level android:permission.",
			Pattern:     regexp.MustCompile(`(?i)android:exported\s*=\s*"true"`),
			Suppress:    []string{"android:permission", "android.intent.category.launcher", "android.intent.action.main"},
			Before:      3,
			After:       4,
		},
		{
			Title:       "Unprotected Broadcast Receiver",
			Category:    CategoryPlatform,
			Severity:    severity.High,
			Confidence:  severity.ConfidenceMedium,
			Description: "A broadcast receiver is registered without a permission or export flag, so other apps can send it crafted intents.",
			Fix:         "Register with RECEIVER_NOT_EXPORTED or require a signature permission when registering the receiver.",
			Pattern:     regexp.MustCompile(`(?i)\bregisterreceiver\s*\(\s*[^,()]+,\s*[^,()]+(?:\([^)]*\))?\s*\)`),
			Suppress:    []string{"receiver_not_exported", "permission", "localbroadcastmanager"},
		},
		{
			Title:       "Mutable PendingIntent",
			Category:    CategoryPlatform,
			Severity:    severity.High,
			Confidence:  severity.ConfidenceMedium,
			Description: "A PendingIntent is created without FLAG_IMMUTABLE. The receiving app can rewrite the wrapped intent and act with this app's identity.",
			Fix:         "Pass PendingIntent.FLAG_IMMUTABLE unless the intent must be mutable, and make the base intent explicit.",
			Pattern:     regexp.MustCompile(`(?i)\bpendingintent\.get(?:activity|activities|service|broadcast|foregroundservice)\s*\(`),
			Suppress:    []string{"flag_immutable"},
			After:       3,
		},
	},
}

// Storage holds data-at-rest rules gated on sensitive keywords.
var Storage = Group{
	Name: "storage",
	Rules: []Rule{
		{
			Title:         "Sensitive Data in Local Storage",
			Category:      CategoryStorage,
			Severity:      severity.Medium,
			Confidence:    severity.ConfidenceMedium,
			Description:   "Sensitive data is written to unencrypted key-value storage (SharedPreferences, UserDefaults, localStorage), readable on rooted devices and in backups.",
			Fix:           "Store secrets in EncryptedSharedPreferences, the Android Keystore, the iOS Keychain or an equivalent encrypted store.",
			Pattern:       regexp.MustCompile(`(?i)(\bputstring\s*\(|\bputint\s*\(|\bgetsharedpreferences\s*\(|\bsharedpreferences\b.*\bedit\b|\blocalstorage\.setitem\s*\(|\bsessionstorage\.setitem\s*\(|\buserdefaults\b.*\bset\w*\s*\(|\bnsuserdefaults\b|\basyncstorage\.setitem\s*\(|\bpreferences\[|\bprefs\.put\w*\s*\(|\bedit\s*\{)`),
			Require:       SensitiveKeywords,
			RequireOnLine: true,
			Suppress:      []string{"encryptedsharedpreferences", "encrypt", "keystore", "keychain", "securestorage", "cipher"},
			Before:        3,
			After:         3,
		},
		{
			Title:       "World-Accessible File Permissions",
			Category:    CategoryStorage,
			Severity:    severity.Medium,
			Confidence:  severity.ConfidenceHigh,
			Description: "A file is created readable or writable by every app or user on the device.",
			Fix:         "Use MODE_PRIVATE or 0600-style permissions and share data through a content provider with explicit grants.",
			Pattern:     regexp.MustCompile(`(?i)mode_world_(?:readable|writeable|writable)|\bchmod\s*\(?[^)]*\b0?o?(?:777|666)\b|\bsetreadable\s*\(\s*true\s*,\s*false\s*\)|\bsetwritable\s*\(\s*true\s*,\s*false\s*\)|\bos\.(?:chmod|writefile|openfile|mkdir(?:all)?)\s*\([^)]*\b0o?(?:777|666)\b`),
		},
		{
			Title:       "Sensitive Data on External Storage",
			Category:    CategoryStorage,
			Severity:    severity.Medium,
			Confidence:  severity.ConfidenceMedium,
			Description: "Sensitive data is written to external or shared storage that every app with storage permission can read.",
			Fix:         "Keep sensitive files in internal app storage (getFilesDir) and encrypt them with a Keystore-backed key.",
			Pattern:     regexp.MustCompile(`(?i)(getexternalstoragedirectory|getexternalfilesdir|getexternalstoragepublicdirectory|getexternalcachedir|environment\.directory_|/sdcard/|/storage/emulated/)`),
			Require:     SensitiveKeywords,
			Before:      3,
			After:       3,
		},
	},
}

// Clipboard finds sensitive values copied to the system clipboard.
var Clipboard = Rule{
	Title:       "Sensitive Data Copied to Clipboard",
	Category:    CategoryDataLeakage,
	Severity:    severity.Medium,
	Confidence:  severity.ConfidenceMedium,
	Description: "Sensitive data is placed on the system clipboard, where any foreground app and keyboard can read it.",
	Fix:         "Avoid copying secrets to the clipboard. If unavoidable, mark the clip as sensitive and clear it after a short timeout.",
	Pattern:     regexp.MustCompile(`(?i)(setprimaryclip\s*\(|clipdata\.newplaintext\s*\(|\buipasteboard\b.*\bstring\s*=|\bclipboard\.setdata\s*\(|navigator\.clipboard\.writetext\s*\(|\bpyperclip\.copy\s*\(|\bsetclipboardtext\s*\()`),
	Require:     SensitiveKeywords,
	Before:      2,
	After:       0,
}

// DeepLink finds deep-link data consumed without validation.
var DeepLink = Rule{
	Title:       "Unvalidated Deep Link",
	Category:    CategoryInputValidation,
	Severity:    severity.Medium,
	Confidence:  severity.ConfidenceLow,
	Description: "Data from a deep link URI is used without validating the scheme, host or parameters. Any app or web page can trigger the link.",
	Fix:         "Validate the URI scheme and host and check every query parameter against expected values before acting on it.",
	Pattern:     regexp.MustCompile(`(?i)(\bintent\.data\b|\bintent\.getdata\s*\(\)|\bgetintent\s*\(\)\.getdata\s*\(\)|\bgetqueryparameter\s*\(|\.data\?\.(?:getqueryparameter|path|host)|\burl\.searchparams\.get\s*\(|\bopenurl\b.*\burl\.query)`),
	Suppress:    ValidationTokens,
	Before:      0,
	After:       3,
}

// ExtraData finds intent and bundle extras read without validation.
var ExtraData = Rule{
	Title:       "Unvalidated Intent Data",
	Category:    CategoryInputValidation,
	Severity:    severity.Low,
	Confidence:  severity.ConfidenceLow,
	Description: "Data is read from an incoming intent or bundle without visible validation. Other apps control these values.",
	Fix:         "Treat intent extras as untrusted input. Check for null, validate type and range, and reject unexpected values.",
	Pattern:     regexp.MustCompile(`(?i)(\bget(?:string|int|long|boolean|bundle|parcelable|serializable|charsequence)extra\s*\(|\bgetextras\s*\(\)|\bintent\.extras\b|\barguments\?\.get\w*\s*\(|\bbundle\.get\w*\s*\()`),
	Suppress:    append([]string{"?:", "?.let", "!= null", "== null", "is null", "takeif", "requirenotnull", "orempty"}, ValidationTokens...),
	Before:      0,
	After:       3,
}

// Configuration holds build and manifest flags.
var Configuration = Group{
	Name: "configuration",
	Rules: []Rule{
		{
			Title:       "Code Obfuscation Disabled",
			Category:    CategoryConfiguration,
			Severity:    severity.Low,
			Confidence:  severity.ConfidenceHigh,
			Description: "Release code shrinking and obfuscation is disabled, making reverse engineering trivial.",
			Fix:         "Enable minifyEnabled (R8/ProGuard) for release builds.",
			Pattern:     regexp.MustCompile(`(?i)\b(?:is)?minifyenabled\s*(?:=\s*)?false\b|-dontobfuscate\b`),
		},
		{
			Title:       "Backup Enabled",
			Category:    CategoryConfiguration,
			Severity:    severity.Low,
			Confidence:  severity.ConfidenceHigh,
			Description: "Application data may be extracted through device backups.",
			Fix:         "Set android:allowBackup=\"false\" or define backup rules that exclude sensitive files.",
			Pattern:     regexp.MustCompile(`(?i)android:allowbackup\s*=\s*"true"|\ballowbackup\s*=\s*true\b`),
		},
	},
}

// Reflection finds runtime reflection.
var Reflection = Rule{
	Title:       "Reflection Usage",
	Category:    CategoryCodeQuality,
	Severity:    severity.Low,
	Confidence:  severity.ConfidenceLow,
	Description: "Reflection bypasses compile-time checks and access modifiers. When the target name is influenced by input it can reach unintended code.",
	Fix:         "Prefer direct calls or an explicit mapping of allowed targets. Never build reflective names from external input.",
	Pattern:     regexp.MustCompile(`(?i)(\bclass\.forname\s*\(|\.getdeclaredmethod\s*\(|\.getmethod\s*\(|\.setaccessible\s*\(\s*true\s*\)|\.getdeclaredfield\s*\(|\.getdeclaredconstructor\s*\(|\breflect\.valueof\s*\(|\bimportlib\.import_module\s*\(|\b__import__\s*\(|\bgetattr\s*\()`),
}

// DynamicLoading finds code loaded at runtime. The detector escalates the
// severity when the loaded path is built dynamically.
var DynamicLoading = Rule{
	Title:       "Dynamic Code Loading",
	Category:    CategoryPlatform,
	Severity:    severity.Low,
	Confidence:  severity.ConfidenceMedium,
	Description: "Code is loaded at runtime from a file or library path. Loaded code runs with the app's privileges.",
	Fix:         "Load code only from the app's private, read-only directories and verify its signature before loading.",
	Pattern:     regexp.MustCompile(`(?i)(\bdexclassloader\b|\bpathclassloader\b|\binmemorydexclassloader\b|\burlclassloader\b|\bsystem\.loadlibrary\s*\(|\bsystem\.load\s*\(|\bruntime\.getruntime\(\)\.load\s*\(|\bdlopen\s*\(|\bplugin\.open\s*\(|\bctypes\.cdll\.loadlibrary\s*\(|\bassembly\.loadfrom\s*\()`),
}

// DynamicPathTokens indicate the loaded path is not a constant.
var DynamicPathTokens = []string{"getexternal", "download", "/sdcard", "cachedir", "getcachedir", "url", "http"}
