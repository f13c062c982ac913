package rules

import "regexp"

// Code-smell and idiom tables used by the code health analyzer.
var (
	LoopStart = regexp.MustCompile(`^\s*(?:for|while|do|foreach|loop)\b|\.forEach(?:Indexed)?\s*[{(]|\brepeat\s*\(\s*\w+\s*\)\s*\{|\.each\s*(?:do|\{)|\.map\s*\{`)

	StringConcatInLoop = regexp.MustCompile(`\w\s*\+=\s*["'$]|\w\s*\+=\s*\w+\.to[Ss]tring\(|\b(\w+)\s*=\s*(\w+)\s*\+\s*["']`)

	AllocationInLoop = regexp.MustCompile(`\bnew\s+[A-Z]\w*\s*\(|\b(?:ArrayList|HashMap|HashSet|LinkedList|StringBuilder|SimpleDateFormat|Gson|ObjectMapper|DecimalFormat)\s*\(|\b(?:mutableListOf|mutableMapOf|arrayListOf|hashMapOf)\s*\(`)

	RegexCompile = regexp.MustCompile(`\bRegex\s*\(|\bPattern\.compile\s*\(|\bre\.compile\s*\(|\bregexp\.(?:MustCompile|Compile)\s*\(|\bnew\s+RegExp\s*\(|\.toRegex\s*\(`)

	BlockingCall = regexp.MustCompile(`\bThread\.sleep\s*\(|\brunBlocking\s*[{(]|\btime\.sleep\s*\(|\.get\(\s*\)\s*;?\s*$|\.join\(\s*\)\s*;?\s*$|\bexecute\(\)\.body\b`)

	GlobalScopeLaunch = regexp.MustCompile(`\bGlobalScope\.(?:launch|async)\b`)

	ConcurrencyLaunch = regexp.MustCompile(`\b(?:launch|async)\s*(?:\([^)]*\))?\s*\{|\bThread\s*[{(]|\bthread\s*(?:\([^)]*\))?\s*\{|\.(?:submit|execute)\s*\{|\.(?:submit|execute)\s*\(\s*\(|\bgo\s+func\b|\bgo\s+\w+\(|\bthreading\.Thread\s*\(|\bDispatchQueue\.\w+\.async\b|\bCompletableFuture\.\w+Async\s*\(|\bnew\s+Thread\s*\(`)

	MutableDecl = regexp.MustCompile(`^\s*(?:(?:private|internal|public|protected|static|@Volatile)\s+)*var\s+(\w+)`)

	ResourceOpen = regexp.MustCompile(`\b(?:FileInputStream|FileOutputStream|FileReader|FileWriter|BufferedReader|BufferedWriter|RandomAccessFile|Socket|ServerSocket|ZipFile)\s*\(|\.openConnection\s*\(|\bDriverManager\.getConnection\s*\(|\bopenFileInput\s*\(|\bopenFileOutput\s*\(|\brawQuery\s*\(|^\s*\w+\s*=\s*open\s*\(|\bos\.Open(?:File)?\s*\(`)

	MagicNumber = regexp.MustCompile(`(?:^|[^\w.])(\d{3,}|\d+\.\d+)(?:[^\w.]|$)`)

	SingleLetterDecl = regexp.MustCompile(`\b(?:val|var|let|const|int|long|double|float|String)\s+([a-zA-Z])\s*[=:;]`)

	ConstantDecl = regexp.MustCompile(`\bconst\s+val\b|\bstatic\s+final\b|\bfinal\s+static\b|^\s*const\s+\w+\s*=|^\s*[A-Z][A-Z0-9_]{2,}\s*(?::\s*\w+\s*)?=|\bconst\s*\(`)
)

// Indicators that a block handles shared state safely. Lowercase.
var SyncMarkers = []string{
	"synchronized", "mutex", "lock", "atomic", "volatile", "concurrenthashmap", "threadlocal",
	"withlock", "sync.", "@mainactor", "stateflow", "channel",
}

// Indicators that a resource is released. Lowercase.
var ResourceRelease = []string{".use {", ".use{", "use(", "try (", "try(", "with ", "close()", "defer ", "using ("}

// Numbers that are not considered magic.
var AllowedNumbers = map[string]bool{
	"100": true, "1000": true, "1024": true, "0.0": true, "1.0": true, "0.5": true,
	"2.0": true, "200": true, "404": true, "500": true, "60": true, "24": true, "360": true,
	"255": true, "256": true, "3600": true, "1000L": true, "0.1": true,
}

// Best-practice indicators, evaluated by the best practices detector in this
// order.
var (
	DataClass          = regexp.MustCompile(`\bdata\s+class\b|@dataclass\b|\brecord\s+\w+\s*\(`)
	SealedType         = regexp.MustCompile(`\bsealed\s+(?:class|interface)\b`)
	WhenExpression     = regexp.MustCompile(`\bwhen\s*(?:\([^)]*\))?\s*\{|\bswitch\s*\w*\s*\{|\bmatch\s+\w+\s*:`)
	PrivateMember      = regexp.MustCompile(`\bprivate\b`)
	StructuredScope    = regexp.MustCompile(`\b(?:viewModelScope|lifecycleScope|coroutineScope|supervisorScope|withContext|errgroup\.|context\.WithCancel|context\.WithTimeout|TaskGroup|asyncio\.gather)\b`)
	SafeCall           = regexp.MustCompile(`\?\.|\?:`)
	ResourceManagement = regexp.MustCompile(`\.use\s*\{|\btry\s*\(|\bwith\s+open\s*\(|\bdefer\s+\w+\.Close\(\)|\busing\s*\(`)
	ParameterizedQuery = regexp.MustCompile(`(?i)\bpreparestatement\s*\(|\bselectionargs\b|=\s*\?|\$\d\b|\bbind(?:string|long|param)\s*\(|:\w+\s*[,)]`)
	DocComment         = regexp.MustCompile(`^\s*(?:/\*\*|"""|'''|///)`)
	ImmutableDecl      = regexp.MustCompile(`\b(?:val|const|final)\s+\w`)
	MutableDeclAny     = regexp.MustCompile(`\b(?:var|let)\s+\w`)
)
