// Package source loads the code to analyze from the local file system or
// from a GitHub or GitLab repository.
package source

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/exploopio/codeguard/pkg/core"
	"github.com/exploopio/codeguard/pkg/errors"
	"github.com/exploopio/codeguard/pkg/metrics"
	"github.com/exploopio/codeguard/pkg/retry"
)

// Provider names, also used as metric labels.
const (
	ProviderLocal  = "local"
	ProviderGitHub = "github"
	ProviderGitLab = "gitlab"
)

// DefaultMaxBytes is the largest file a fetcher accepts by default.
const DefaultMaxBytes = 2 << 20

// Document is a fetched source file.
type Document struct {
	// Path of the file inside its repository, or on disk
	Path string `json:"path"`

	// Language guessed from the file extension, empty when unknown
	Language string `json:"language,omitempty"`

	Content string `json:"-"`

	// Provider that served the file
	Provider string `json:"provider"`

	// Reference the document was fetched with, e.g. "owner/repo/a.kt@main"
	Ref string `json:"ref"`
}

// Label names the document in history records and reports: the path for
// local files, "provider:ref" for remote ones.
func (d *Document) Label() string {
	if d.Provider == ProviderLocal || d.Provider == "" {
		return d.Path
	}
	return d.Provider + ":" + d.Ref
}

// Fetcher loads one document.
type Fetcher interface {
	// Name returns the provider name.
	Name() string

	// Fetch loads the document identified by ref. The ref format is provider
	// specific.
	Fetch(ctx context.Context, ref string) (*Document, error)
}

// Options configures the remote fetchers.
type Options struct {
	// Token authenticates API calls. Public repositories need none.
	Token string

	// BaseURL points at a self-hosted instance. Empty uses the public service.
	BaseURL string

	// RateLimit caps requests per hour. 0 disables limiting.
	RateLimit int

	// Burst is the number of requests allowed at once. Defaults to 10.
	Burst int

	// Attempts is the number of tries per fetch on transient failures.
	// 0 uses retry.DefaultAttempts, a negative value disables retries.
	Attempts int

	// Backoff between attempts. Defaults to retry.DefaultBackoffConfig().
	Backoff *retry.BackoffConfig

	// Timeout bounds each request. Defaults to 30s.
	Timeout time.Duration

	// MaxBytes rejects larger files. Defaults to DefaultMaxBytes.
	MaxBytes int

	Logger  core.Logger
	Metrics metrics.Collector
}

func (o *Options) defaults() {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	if o.Burst <= 0 {
		o.Burst = 10
	}
	if o.Logger == nil {
		o.Logger = core.GetDefaultLogger()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.GetDefaultCollector()
	}
}

// limiter converts a requests-per-hour budget into a token bucket. It
// returns nil when limiting is disabled.
func limiter(perHour, burst int) *rate.Limiter {
	if perHour <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(perHour)/3600.0), burst)
}

// base carries what every remote fetcher shares.
type base struct {
	provider string
	opts     Options
	limiter  *rate.Limiter
}

func newBase(provider string, opts Options) base {
	opts.defaults()
	return base{provider: provider, opts: opts, limiter: limiter(opts.RateLimit, opts.Burst)}
}

func (b *base) wait(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return errors.E(errors.KindCanceled, op, err)
	}
	if b.limiter == nil {
		return nil
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return errors.E(errors.KindRateLimit, op, "rate limit wait", err)
	}
	return nil
}

// call runs one API request under the rate limiter, retrying transient
// failures.
func (b *base) call(ctx context.Context, op string, fn func(context.Context) error) error {
	policy := retry.Policy{Attempts: b.opts.Attempts, Backoff: b.opts.Backoff, Logger: b.opts.Logger}
	return retry.Do(ctx, op, policy, func(ctx context.Context) error {
		if err := b.wait(ctx, op); err != nil {
			return err
		}
		return fn(ctx)
	})
}

func (b *base) record(err error) {
	status := "ok"
	if err != nil {
		status = errors.GetKind(err).String()
	}
	b.opts.Metrics.CounterInc(metrics.RemoteFetchesTotal.Name, "provider", b.provider, "status", status)
}

func (b *base) checkSize(op, path string, n int) error {
	if n > b.opts.MaxBytes {
		return errors.E(errors.KindInvalidInput, op,
			fmt.Sprintf("%s is %d bytes, limit %d", path, n, b.opts.MaxBytes), errors.ErrInputTooLarge)
	}
	return nil
}

// splitRef separates a trailing "@ref" from s.
func splitRef(s string) (string, string) {
	if i := strings.LastIndex(s, "@"); i > 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

var languages = map[string]string{
	".kt":    "Kotlin",
	".kts":   "Kotlin",
	".java":  "Java",
	".swift": "Swift",
	".m":     "Objective-C",
	".dart":  "Dart",
	".js":    "JavaScript",
	".jsx":   "JavaScript",
	".mjs":   "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".py":    "Python",
	".go":    "Go",
	".rb":    "Ruby",
	".php":   "PHP",
	".cs":    "C#",
	".c":     "C",
	".h":     "C",
	".cpp":   "C++",
	".cc":    "C++",
	".rs":    "Rust",
	".scala": "Scala",
}

// DetectLanguage guesses the language label of path from its extension.
func DetectLanguage(path string) string {
	return languages[strings.ToLower(filepath.Ext(path))]
}

// remoteError classifies a failed API call. resp is nil when the request
// never got an answer.
func remoteError(ctx context.Context, provider, op string, resp *http.Response, err error) error {
	if resp == nil {
		switch {
		case ctx.Err() == context.DeadlineExceeded:
			return errors.E(errors.KindTimeout, op, err)
		case ctx.Err() != nil:
			return errors.E(errors.KindCanceled, op, err)
		default:
			return errors.E(errors.KindNetwork, op, err)
		}
	}
	re := &errors.RemoteError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Message:    err.Error(),
		RequestID:  firstHeader(resp.Header, "X-GitHub-Request-Id", "X-Request-Id"),
	}
	return errors.E(re.Kind(), op, re)
}

func firstHeader(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return ""
}
