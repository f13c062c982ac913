// Package watch rescans source files when they change on disk.
//
// Files are watched through their parent directory so that editors which
// save by writing a temp file and renaming it are still seen. Bursts of
// events are debounced and every changed file is scanned once per burst.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/exploopio/codeguard/pkg/analyzer"
	"github.com/exploopio/codeguard/pkg/core"
	"github.com/exploopio/codeguard/pkg/errors"
	"github.com/exploopio/codeguard/pkg/history"
	"github.com/exploopio/codeguard/pkg/model"
	"github.com/exploopio/codeguard/pkg/source"
)

// DefaultDebounce is the quiet period before a rescan.
const DefaultDebounce = 300 * time.Millisecond

// Mode selects the analyses run on each change.
type Mode int

const (
	ModeSecurity Mode = 1 << iota
	ModeHealth
	ModeBoth = ModeSecurity | ModeHealth
)

// Event is the outcome of rescanning one file.
type Event struct {
	Path     string
	Language string
	Security *model.ScanResult
	Health   *model.CodeHealthResult

	// IDs of the history records written for this event
	SavedIDs []string

	// Err is set when the file could not be read or analyzed.
	Err error
}

// Config configures a Watcher.
type Config struct {
	// Paths are files or directories. Directories are watched recursively
	// and only files with a known language extension are scanned.
	Paths []string

	Debounce time.Duration
	Mode     Mode

	// Language overrides extension-based detection.
	Language string

	// Initial scans every watched file once before waiting for changes.
	Initial bool

	Service *analyzer.Service
	Reader  source.Fetcher

	// History, when set, stores every result.
	History *history.Store

	Logger core.Logger
}

// Watcher rescans files on change.
type Watcher struct {
	cfg     Config
	fsw     *fsnotify.Watcher
	files   map[string]bool // explicitly named files
	dirs    map[string]bool // recursively watched roots
	pending map[string]struct{}
}

// New validates the paths and starts watching them. Close releases the
// underlying watcher.
func New(cfg Config) (*Watcher, error) {
	const op = "watch.New"

	if len(cfg.Paths) == 0 {
		return nil, errors.E(errors.KindInvalidInput, op, "no paths to watch")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Mode == 0 {
		cfg.Mode = ModeSecurity
	}
	if cfg.Service == nil {
		cfg.Service = analyzer.NewService()
	}
	if cfg.Logger == nil {
		cfg.Logger = core.GetDefaultLogger()
	}
	if cfg.Reader == nil {
		cfg.Reader = source.NewLocal(source.Options{Logger: cfg.Logger}, nil)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.E(errors.KindInternal, op, "create watcher", err)
	}
	w := &Watcher{
		cfg:     cfg,
		fsw:     fsw,
		files:   make(map[string]bool),
		dirs:    make(map[string]bool),
		pending: make(map[string]struct{}),
	}
	for _, p := range cfg.Paths {
		if err := w.add(p); err != nil {
			_ = fsw.Close()
			return nil, errors.E(errors.GetKind(err), op, p, err)
		}
	}
	return w, nil
}

func (w *Watcher) add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.E(errors.KindInvalidInput, err)
	}
	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return errors.E(errors.KindNotFound, errors.ErrNotFound)
	}
	if err != nil {
		return errors.E(errors.KindInvalidInput, err)
	}

	if !info.IsDir() {
		w.files[abs] = true
		return w.fsw.Add(filepath.Dir(abs))
	}

	w.dirs[abs] = true
	return filepath.WalkDir(abs, func(p string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != abs && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

func skipDir(name string) bool {
	switch name {
	case "node_modules", "vendor", "build", "Pods", "DerivedData":
		return true
	}
	return strings.HasPrefix(name, ".")
}

// wants reports whether a change to path should trigger a scan.
func (w *Watcher) wants(path string) bool {
	if w.files[path] {
		return true
	}
	if w.cfg.Language == "" && source.DetectLanguage(path) == "" {
		return false
	}
	for root := range w.dirs {
		if strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Watched returns the files an initial scan covers, sorted.
func (w *Watcher) Watched() []string {
	seen := make(map[string]bool)
	for f := range w.files {
		seen[f] = true
	}
	for root := range w.dirs {
		_ = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if p != root && skipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if w.wants(p) {
				seen[p] = true
			}
			return nil
		})
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Run delivers one Event per rescanned file to fn until ctx is done.
// Scans run on the calling goroutine, so fn is never called concurrently.
func (w *Watcher) Run(ctx context.Context, fn func(Event)) error {
	if w.cfg.Initial {
		for _, p := range w.Watched() {
			fn(w.scan(ctx, p))
		}
	}

	timer := time.NewTimer(w.cfg.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
			if len(w.pending) > 0 {
				timer.Reset(w.cfg.Debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.cfg.Logger.Warn("watch error: %v", err)

		case <-timer.C:
			paths := make([]string, 0, len(w.pending))
			for p := range w.pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			w.pending = make(map[string]struct{})

			for _, p := range paths {
				if _, err := os.Stat(p); os.IsNotExist(err) {
					w.cfg.Logger.Debug("%s removed, skipping", p)
					continue
				}
				fn(w.scan(ctx, p))
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)

	// New directories under a watched root are watched too.
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() && !skipDir(info.Name()) {
			for root := range w.dirs {
				if strings.HasPrefix(path, root+string(filepath.Separator)) {
					if err := w.fsw.Add(path); err != nil {
						w.cfg.Logger.Warn("watch %s: %v", path, err)
					}
					break
				}
			}
			return
		}
	}

	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return
	}
	if !w.wants(path) {
		return
	}
	w.cfg.Logger.Debug("change: %s %s", ev.Op, path)
	w.pending[path] = struct{}{}
}

func (w *Watcher) scan(ctx context.Context, path string) Event {
	ev := Event{Path: path}

	doc, err := w.cfg.Reader.Fetch(ctx, path)
	if err != nil {
		ev.Err = err
		return ev
	}
	ev.Language = doc.Language
	if w.cfg.Language != "" {
		ev.Language = w.cfg.Language
	}

	if w.cfg.Mode&ModeSecurity != 0 {
		res, err := w.cfg.Service.ScanSecurity(ctx, doc.Content, ev.Language)
		if err != nil {
			ev.Err = err
			return ev
		}
		ev.Security = res
		w.save(ctx, &ev, func() (*history.Record, error) { return history.NewSecurityRecord(res, path, doc.Content) })
	}
	if w.cfg.Mode&ModeHealth != 0 {
		res, err := w.cfg.Service.AnalyzeHealth(ctx, doc.Content, ev.Language)
		if err != nil {
			ev.Err = err
			return ev
		}
		ev.Health = res
		w.save(ctx, &ev, func() (*history.Record, error) { return history.NewHealthRecord(res, path, doc.Content) })
	}
	return ev
}

func (w *Watcher) save(ctx context.Context, ev *Event, build func() (*history.Record, error)) {
	if w.cfg.History == nil {
		return
	}
	rec, err := build()
	if err == nil {
		err = w.cfg.History.Save(ctx, rec)
	}
	if err != nil {
		w.cfg.Logger.Warn("save %s: %v", ev.Path, err)
		return
	}
	ev.SavedIDs = append(ev.SavedIDs, rec.ID)
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
