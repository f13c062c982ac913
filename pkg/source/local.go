package source

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/exploopio/codeguard/pkg/errors"
)

// Stdin is the ref that makes Local read standard input.
const Stdin = "-"

// Local reads files from disk, or standard input for the ref "-".
type Local struct {
	base
	stdin io.Reader
}

// NewLocal creates a local fetcher. A nil stdin means os.Stdin.
func NewLocal(opts Options, stdin io.Reader) *Local {
	if stdin == nil {
		stdin = os.Stdin
	}
	return &Local{base: newBase(ProviderLocal, opts), stdin: stdin}
}

// Name returns "local".
func (l *Local) Name() string {
	return ProviderLocal
}

// Fetch reads the file at path ref.
func (l *Local) Fetch(ctx context.Context, ref string) (doc *Document, err error) {
	const op = "source.Local.Fetch"
	defer func() { l.record(err) }()

	if err := ctx.Err(); err != nil {
		return nil, errors.E(errors.KindCanceled, op, err)
	}

	if ref == Stdin {
		data, err := io.ReadAll(io.LimitReader(l.stdin, int64(l.opts.MaxBytes)+1))
		if err != nil {
			return nil, errors.E(errors.KindInvalidInput, op, "read stdin", err)
		}
		if err := l.checkSize(op, "stdin", len(data)); err != nil {
			return nil, err
		}
		return &Document{Path: "stdin", Content: string(data), Provider: ProviderLocal, Ref: ref}, nil
	}

	info, err := os.Stat(ref)
	switch {
	case os.IsNotExist(err):
		return nil, errors.E(errors.KindNotFound, op, ref, errors.ErrNotFound)
	case err != nil:
		return nil, errors.E(errors.KindInvalidInput, op, err)
	case info.IsDir():
		return nil, errors.E(errors.KindInvalidInput, op, fmt.Sprintf("%s is a directory", ref))
	}
	if err := l.checkSize(op, ref, int(info.Size())); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, errors.E(errors.KindInvalidInput, op, err)
	}
	l.opts.Logger.Debug("read %s (%d bytes)", ref, len(data))
	return &Document{
		Path:     ref,
		Language: DetectLanguage(ref),
		Content:  string(data),
		Provider: ProviderLocal,
		Ref:      ref,
	}, nil
}
