package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/exploopio/codeguard/pkg/errors"
)

// GitLabRef identifies a file in a GitLab project.
type GitLabRef struct {
	// Numeric id or full path ("group/subgroup/project")
	Project string
	Path    string
	Ref     string
}

// ParseGitLabRef parses "project:path/to/file[@ref]". The project is a
// numeric id or a namespaced path, which is why a colon separates it from
// the file path.
func ParseGitLabRef(s string) (GitLabRef, error) {
	rest, ref := splitRef(s)
	project, path, ok := strings.Cut(rest, ":")
	path = strings.TrimPrefix(path, "/")
	if !ok || project == "" || path == "" {
		return GitLabRef{}, errors.E(errors.KindInvalidInput, "source.ParseGitLabRef",
			fmt.Sprintf("invalid GitLab reference %q, want project:path[@ref]", s))
	}
	return GitLabRef{Project: project, Path: path, Ref: ref}, nil
}

func (r GitLabRef) String() string {
	s := r.Project + ":" + r.Path
	if r.Ref != "" {
		s += "@" + r.Ref
	}
	return s
}

// GitLab fetches raw files through the GitLab repository files API.
type GitLab struct {
	base
	client *gitlab.Client
}

// NewGitLab creates a GitLab fetcher.
func NewGitLab(opts Options) (*GitLab, error) {
	b := newBase(ProviderGitLab, opts)

	// Retries happen in base.call, not in the client.
	clientOpts := []gitlab.ClientOptionFunc{
		gitlab.WithHTTPClient(&http.Client{Timeout: b.opts.Timeout}),
		gitlab.WithCustomRetryMax(0),
	}
	if b.opts.BaseURL != "" {
		clientOpts = append(clientOpts, gitlab.WithBaseURL(b.opts.BaseURL))
	}
	client, err := gitlab.NewClient(b.opts.Token, clientOpts...)
	if err != nil {
		return nil, errors.E(errors.KindInvalidInput, "source.NewGitLab", "create client", err)
	}
	return &GitLab{base: b, client: client}, nil
}

// Name returns "gitlab".
func (g *GitLab) Name() string {
	return ProviderGitLab
}

// Fetch downloads the file named by a ParseGitLabRef reference.
func (g *GitLab) Fetch(ctx context.Context, ref string) (doc *Document, err error) {
	const op = "source.GitLab.Fetch"
	defer func() { g.record(err) }()

	r, err := ParseGitLabRef(ref)
	if err != nil {
		return nil, err
	}
	rawOpts := &gitlab.GetRawFileOptions{}
	if r.Ref != "" {
		rawOpts.Ref = gitlab.Ptr(r.Ref)
	}
	var data []byte
	err = g.call(ctx, op, func(ctx context.Context) error {
		raw, resp, err := g.client.RepositoryFiles.GetRawFile(r.Project, r.Path, rawOpts, gitlab.WithContext(ctx))
		if err != nil {
			var httpResp *http.Response
			if resp != nil {
				httpResp = resp.Response
			}
			return remoteError(ctx, ProviderGitLab, op, httpResp, err)
		}
		data = raw
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := g.checkSize(op, r.String(), len(data)); err != nil {
		return nil, err
	}

	g.opts.Logger.Debug("fetched %s from GitLab (%d bytes)", r, len(data))
	return &Document{
		Path:     r.Path,
		Language: DetectLanguage(r.Path),
		Content:  string(data),
		Provider: ProviderGitLab,
		Ref:      r.String(),
	}, nil
}
