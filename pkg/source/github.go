package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"

	"github.com/exploopio/codeguard/pkg/errors"
)

// GitHubRef identifies a file in a GitHub repository.
type GitHubRef struct {
	Owner string
	Repo  string
	Path  string

	// Branch, tag or commit. Empty means the default branch.
	Ref string
}

// ParseGitHubRef parses "owner/repo/path/to/file[@ref]".
func ParseGitHubRef(s string) (GitHubRef, error) {
	rest, ref := splitRef(strings.TrimPrefix(s, "/"))
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return GitHubRef{}, errors.E(errors.KindInvalidInput, "source.ParseGitHubRef",
			fmt.Sprintf("invalid GitHub reference %q, want owner/repo/path[@ref]", s))
	}
	return GitHubRef{Owner: parts[0], Repo: parts[1], Path: parts[2], Ref: ref}, nil
}

func (r GitHubRef) String() string {
	s := r.Owner + "/" + r.Repo + "/" + r.Path
	if r.Ref != "" {
		s += "@" + r.Ref
	}
	return s
}

// GitHub fetches files through the GitHub contents API.
type GitHub struct {
	base
	client *github.Client
}

// NewGitHub creates a GitHub fetcher. A token, when given, is sent as an
// OAuth2 bearer token.
func NewGitHub(opts Options) (*GitHub, error) {
	b := newBase(ProviderGitHub, opts)

	httpClient := &http.Client{Timeout: b.opts.Timeout}
	if b.opts.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: b.opts.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = b.opts.Timeout
	}
	client := github.NewClient(httpClient)

	if b.opts.BaseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(b.opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, errors.E(errors.KindInvalidInput, "source.NewGitHub", "invalid base URL", err)
		}
		client.BaseURL = u
	}
	return &GitHub{base: b, client: client}, nil
}

// Name returns "github".
func (g *GitHub) Name() string {
	return ProviderGitHub
}

// Fetch downloads the file named by a ParseGitHubRef reference.
func (g *GitHub) Fetch(ctx context.Context, ref string) (doc *Document, err error) {
	const op = "source.GitHub.Fetch"
	defer func() { g.record(err) }()

	r, err := ParseGitHubRef(ref)
	if err != nil {
		return nil, err
	}
	var getOpts *github.RepositoryContentGetOptions
	if r.Ref != "" {
		getOpts = &github.RepositoryContentGetOptions{Ref: r.Ref}
	}
	var file *github.RepositoryContent
	err = g.call(ctx, op, func(ctx context.Context) error {
		f, _, resp, err := g.client.Repositories.GetContents(ctx, r.Owner, r.Repo, r.Path, getOpts)
		if err != nil {
			var httpResp *http.Response
			if resp != nil {
				httpResp = resp.Response
			}
			return remoteError(ctx, ProviderGitHub, op, httpResp, err)
		}
		file = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, errors.E(errors.KindInvalidInput, op, fmt.Sprintf("%s is a directory", r))
	}
	if err := g.checkSize(op, r.String(), file.GetSize()); err != nil {
		return nil, err
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, errors.E(errors.KindRemote, op, "decode file content", err)
	}
	g.opts.Logger.Debug("fetched %s from GitHub (%d bytes)", r, len(content))
	return &Document{
		Path:     r.Path,
		Language: DetectLanguage(r.Path),
		Content:  content,
		Provider: ProviderGitHub,
		Ref:      r.String(),
	}, nil
}
