package github

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/custodia-labs/codexai/internal/connectors"
	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
	"github.com/custodia-labs/codexai/internal/logger"
)

// Ensure Reader implements the interface.
var _ driven.SourceReader = (*Reader)(nil)

// Repo identifies a repository and an optional ref.
type Repo struct {
	Owner string
	Name  string

	// Ref is a branch, tag or commit. Empty selects the default branch.
	Ref string
}

func (r Repo) String() string {
	s := r.Owner + "/" + r.Name
	if r.Ref != "" {
		s += "@" + r.Ref
	}
	return s
}

// ParseRepo accepts "github:owner/repo[@ref]", "owner/repo[@ref]" and
// "https://github.com/owner/repo[/tree/ref]".
func ParseRepo(s string) (Repo, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "github:")

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil || u.Host != "github.com" {
			return Repo{}, fmt.Errorf("%w: %q", ErrInvalidRepo, s)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) < 2 {
			return Repo{}, fmt.Errorf("%w: %q", ErrInvalidRepo, s)
		}
		repo := Repo{Owner: parts[0], Name: strings.TrimSuffix(parts[1], ".git")}
		if len(parts) >= 4 && parts[2] == "tree" {
			repo.Ref = strings.Join(parts[3:], "/")
		}
		return repo, nil
	}

	name, ref, _ := strings.Cut(s, "@")
	owner, repo, ok := strings.Cut(name, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return Repo{}, fmt.Errorf("%w: %q", ErrInvalidRepo, s)
	}
	return Repo{Owner: owner, Name: repo, Ref: ref}, nil
}

// Reader reads one repository through the REST API.
type Reader struct {
	client   *Client
	repo     Repo
	maxBytes int64
	ignore   []string
}

// New creates a reader. maxBytes <= 0 selects the default cap.
func New(client *Client, repo Repo, maxBytes int64, ignore ...string) *Reader {
	return &Reader{client: client, repo: repo, maxBytes: maxBytes, ignore: ignore}
}

// Describe returns the repository name.
func (r *Reader) Describe() string {
	return r.repo.Name
}

// Read lists the tree and fetches every accepted blob. Blobs that cannot
// be fetched are skipped with a warning; tree and auth failures abort.
func (r *Reader) Read(ctx context.Context) ([]domain.SourceInput, error) {
	ref := r.repo.Ref
	if ref == "" {
		branch, err := r.client.DefaultBranch(ctx, r.repo.Owner, r.repo.Name)
		if err != nil {
			return nil, fmt.Errorf("resolve default branch of %s: %w", r.repo, err)
		}
		ref = branch
	}

	tree, err := r.client.GetTree(ctx, r.repo.Owner, r.repo.Name, ref)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.repo, err)
	}
	if tree.GetTruncated() {
		logger.Warn("tree of %s is truncated by GitHub; some files are missing", r.repo)
	}

	filter := connectors.NewFilter(r.maxBytes, r.ignore...)

	// .gitignore files first so they apply to the whole listing.
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" || path.Base(entry.GetPath()) != ".gitignore" {
			continue
		}
		content, err := r.client.GetBlobContent(ctx, r.repo.Owner, r.repo.Name, entry.GetSHA())
		if err != nil {
			logger.Warn("skip %s: %v", entry.GetPath(), err)
			continue
		}
		filter.AddIgnoreFile(path.Dir(entry.GetPath()), content)
	}

	var inputs []domain.SourceInput //nolint:prealloc // filtered
	for _, entry := range tree.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := entry.GetPath()
		if entry.GetType() != "blob" || filter.InIgnoredDir(p) {
			continue
		}
		if !filter.Accept(p, int64(entry.GetSize())) {
			continue
		}

		content, err := r.client.GetBlobContent(ctx, r.repo.Owner, r.repo.Name, entry.GetSHA())
		if err != nil {
			if IsRateLimited(err) || IsUnauthorized(err) {
				return nil, fmt.Errorf("fetch %s: %w", p, err)
			}
			logger.Warn("skip %s: %v", p, err)
			continue
		}
		inputs = append(inputs, domain.SourceInput{Path: p, Content: content})
	}

	logger.Debug("read %d files from github %s@%s", len(inputs), r.repo.Owner+"/"+r.repo.Name, ref)
	return inputs, nil
}
