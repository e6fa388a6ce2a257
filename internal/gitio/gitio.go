// Package gitio provides version-control access by shelling out to git.
//
// Every query is bounded by a timeout and tolerates a missing git binary
// or a directory that is not a repository by returning empty results; the
// pipeline degrades to partial data rather than failing.
package gitio

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
)

// DefaultTimeout bounds each individual git subprocess.
const DefaultTimeout = 10 * time.Second

// Client runs git commands against a single repository root.
type Client struct {
	root    string
	timeout time.Duration
}

// NewClient creates a client for the repository at root.
func NewClient(root string) *Client {
	return &Client{root: root, timeout: DefaultTimeout}
}

// NewClientTimeout creates a client with a custom per-command timeout.
func NewClientTimeout(root string, timeout time.Duration) *Client {
	return &Client{root: root, timeout: timeout}
}

// run executes a git command and returns stdout, or "" on any failure.
func (c *Client) run(args ...string) string {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.root

	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}
	return out.String()
}

// lines splits command output into non-empty trimmed lines.
func lines(out string) []string {
	var result []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}
	return result
}

// DiffNames returns the paths changed in the index (staged=true) or the
// working tree (staged=false).
func (c *Client) DiffNames(staged bool) []string {
	args := []string{"diff", "--name-only"}
	if staged {
		args = []string{"diff", "--cached", "--name-only"}
	}
	return lines(c.run(args...))
}

// UntrackedFiles returns paths not yet tracked by git, honoring ignore rules.
func (c *Client) UntrackedFiles() []string {
	return lines(c.run("ls-files", "--others", "--exclude-standard"))
}

// DiffTreeLastCommit returns the paths touched by the most recent commit.
func (c *Client) DiffTreeLastCommit() []string {
	return lines(c.run("diff-tree", "--no-commit-id", "--name-only", "-r", "HEAD"))
}

// Log returns raw git log records, one per commit, using the given
// pretty format. Records are separated by the %x1e record separator so
// multi-line bodies survive parsing.
func (c *Client) Log(limit int, format string) []string {
	out := c.run("log", "-n", itoa(limit), "--pretty=format:"+format+"%x1e")
	if out == "" {
		return nil
	}
	var records []string
	for _, rec := range strings.Split(out, "\x1e") {
		rec = strings.Trim(rec, "\n")
		if strings.TrimSpace(rec) != "" {
			records = append(records, rec)
		}
	}
	return records
}

func itoa(n int) string {
	if n <= 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// RepoInfo identifies the repository for snapshot metadata.
type RepoInfo struct {
	Name   string
	Branch string
}

// Info reads the repository name and current branch. The name comes from
// the origin remote URL when available, otherwise the directory name; the
// branch falls back to "main". Uses go-git so a bare directory without
// git installed still resolves.
func Info(root string) RepoInfo {
	info := RepoInfo{
		Name:   filepath.Base(root),
		Branch: "main",
	}

	repo, err := gogit.PlainOpen(root)
	if err != nil {
		return info
	}

	if remote, err := repo.Remote("origin"); err == nil {
		urls := remote.Config().URLs
		if len(urls) > 0 {
			info.Name = repoNameFromURL(urls[0])
		}
	}

	if head, err := repo.Head(); err == nil && head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}

	return info
}

// repoNameFromURL extracts the repository name from a remote URL.
func repoNameFromURL(url string) string {
	url = strings.TrimSuffix(url, ".git")
	url = strings.TrimSuffix(url, "/")
	if i := strings.LastIndexAny(url, "/:"); i >= 0 {
		url = url[i+1:]
	}
	return url
}
