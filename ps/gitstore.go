package ps

import (
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-billy/v6/util"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"

	"github.com/wiredb/wiredb/core"
)

// GitKV stores documents in a git worktree and turns every write or delete
// into a commit, so the full history of the database is a git log.
type GitKV struct {
	repo     *git.Repository
	identity core.Identity
	mu       sync.RWMutex
}

// NewMemoryGitKV builds a GitKV over an in-memory repository.
func NewMemoryGitKV(identity core.Identity) (*GitKV, error) {
	wt := memfs.New()
	storer := memory.NewStorage()

	repo, err := git.Init(storer, git.WithWorkTree(wt))
	if err != nil {
		return nil, err
	}

	return &GitKV{repo: repo, identity: identity}, nil
}

// NewGitKV opens (initializing if needed) a repository rooted at baseDir.
func NewGitKV(baseDir string, identity core.Identity) (*GitKV, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(baseDir)
	dotGit, err := wt.Chroot(".git")
	if err != nil {
		return nil, err
	}

	storer := filesystem.NewStorageWithOptions(
		dotGit,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	repo, err := git.Open(storer, wt)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.Init(storer, git.WithWorkTree(wt))
	}
	if err != nil {
		return nil, err
	}

	return &GitKV{repo: repo, identity: identity}, nil
}

func (kv *GitKV) signature() *object.Signature {
	return &object.Signature{
		Name:  kv.identity.Name,
		Email: kv.identity.Email,
		When:  time.Now(),
	}
}

func (kv *GitKV) commit(wt *git.Worktree, message string) error {
	_, err := wt.Commit(message, &git.CommitOptions{
		Author:            kv.signature(),
		AllowEmptyCommits: true,
	})
	return err
}

func (kv *GitKV) Write(key string, data []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	wt, err := kv.repo.Worktree()
	if err != nil {
		return err
	}

	name := documentName(key)
	if err := util.WriteFile(wt.Filesystem, name, data, 0644); err != nil {
		return err
	}
	if _, err := wt.Add(name); err != nil {
		return err
	}
	return kv.commit(wt, "Write "+name)
}

func (kv *GitKV) Read(key string) ([]byte, bool, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	wt, err := kv.repo.Worktree()
	if err != nil {
		return nil, false, err
	}

	data, err := util.ReadFile(wt.Filesystem, documentName(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (kv *GitKV) Delete(key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	wt, err := kv.repo.Worktree()
	if err != nil {
		return err
	}

	name := documentName(key)
	if _, err := wt.Filesystem.Lstat(name); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if _, err := wt.Remove(name); err != nil {
		return err
	}
	return kv.commit(wt, "Delete "+name)
}

// History returns the ids of the most recent commits, newest first, capped
// at limit (zero means no cap).
func (kv *GitKV) History(limit int) ([]string, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	iter, err := kv.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, err
	}

	var ids []string
	err = iter.ForEach(func(c *object.Commit) error {
		ids = append(ids, c.Hash.String())
		if limit > 0 && len(ids) >= limit {
			return errStopIteration
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, err
	}
	return ids, nil
}

var errStopIteration = errors.New("stop iteration")
