// Package revisions keeps a git history of every entry a user saves, one
// repository per user with one JSON file per entry.
package revisions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var (
	ErrNoChanges = errors.New("entry unchanged")
	ErrNotFound  = errors.New("revision not found")
)

// Snapshot is the versioned form of an entry.
type Snapshot struct {
	ID         string         `json:"id"`
	LogbookID  string         `json:"logbookId,omitempty"`
	Date       string         `json:"date"`
	Hours      float64        `json:"hours"`
	StartTime  string         `json:"startTime,omitempty"`
	EndTime    string         `json:"endTime,omitempty"`
	Energy     string         `json:"energy"`
	Location   string         `json:"location,omitempty"`
	WorkedOn   string         `json:"workedOn,omitempty"`
	Learned    string         `json:"learned,omitempty"`
	Blockers   string         `json:"blockers,omitempty"`
	Ideas      string         `json:"ideas,omitempty"`
	Tomorrow   string         `json:"tomorrow,omitempty"`
	CustomData map[string]any `json:"customData,omitempty"`
}

type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Record commits the snapshot of an entry. Saving identical content returns
// ErrNoChanges.
func (s *Service) Record(userID string, snap Snapshot, author, message string) (CommitInfo, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(userID)
	if err != nil {
		return CommitInfo{}, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open worktree: %w", err)
	}

	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return CommitInfo{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	rel := entryPath(snap.ID)
	abs := filepath.Join(worktree.Filesystem.Root(), filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return CommitInfo{}, fmt.Errorf("create entries dir: %w", err)
	}
	if err := os.WriteFile(abs, append(payload, '\n'), 0o644); err != nil {
		return CommitInfo{}, fmt.Errorf("write snapshot: %w", err)
	}
	if _, err := worktree.Add(rel); err != nil {
		return CommitInfo{}, fmt.Errorf("git add snapshot: %w", err)
	}
	return commit(repo, worktree, author, message)
}

// Remove records the deletion of an entry.
func (s *Service) Remove(userID, entryID, author string) (CommitInfo, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(userID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return CommitInfo{}, ErrNotFound
	}
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open repo: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open worktree: %w", err)
	}
	if _, err := worktree.Remove(entryPath(entryID)); err != nil {
		return CommitInfo{}, ErrNotFound
	}
	return commit(repo, worktree, author, "Delete entry "+entryID)
}

// History lists the commits that touched one entry, newest first.
func (s *Service) History(userID, entryID string, limit int) ([]CommitInfo, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	items := make([]CommitInfo, 0)
	repo, err := git.PlainOpen(s.repoPath(userID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return items, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return items, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	file := entryPath(entryID)
	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), FileName: &file})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// Snapshot returns the entry as it was at the given commit.
func (s *Service) Snapshot(userID, entryID, hash string) (Snapshot, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(userID))
	if err != nil {
		return Snapshot{}, ErrNotFound
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return Snapshot{}, ErrNotFound
	}
	commitObj, err := repo.CommitObject(*resolved)
	if err != nil {
		return Snapshot{}, ErrNotFound
	}
	file, err := commitObj.File(entryPath(entryID))
	if err != nil {
		return Snapshot{}, ErrNotFound
	}
	raw, err := file.Contents()
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Purge deletes a user's whole history.
func (s *Service) Purge(userID string) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.RemoveAll(s.repoPath(userID)); err != nil {
		return fmt.Errorf("remove repo: %w", err)
	}
	return nil
}

func (s *Service) openOrInit(userID string) (*git.Repository, error) {
	dir := s.repoPath(userID)
	repo, err := git.PlainOpen(dir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(dir, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

func commit(repo *git.Repository, worktree *git.Worktree, author, message string) (CommitInfo, error) {
	status, err := worktree.Status()
	if err != nil {
		return CommitInfo{}, fmt.Errorf("read status: %w", err)
	}
	if status.IsClean() {
		return CommitInfo{}, ErrNoChanges
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@users.booklogger.local", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return CommitInfo{}, fmt.Errorf("commit: %w", err)
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), nil
}

func (s *Service) repoPath(userID string) string {
	return filepath.Join(s.baseDir, filepath.Base(userID))
}

func (s *Service) userLock(userID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[userID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[userID] = lock
	return lock
}

func entryPath(entryID string) string {
	return path.Join("entries", path.Base(entryID)+".json")
}

func toCommitInfo(commitObj *object.Commit) CommitInfo {
	return CommitInfo{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}
