package manifest

import (
	"github.com/go-git/go-git/v5"

	"github.com/teranos/jbind/errors"
)

// SourceRevision returns the HEAD commit of the git repository holding
// dir, with "+dirty" appended when the worktree has changes. Outside a
// repository, or in one without commits, it returns "".
func SourceRevision(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "open repository at %s", dir)
	}
	head, err := repo.Head()
	if err != nil {
		// unborn branch
		return "", nil
	}
	rev := head.Hash().String()

	wt, err := repo.Worktree()
	if err != nil {
		// bare repositories have no worktree to be dirty
		return rev, nil
	}
	status, err := wt.Status()
	if err != nil {
		return "", errors.Wrap(err, "worktree status")
	}
	if !status.IsClean() {
		rev += "+dirty"
	}
	return rev, nil
}
