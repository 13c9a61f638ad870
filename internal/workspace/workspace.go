package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/aops-ba/testenv/internal/command"
	"github.com/aops-ba/testenv/internal/log"
)

// Workspace is a local checkout of a remote repository.
type Workspace struct {
	URL    string
	Path   string
	Branch string
	// Existed reports that Path was already present and was left untouched.
	Existed bool
}

// Ensure makes path a checkout of url. An existing path is taken as already
// prepared and nothing is run. Otherwise url is cloned into path and, when
// branch is set, that branch is checked out.
func Ensure(ctx context.Context, r command.Runner, url, path, branch string) (*Workspace, error) {
	ws := &Workspace{URL: url, Path: path, Branch: branch}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		log.Info(ctx, "reusing existing checkout", "path", path)
		ws.Existed = true
		return ws, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if _, err := r.Run(ctx, command.Cmd{Args: []string{"git", "clone", url, path}}); err != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", url, err)
	}

	if branch != "" {
		if _, err := r.Run(ctx, command.Cmd{Args: []string{"git", "checkout", branch}, Dir: path}); err != nil {
			return nil, fmt.Errorf("failed to check out %s: %w", branch, err)
		}
	}

	return ws, nil
}
