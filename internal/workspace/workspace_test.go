package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aops-ba/testenv/internal/command"
	"github.com/aops-ba/testenv/internal/command/commandtest"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsure(t *testing.T) {
	t.Run("clone-and-checkout", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ansible-cfg")
		fake := &commandtest.Fake{}

		ws, err := Ensure(t.Context(), fake, "git@example.com:org/ansible-cfg.git", path, "simple")
		require.NoError(t, err)
		assert.False(t, ws.Existed)

		want := []command.Cmd{
			{Args: []string{"git", "clone", "git@example.com:org/ansible-cfg.git", path}},
			{Args: []string{"git", "checkout", "simple"}, Dir: path},
		}
		if diff := cmp.Diff(want, fake.Cmds()); diff != "" {
			t.Errorf("unexpected commands (-want +got):\n%s", diff)
		}
	})

	t.Run("no-branch-skips-checkout", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "terramate-cloud")
		fake := &commandtest.Fake{}

		_, err := Ensure(t.Context(), fake, "git@example.com:org/terramate-cloud.git", path, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"git clone git@example.com:org/terramate-cloud.git " + path}, fake.Argvs())
	})

	t.Run("existing-path-runs-nothing", func(t *testing.T) {
		path := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(path, "inventory.yml"), []byte("all:\n"), 0o644))
		fake := &commandtest.Fake{}

		ws, err := Ensure(t.Context(), fake, "git@example.com:org/ansible-cfg.git", path, "simple")
		require.NoError(t, err)
		assert.True(t, ws.Existed)
		assert.Empty(t, fake.Cmds())
	})

	t.Run("clone-failure-propagates", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "repo")
		fake := &commandtest.Fake{Hook: func(_ context.Context, c command.Cmd) (int, error) {
			return 128, nil
		}}

		_, err := Ensure(t.Context(), fake, "git@example.com:org/missing.git", path, "simple")
		var cerr *command.Error
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, 128, cerr.Code)
		assert.Len(t, fake.Cmds(), 1, "checkout must not run after a failed clone")
	})
}
