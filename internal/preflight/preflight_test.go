package preflight

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/aops-ba/testenv/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func only(present ...string) LookPathFunc {
	return func(file string) (string, error) {
		for _, p := range present {
			if p == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", exec.ErrNotFound
	}
}

func TestCheck(t *testing.T) {
	require.NoError(t, Check(config.OpDestroy, only("git", "terraform")))
	require.NoError(t, Check(config.OpCreate, only(Tools(config.OpCreate)...)))

	err := Check(config.OpCreate, only("git", "terraform"))
	var cerr *config.Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, config.KindConfiguration, cerr.Kind)
	assert.ErrorContains(t, err, "terramate, ansible-playbook, ssh-import-db.sh")
}
