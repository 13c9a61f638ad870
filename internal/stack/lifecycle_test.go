package stack

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aops-ba/testenv/internal/command"
	"github.com/aops-ba/testenv/internal/command/commandtest"
	"github.com/aops-ba/testenv/internal/config"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTF struct {
	dir     string
	calls   []string
	changes bool
	failOn  string
}

func (f *fakeTF) call(name string) error {
	f.calls = append(f.calls, name)
	if name == f.failOn {
		return errors.New(name + " failed")
	}
	return nil
}

func (f *fakeTF) Init(context.Context) error { return f.call("init") }

func (f *fakeTF) Plan(_ context.Context, out string) (bool, error) {
	if err := f.call("plan"); err != nil {
		return false, err
	}
	return f.changes, os.WriteFile(out, []byte("plan"), 0o600)
}

func (f *fakeTF) Show(context.Context, string) (string, error) {
	return "+ aws_instance.test", f.call("show")
}

func (f *fakeTF) Apply(_ context.Context, plan string) error {
	if plan == "" {
		return f.call("apply")
	}
	return f.call("apply-plan")
}

func (f *fakeTF) Destroy(context.Context) error { return f.call("destroy") }

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	template := filepath.Join(t.TempDir(), "test_instance.tf.template")
	require.NoError(t, os.WriteFile(template, []byte(`name = "TERRAFORM_STACK_PREFIX_PLACEHOLDER-web"`+"\n"), 0o644))

	cfg, err := config.Load(config.OpCreate, "box1", config.Flags{CI: true}, config.WithLookupEnv(func(k string) (string, bool) {
		switch k {
		case "TERRAMATE_CLOUD_PATH":
			return root, true
		case "TERRAFORM_TEMPLATE_FILE":
			return template, true
		}
		return "", false
	}), config.WithHome(t.TempDir()))
	require.NoError(t, err)
	return cfg
}

// terramateFake creates the stack directory when asked to, like terramate does.
func terramateFake() *commandtest.Fake {
	return &commandtest.Fake{Hook: func(_ context.Context, c command.Cmd) (int, error) {
		if c.Args[0] == "terramate" {
			return 0, os.MkdirAll(filepath.Join(c.Dir, c.Args[2]), 0o755)
		}
		return 0, nil
	}}
}

func TestPrepareAndApply(t *testing.T) {
	cfg := testConfig(t)
	runner := terramateFake()
	tf := &fakeTF{}
	l := New(cfg, runner, func(_ context.Context, dir string) (Terraform, error) {
		tf.dir = dir
		return tf, nil
	})

	path, err := l.Prepare(t.Context())
	require.NoError(t, err)
	assert.Equal(t, cfg.StackPath(), path)
	assert.Equal(t, cfg.StackPath(), tf.dir)

	data, err := os.ReadFile(filepath.Join(path, "main.tf"))
	require.NoError(t, err)
	assert.Equal(t, "name = \"box1-web\"\n", string(data))

	want := []string{
		"terramate create stacks/accounts/aops_dev.487718497406/box1.aopstest.com",
		"git add .",
		"git commit -m Create or update test instance box1.aopstest.com",
		"git push origin main",
	}
	if diff := cmp.Diff(want, runner.Argvs()); diff != "" {
		t.Errorf("unexpected commands (-want +got):\n%s", diff)
	}
	for _, c := range runner.Cmds()[1:] {
		assert.Equal(t, cfg.TerramateCloudPath, c.Dir)
	}
	assert.True(t, runner.Cmds()[2].NoCheck, "commit must tolerate an empty change set")

	require.NoError(t, l.Apply(t.Context(), nil))
	assert.Equal(t, []string{"init", "apply"}, tf.calls)
}

func TestPrepareKeepsExistingMainTF(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.StackPath(), 0o755))
	mainTF := filepath.Join(cfg.StackPath(), "main.tf")
	require.NoError(t, os.WriteFile(mainTF, []byte("# edited by hand\n"), 0o644))

	runner := &commandtest.Fake{}
	l := New(cfg, runner, func(context.Context, string) (Terraform, error) { return &fakeTF{}, nil })

	_, err := l.Prepare(t.Context())
	require.NoError(t, err)
	assert.False(t, runner.Has("terramate"))

	data, err := os.ReadFile(mainTF)
	require.NoError(t, err)
	assert.Equal(t, "# edited by hand\n", string(data))
}

func TestPlanAndApplySavedPlan(t *testing.T) {
	cfg := testConfig(t)
	tf := &fakeTF{changes: true}
	l := New(cfg, terramateFake(), func(context.Context, string) (Terraform, error) { return tf, nil })

	_, err := l.Prepare(t.Context())
	require.NoError(t, err)

	p, err := l.Plan(t.Context())
	require.NoError(t, err)
	assert.True(t, p.Changes)
	assert.Equal(t, "+ aws_instance.test", p.Text)
	assert.NotContains(t, p.Path, cfg.TerramateCloudPath, "plan file must stay out of the repository")
	assert.FileExists(t, p.Path)

	require.NoError(t, l.Apply(t.Context(), p))
	assert.Equal(t, []string{"init", "plan", "show", "apply-plan"}, tf.calls)
	assert.NoFileExists(t, p.Path)
}

func TestPlanWithoutPrepare(t *testing.T) {
	l := New(testConfig(t), &commandtest.Fake{}, nil)
	_, err := l.Plan(t.Context())
	require.Error(t, err)
	require.Error(t, l.Apply(t.Context(), nil))
}

func TestPrepareInitFailure(t *testing.T) {
	cfg := testConfig(t)
	tf := &fakeTF{failOn: "init"}
	l := New(cfg, terramateFake(), func(context.Context, string) (Terraform, error) { return tf, nil })

	_, err := l.Prepare(t.Context())
	require.ErrorContains(t, err, "init failed")
}

func TestDestroy(t *testing.T) {
	t.Run("absent-stack", func(t *testing.T) {
		cfg := testConfig(t)
		runner := &commandtest.Fake{}
		called := false
		l := New(cfg, runner, func(context.Context, string) (Terraform, error) {
			called = true
			return &fakeTF{}, nil
		})

		destroyed, err := l.Destroy(t.Context())
		require.NoError(t, err)
		assert.False(t, destroyed)
		assert.False(t, called)
		assert.Empty(t, runner.Cmds())
	})

	t.Run("present-stack", func(t *testing.T) {
		cfg := testConfig(t)
		require.NoError(t, os.MkdirAll(cfg.StackPath(), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(cfg.StackPath(), "main.tf"), nil, 0o644))

		runner := &commandtest.Fake{}
		tf := &fakeTF{}
		l := New(cfg, runner, func(context.Context, string) (Terraform, error) { return tf, nil })

		destroyed, err := l.Destroy(t.Context())
		require.NoError(t, err)
		assert.True(t, destroyed)
		assert.Equal(t, []string{"init", "destroy"}, tf.calls)
		assert.NoDirExists(t, cfg.StackPath())

		want := []string{
			"git add .",
			"git commit -m Destroy test instance box1.aopstest.com (remove stack)",
			"git push origin main",
		}
		if diff := cmp.Diff(want, runner.Argvs()); diff != "" {
			t.Errorf("unexpected commands (-want +got):\n%s", diff)
		}
	})

	t.Run("destroy-failure-keeps-directory", func(t *testing.T) {
		cfg := testConfig(t)
		require.NoError(t, os.MkdirAll(cfg.StackPath(), 0o755))

		runner := &commandtest.Fake{}
		l := New(cfg, runner, func(context.Context, string) (Terraform, error) { return &fakeTF{failOn: "destroy"}, nil })

		_, err := l.Destroy(t.Context())
		require.Error(t, err)
		assert.DirExists(t, cfg.StackPath())
		assert.Empty(t, runner.Cmds())
	})
}
