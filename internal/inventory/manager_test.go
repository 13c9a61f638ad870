package inventory

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

const inventoryYAML = `all:
  hosts:
    web1.aopstest.com:
  vars:
    ansible_user: ubuntu
`

func setupRepo(t *testing.T, contacts string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, HostsFile), []byte(inventoryYAML), 0o644))
	if contacts != "" {
		path := filepath.Join(root, ContactsFile)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contacts), 0o644))
	}
	return root
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestEnsureHost(t *testing.T) {
	root := setupRepo(t, "host_emails:\n  web1.aopstest.com: ops@example.com\n")
	fake := &commandtest.Fake{}
	m := New(root, "simple", fake)

	require.NoError(t, m.EnsureHost(t.Context(), "box1.aopstest.com", "dev@example.com"))

	assert.Equal(t, "all:\n  hosts:\n    box1.aopstest.com:\n    web1.aopstest.com:\n  vars:\n    ansible_user: ubuntu\n", read(t, m.HostsPath()))
	assert.Contains(t, read(t, m.ContactsPath()), "box1.aopstest.com: dev@example.com")

	want := []command.Cmd{
		{Args: []string{"git", "add", "inventory.yml", "group_vars/all/emails.yml"}, Dir: root},
		{Args: []string{"git", "commit", "-m", "Add box1.aopstest.com to inventory and emails.yml"}, Dir: root, NoCheck: true},
		{Args: []string{"git", "push", "origin", "simple"}, Dir: root},
	}
	if diff := cmp.Diff(want, fake.Cmds()); diff != "" {
		t.Errorf("unexpected commands (-want +got):\n%s", diff)
	}
}

func TestEnsureHostIdempotent(t *testing.T) {
	root := setupRepo(t, "host_emails:\n  web1.aopstest.com: ops@example.com\n")
	m := New(root, "simple", &commandtest.Fake{})
	require.NoError(t, m.EnsureHost(t.Context(), "box1.aopstest.com", "dev@example.com"))

	hosts, contacts := read(t, m.HostsPath()), read(t, m.ContactsPath())

	fake := &commandtest.Fake{}
	m = New(root, "simple", fake)
	require.NoError(t, m.EnsureHost(t.Context(), "box1.aopstest.com", "dev@example.com"))

	assert.Equal(t, hosts, read(t, m.HostsPath()))
	assert.Equal(t, contacts, read(t, m.ContactsPath()))
	assert.False(t, fake.Has("git", "commit"), "no commit when nothing changed")
	assert.Equal(t, []string{"git push origin simple"}, fake.Argvs())
}

func TestEnsureHostCreatesContactsFile(t *testing.T) {
	root := setupRepo(t, "")
	m := New(root, "simple", &commandtest.Fake{})

	require.NoError(t, m.EnsureHost(t.Context(), "box1.aopstest.com", "dev@example.com"))
	assert.Equal(t, contacts{HostEmails: map[string]string{"box1.aopstest.com": "dev@example.com"}}, decodeContacts(t, []byte(read(t, m.ContactsPath()))))
}

func TestEnsureHostNoHostsKey(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, HostsFile), []byte("all:\n  children:\n"), 0o644))
	fake := &commandtest.Fake{}
	m := New(root, "simple", fake)

	err := m.EnsureHost(t.Context(), "box1.aopstest.com", "dev@example.com")
	require.ErrorIs(t, err, ErrNoHostsKey)
	assert.Empty(t, fake.Cmds())
}

func TestEnsureHostMissingInventory(t *testing.T) {
	m := New(t.TempDir(), "simple", &commandtest.Fake{})
	require.ErrorIs(t, m.EnsureHost(t.Context(), "box1.aopstest.com", "dev@example.com"), os.ErrNotExist)
}

func TestEnsureHostPushFailure(t *testing.T) {
	root := setupRepo(t, "")
	fake := &commandtest.Fake{Hook: func(_ context.Context, c command.Cmd) (int, error) {
		if c.Args[1] == "push" {
			return 1, nil
		}
		return 0, nil
	}}
	m := New(root, "simple", fake)

	err := m.EnsureHost(t.Context(), "box1.aopstest.com", "dev@example.com")
	var cerr *command.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, []string{"git", "push", "origin", "simple"}, cerr.Args)
}

func TestManagerRemoveHost(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		root := setupRepo(t, "host_emails:\n  box1.aopstest.com: dev@example.com\n")
		require.NoError(t, os.WriteFile(filepath.Join(root, HostsFile), []byte("all:\n  hosts:\n    box1.aopstest.com:\n    web1.aopstest.com:\n"), 0o644))
		fake := &commandtest.Fake{}
		m := New(root, "simple", fake)

		removed, err := m.RemoveHost(t.Context(), "box1.aopstest.com")
		require.NoError(t, err)
		assert.True(t, removed)
		assert.NotContains(t, read(t, m.HostsPath()), "box1")
		assert.NotContains(t, read(t, m.ContactsPath()), "box1")

		want := []string{
			"git add inventory.yml group_vars/all/emails.yml",
			"git commit -m Remove box1.aopstest.com from host_emails in emails.yml and inventory.yml",
			"git push origin simple",
		}
		if diff := cmp.Diff(want, fake.Argvs()); diff != "" {
			t.Errorf("unexpected commands (-want +got):\n%s", diff)
		}
	})

	t.Run("only-contact-present", func(t *testing.T) {
		root := setupRepo(t, "host_emails:\n  box1.aopstest.com: dev@example.com\n")
		fake := &commandtest.Fake{}
		m := New(root, "simple", fake)

		removed, err := m.RemoveHost(t.Context(), "box1.aopstest.com")
		require.NoError(t, err)
		assert.True(t, removed)
		assert.Equal(t, inventoryYAML, read(t, m.HostsPath()), "untouched file is not rewritten")
		assert.True(t, fake.Has("git", "commit"))
	})

	t.Run("absent", func(t *testing.T) {
		root := setupRepo(t, "host_emails:\n  web1.aopstest.com: ops@example.com\n")
		fake := &commandtest.Fake{}
		m := New(root, "simple", fake)

		removed, err := m.RemoveHost(t.Context(), "box1.aopstest.com")
		require.NoError(t, err)
		assert.False(t, removed)
		assert.Empty(t, fake.Cmds())
		assert.Equal(t, inventoryYAML, read(t, m.HostsPath()))
	})

	t.Run("missing-files", func(t *testing.T) {
		fake := &commandtest.Fake{}
		m := New(t.TempDir(), "simple", fake)

		removed, err := m.RemoveHost(t.Context(), "box1.aopstest.com")
		require.NoError(t, err)
		assert.False(t, removed)
		assert.Empty(t, fake.Cmds())
	})
}

func TestEnsureHostBareHostsKey(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, HostsFile), []byte("hosts:\n"), 0o644))
	m := New(root, "simple", &commandtest.Fake{})

	require.NoError(t, m.EnsureHost(t.Context(), "t1.example.com", "a@b.com"))
	assert.Equal(t, "hosts:\n  t1.example.com:\n", read(t, m.HostsPath()))
	assert.Equal(t, contacts{HostEmails: map[string]string{"t1.example.com": "a@b.com"}}, decodeContacts(t, []byte(read(t, m.ContactsPath()))))

	hosts, emails := read(t, m.HostsPath()), read(t, m.ContactsPath())
	require.NoError(t, m.EnsureHost(t.Context(), "t1.example.com", "a@b.com"))
	assert.Equal(t, hosts, read(t, m.HostsPath()))
	assert.Equal(t, emails, read(t, m.ContactsPath()))
}
