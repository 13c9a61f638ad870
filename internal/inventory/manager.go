package inventory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/aops-ba/testenv/internal/command"
	"github.com/aops-ba/testenv/internal/log"
)

const (
	HostsFile    = "inventory.yml"
	ContactsFile = "group_vars/all/emails.yml"
)

// Manager keeps the host list and the host contact mapping of a
// configuration repository checkout in sync with the test hosts that exist.
type Manager struct {
	mu     sync.Mutex
	root   string
	branch string
	runner command.Runner
}

// New returns a Manager for the checkout at root. Changes are pushed to
// branch on origin.
func New(root, branch string, r command.Runner) *Manager {
	return &Manager{root: root, branch: branch, runner: r}
}

func (m *Manager) HostsPath() string {
	return filepath.Join(m.root, HostsFile)
}

func (m *Manager) ContactsPath() string {
	return filepath.Join(m.root, filepath.FromSlash(ContactsFile))
}

// EnsureHost records host in the host list and maps it to email, then
// publishes both files. When neither file changes nothing is committed, but
// the push still runs so a previously unpushed commit is delivered.
func (m *Manager) EnsureHost(ctx context.Context, host, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hostsAdded, err := m.update(ctx, m.HostsPath(), missingFails, func(data []byte) ([]byte, bool, error) {
		return insertHost(data, host)
	})
	if err != nil {
		return err
	}

	contactAdded, err := m.update(ctx, m.ContactsPath(), missingIsEmpty, func(data []byte) ([]byte, bool, error) {
		return addContact(data, host, email)
	})
	if err != nil {
		return err
	}

	log.Info(ctx, "inventory updated", "host", host, "hosts_changed", hostsAdded, "contacts_changed", contactAdded)

	var cmds []command.Cmd
	if hostsAdded || contactAdded {
		cmds = append(cmds,
			command.Cmd{Args: []string{"git", "add", HostsFile, ContactsFile}, Dir: m.root},
			command.Cmd{Args: []string{"git", "commit", "-m", fmt.Sprintf("Add %s to inventory and emails.yml", host)}, Dir: m.root, NoCheck: true},
		)
	}
	cmds = append(cmds, command.Cmd{Args: []string{"git", "push", "origin", m.branch}, Dir: m.root})

	return m.run(ctx, cmds)
}

// RemoveHost deletes host from the host list and the contact mapping. Only
// when something was removed are the files committed and pushed. It reports
// whether anything was removed.
func (m *Manager) RemoveHost(ctx context.Context, host string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hostRemoved, err := m.update(ctx, m.HostsPath(), missingWarns, func(data []byte) ([]byte, bool, error) {
		return removeHost(data, host)
	})
	if err != nil {
		return false, err
	}

	contactRemoved, err := m.update(ctx, m.ContactsPath(), missingWarns, func(data []byte) ([]byte, bool, error) {
		return removeContact(data, host)
	})
	if err != nil {
		return false, err
	}

	if !hostRemoved && !contactRemoved {
		log.Info(ctx, "host not present in inventory", "host", host)
		return false, nil
	}

	return true, m.run(ctx, []command.Cmd{
		{Args: []string{"git", "add", HostsFile, ContactsFile}, Dir: m.root},
		{Args: []string{"git", "commit", "-m", fmt.Sprintf("Remove %s from host_emails in emails.yml and inventory.yml", host)}, Dir: m.root, NoCheck: true},
		{Args: []string{"git", "push", "origin", m.branch}, Dir: m.root},
	})
}

// onMissing says what update does when the file does not exist.
type onMissing int

const (
	missingFails onMissing = iota
	missingIsEmpty
	missingWarns
)

// update applies fn to the file at path and writes the result back when fn
// reports a change.
func (m *Manager) update(ctx context.Context, path string, policy onMissing, fn func([]byte) ([]byte, bool, error)) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		switch policy {
		case missingIsEmpty:
			data, err = nil, nil
		case missingWarns:
			log.Warn(ctx, "file not found", "path", path)
			return false, nil
		}
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	out, changed, err := fn(data)
	if err != nil {
		return false, fmt.Errorf("failed to update %s: %w", path, err)
	}
	if !changed {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

func (m *Manager) run(ctx context.Context, cmds []command.Cmd) error {
	for _, c := range cmds {
		if _, err := m.runner.Run(ctx, c); err != nil {
			return fmt.Errorf("failed to publish inventory: %w", err)
		}
	}
	return nil
}
