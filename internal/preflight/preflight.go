package preflight

import (
	"fmt"
	"strings"

	"github.com/aops-ba/testenv/internal/config"
)

// LookPathFunc resolves a binary name on $PATH, like exec.LookPath.
type LookPathFunc func(file string) (string, error)

// Tools lists the external binaries op cannot run without.
func Tools(op config.Operation) []string {
	if op == config.OpDestroy {
		return []string{"git", "terraform"}
	}
	return []string{"git", "terraform", "terramate", "ansible-playbook", "ssh-import-db.sh"}
}

// Check fails with a configuration error naming every tool of op that is not
// found in $PATH.
func Check(op config.Operation, lookPath LookPathFunc) error {
	var missing []string
	for _, tool := range Tools(op) {
		if _, err := lookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &config.Error{
		Kind:  config.KindConfiguration,
		Field: "PATH",
		Err:   fmt.Errorf("required tools not found in $PATH: %s", strings.Join(missing, ", ")),
	}
}
