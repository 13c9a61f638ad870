package pipeline

import (
	"context"
	"fmt"

	"github.com/aops-ba/testenv/internal/inventory"
	"github.com/aops-ba/testenv/internal/stack"
	"github.com/aops-ba/testenv/internal/step"
)

var destroyTones = []int{1100, 990, 880}

// Destroy returns the three stage decommissioning pipeline.
func Destroy(d Deps) *Pipeline {
	p := &Pipeline{
		deps:    d,
		success: fmt.Sprintf("Successfully destroyed %s!", d.Config.Hostname),
		tones:   destroyTones,
	}
	p.stages = []stage{
		{StateCloneRepos, "Cloning code and setting up", p.clone},
		{StateStackDestroy, "Destroying Terraform stack and removing resources", p.destroyStack},
		{StateInventoryCleanup, "Removing host from inventory and emails.yml", p.removeFromInventory},
	}
	return p
}

func (p *Pipeline) destroyStack(ctx context.Context) error {
	host := p.deps.Config.Hostname
	l := stack.New(p.deps.Config, p.deps.Runner, p.deps.Terraform)

	_, err := step.Do(ctx, p.deps.Steps, step.Spec[bool]{
		Name:  "stack-destroy",
		Start: "Destroying Terraform stack and removing resources...",
		Done: func(destroyed bool) string {
			if !destroyed {
				return fmt.Sprintf("No Terraform stack found for %s", host)
			}
			return fmt.Sprintf("Destroyed Terraform stack and removed resources for %s", host)
		},
	}, l.Destroy)
	return err
}

func (p *Pipeline) removeFromInventory(ctx context.Context) error {
	cfg := p.deps.Config
	m := inventory.New(cfg.AnsibleConfigRoot, cfg.AnsibleCfgBranch, p.deps.Runner)

	_, err := step.Do(ctx, p.deps.Steps, step.Spec[bool]{
		Name:  "inventory-remove",
		Start: "Removing host from inventory and emails.yml...",
		Done: func(removed bool) string {
			if !removed {
				return fmt.Sprintf("%s was not in inventory or emails.yml", cfg.Hostname)
			}
			return fmt.Sprintf("Removed %s from inventory and emails.yml", cfg.Hostname)
		},
	}, func(ctx context.Context) (bool, error) {
		return m.RemoveHost(ctx, cfg.Hostname)
	})
	return err
}
