package pipeline

import (
	"context"
	"fmt"

	"github.com/aops-ba/testenv/internal/command"
	"github.com/aops-ba/testenv/internal/inventory"
	"github.com/aops-ba/testenv/internal/log"
	"github.com/aops-ba/testenv/internal/stack"
	"github.com/aops-ba/testenv/internal/step"
)

var createTones = []int{880, 990, 1100}

// Create returns the five stage provisioning pipeline.
func Create(d Deps) *Pipeline {
	p := &Pipeline{
		deps:    d,
		success: "All steps completed successfully!",
		tones:   createTones,
	}
	p.stages = []stage{
		{StateCloneRepos, "Cloning code and setting up", p.clone},
		{StateStackCreateApply, "Creating and applying terraform stack", p.createStack},
		{StateInventoryUpdate, "Adding host to inventory and emails.yml", p.addToInventory},
		{StateConfigManagementRun, "Running ansible against the new host", p.runAnsible},
		{StateDataBootstrap, "Importing database", p.importDB},
	}
	return p
}

func (p *Pipeline) createStack(ctx context.Context) error {
	cfg := p.deps.Config
	l := stack.New(cfg, p.deps.Runner, p.deps.Terraform)

	stackPath, err := step.Do(ctx, p.deps.Steps, step.Spec[string]{
		Name:  "stack-prepare",
		Start: "Creating terraform stack...",
		Done:  func(path string) string { return fmt.Sprintf("Created Terraform stack at %s", path) },
	}, l.Prepare)
	if err != nil {
		return err
	}

	var plan *stack.Plan
	if !cfg.CI {
		plan, err = step.Do(ctx, p.deps.Steps, step.Spec[*stack.Plan]{
			Name:  "stack-plan",
			Start: "Planning terraform changes...",
			Done: func(plan *stack.Plan) string {
				if !plan.Changes {
					return "No infrastructure changes planned"
				}
				return "Planned infrastructure changes"
			},
		}, l.Plan)
		if err != nil {
			return err
		}

		if !plan.Changes {
			_ = plan.Discard()
			p.lookupHost(ctx)
			return nil
		}

		fmt.Fprintln(p.deps.Out, plan.Text)
		ok, err := p.deps.Prompter.Confirm(ctx, "Apply this plan?")
		if err != nil {
			_ = plan.Discard()
			return err
		}
		if !ok {
			_ = plan.Discard()
			return stack.ErrApplyDeclined
		}
	}

	if _, err := step.Do(ctx, p.deps.Steps, step.Spec[string]{
		Name:  "stack-apply",
		Start: "Applying terraform stack...",
		Done:  func(path string) string { return fmt.Sprintf("Created and applied Terraform stack at %s", path) },
	}, func(ctx context.Context) (string, error) {
		return stackPath, l.Apply(ctx, plan)
	}); err != nil {
		return err
	}

	p.lookupHost(ctx)
	return nil
}

// lookupHost reports the instance behind the host. It never fails the run.
func (p *Pipeline) lookupHost(ctx context.Context) {
	if p.deps.Instances == nil {
		return
	}
	inst, err := p.deps.Instances.Find(ctx, p.deps.Config.Hostname)
	if err != nil {
		log.Warn(ctx, "failed to look up instance", "host", p.deps.Config.Hostname, "error", err)
		return
	}
	p.dimf("Instance %s is %s", p.deps.Config.Hostname, inst)
}

func (p *Pipeline) addToInventory(ctx context.Context) error {
	cfg := p.deps.Config
	m := inventory.New(cfg.AnsibleConfigRoot, cfg.AnsibleCfgBranch, p.deps.Runner)

	_, err := step.Do(ctx, p.deps.Steps, step.Spec[struct{}]{
		Name:  "inventory-add",
		Start: "Adding host to inventory and emails.yml...",
		Done: func(struct{}) string {
			return fmt.Sprintf("Added %s to inventory and emails.yml in %s", cfg.Hostname, cfg.AnsibleConfigRoot)
		},
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.EnsureHost(ctx, cfg.Hostname, cfg.Email)
	})
	return err
}

const sshCommonArgs = "-o UserKnownHostsFile=/dev/null -o StrictHostKeyChecking=no"

func (p *Pipeline) runAnsible(ctx context.Context) error {
	cfg := p.deps.Config
	playbooks := []struct{ file, key string }{
		{"initial_setup.yml", cfg.BootstrapSSHKey},
		{"web_setup.yml", cfg.AnsibleControlSSHKey},
	}

	_, err := step.Do(ctx, p.deps.Steps, step.Spec[struct{}]{
		Name:  "ansible",
		Start: "Running ansible against the new host...",
		Done:  func(struct{}) string { return fmt.Sprintf("Ran Ansible playbooks for %s", cfg.Hostname) },
	}, func(ctx context.Context) (struct{}, error) {
		for _, pb := range playbooks {
			if _, err := p.deps.Runner.Run(ctx, command.Cmd{
				Args: []string{
					"ansible-playbook", pb.file,
					"--private-key", pb.key,
					"--limit", cfg.Hostname,
					"--vault-password-file", cfg.VaultPasswordFile,
					"--ssh-common-args", sshCommonArgs,
				},
				Dir: cfg.AnsibleConfigRoot,
			}); err != nil {
				return struct{}{}, fmt.Errorf("failed to run %s: %w", pb.file, err)
			}
		}
		return struct{}{}, nil
	})
	return err
}

func (p *Pipeline) importDB(ctx context.Context) error {
	host := p.deps.Config.Hostname
	_, err := step.Do(ctx, p.deps.Steps, step.Spec[string]{
		Name:  "import-db",
		Start: "Importing database",
		Done:  func(h string) string { return fmt.Sprintf("Imported database for %s", h) },
	}, func(ctx context.Context) (string, error) {
		if _, err := p.deps.Runner.Run(ctx, command.Cmd{Args: []string{"ssh-import-db.sh", host}}); err != nil {
			return "", fmt.Errorf("failed to import database: %w", err)
		}
		return host, nil
	})
	return err
}
