package stack

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aops-ba/testenv/internal/command"
	"github.com/aops-ba/testenv/internal/config"
	"github.com/aops-ba/testenv/internal/log"
)

// Placeholder is replaced with the instance prefix when main.tf is
// instantiated from the template.
const Placeholder = "TERRAFORM_STACK_PREFIX_PLACEHOLDER"

// ErrApplyDeclined is returned when the operator rejects the plan.
var ErrApplyDeclined = errors.New("terraform apply declined")

// Lifecycle creates, applies and destroys the terraform stack of one test
// host inside the terramate checkout.
type Lifecycle struct {
	cfg    config.Config
	runner command.Runner
	newTF  TerraformFactory

	tf Terraform
}

func New(cfg config.Config, r command.Runner, newTF TerraformFactory) *Lifecycle {
	return &Lifecycle{cfg: cfg, runner: r, newTF: newTF}
}

// Plan is a saved terraform plan awaiting approval.
type Plan struct {
	Path    string
	Changes bool
	Text    string
}

// Discard removes the saved plan file.
func (p *Plan) Discard() error {
	if p == nil || p.Path == "" {
		return nil
	}
	if err := os.Remove(p.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Prepare makes sure the stack directory and its main.tf exist, publishes
// them to the terramate remote and initializes terraform. It returns the
// stack path.
func (l *Lifecycle) Prepare(ctx context.Context) (string, error) {
	stackPath := l.cfg.StackPath()
	root := l.cfg.TerramateCloudPath

	if _, err := os.Stat(stackPath); errors.Is(err, fs.ErrNotExist) {
		if _, err := l.runner.Run(ctx, command.Cmd{
			Args: []string{"terramate", "create", l.cfg.StackRelPath()},
			Dir:  root,
		}); err != nil {
			return "", fmt.Errorf("failed to create stack: %w", err)
		}
	} else if err != nil {
		return "", fmt.Errorf("failed to stat stack: %w", err)
	}

	mainTF := filepath.Join(stackPath, "main.tf")
	if _, err := os.Stat(mainTF); errors.Is(err, fs.ErrNotExist) {
		if err := l.instantiate(mainTF); err != nil {
			return "", err
		}
	} else if err != nil {
		return "", fmt.Errorf("failed to stat main.tf: %w", err)
	}

	if err := l.publish(ctx, fmt.Sprintf("Create or update test instance %s", l.cfg.Hostname)); err != nil {
		return "", err
	}

	tf, err := l.newTF(ctx, stackPath)
	if err != nil {
		return "", err
	}
	if err := tf.Init(ctx); err != nil {
		return "", fmt.Errorf("failed to initialize terraform: %w", err)
	}
	l.tf = tf

	return stackPath, nil
}

func (l *Lifecycle) instantiate(mainTF string) error {
	data, err := os.ReadFile(l.cfg.TemplateFile)
	if err != nil {
		return fmt.Errorf("failed to read terraform template: %w", err)
	}
	content := strings.ReplaceAll(string(data), Placeholder, l.cfg.Prefix)
	if err := os.WriteFile(mainTF, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write main.tf: %w", err)
	}
	return nil
}

// Plan saves a plan to a file outside the repository and renders it.
func (l *Lifecycle) Plan(ctx context.Context) (*Plan, error) {
	if l.tf == nil {
		return nil, errors.New("stack is not prepared")
	}

	f, err := os.CreateTemp("", fmt.Sprintf("testenv-%s-*.tfplan", l.cfg.Prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to create plan file: %w", err)
	}
	f.Close()
	p := &Plan{Path: f.Name()}

	p.Changes, err = l.tf.Plan(ctx, p.Path)
	if err != nil {
		_ = p.Discard()
		return nil, fmt.Errorf("failed to plan terraform: %w", err)
	}
	if !p.Changes {
		return p, nil
	}

	p.Text, err = l.tf.Show(ctx, p.Path)
	if err != nil {
		_ = p.Discard()
		return nil, fmt.Errorf("failed to render plan: %w", err)
	}
	return p, nil
}

// Apply applies p, or an auto-approved fresh plan when p is nil. The plan
// file is removed afterwards.
func (l *Lifecycle) Apply(ctx context.Context, p *Plan) error {
	if l.tf == nil {
		return errors.New("stack is not prepared")
	}
	defer p.Discard()

	path := ""
	if p != nil {
		path = p.Path
	}
	if err := l.tf.Apply(ctx, path); err != nil {
		return fmt.Errorf("failed to apply terraform: %w", err)
	}
	return nil
}

// Destroy tears the stack down and removes it from the terramate remote. It
// reports false, without touching anything, when the stack directory is
// absent.
func (l *Lifecycle) Destroy(ctx context.Context) (bool, error) {
	stackPath := l.cfg.StackPath()

	if _, err := os.Stat(stackPath); errors.Is(err, fs.ErrNotExist) {
		log.Warn(ctx, "stack directory does not exist, skipping terraform destroy", "path", stackPath)
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to stat stack: %w", err)
	}

	tf, err := l.newTF(ctx, stackPath)
	if err != nil {
		return false, err
	}
	if err := tf.Init(ctx); err != nil {
		return false, fmt.Errorf("failed to initialize terraform: %w", err)
	}
	if err := tf.Destroy(ctx); err != nil {
		return false, fmt.Errorf("failed to destroy terraform: %w", err)
	}

	if err := os.RemoveAll(stackPath); err != nil {
		return false, fmt.Errorf("failed to remove stack directory: %w", err)
	}

	if err := l.publish(ctx, fmt.Sprintf("Destroy test instance %s (remove stack)", l.cfg.Hostname)); err != nil {
		return false, err
	}
	return true, nil
}

// publish stages everything in the terramate checkout, commits it and pushes
// to main. An empty commit is not an error.
func (l *Lifecycle) publish(ctx context.Context, msg string) error {
	root := l.cfg.TerramateCloudPath
	cmds := []command.Cmd{
		{Args: []string{"git", "add", "."}, Dir: root},
		{Args: []string{"git", "commit", "-m", msg}, Dir: root, NoCheck: true},
		{Args: []string{"git", "push", "origin", "main"}, Dir: root},
	}
	for _, c := range cmds {
		if _, err := l.runner.Run(ctx, c); err != nil {
			return fmt.Errorf("failed to publish stack: %w", err)
		}
	}
	return nil
}
