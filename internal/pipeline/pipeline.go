package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aops-ba/testenv/internal/command"
	"github.com/aops-ba/testenv/internal/config"
	"github.com/aops-ba/testenv/internal/hostinfo"
	"github.com/aops-ba/testenv/internal/log"
	"github.com/aops-ba/testenv/internal/o11y"
	"github.com/aops-ba/testenv/internal/preflight"
	"github.com/aops-ba/testenv/internal/stack"
	"github.com/aops-ba/testenv/internal/step"
	"github.com/aops-ba/testenv/internal/workspace"
	"github.com/fatih/color"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	headerColor = color.New(color.Bold, color.FgCyan)
	dimColor    = color.New(color.Faint)
	errColor    = color.New(color.FgRed)
	okColor     = color.New(color.FgGreen)
)

// Deps are the collaborators of a pipeline run.
type Deps struct {
	Config    config.Config
	Runner    command.Runner
	Terraform stack.TerraformFactory
	// Instances, when set, is used for an advisory lookup of the created host.
	Instances hostinfo.Finder
	// Prompter is only consulted outside CI mode.
	Prompter Prompter
	Steps    *step.Run
	// Out receives stage headers and the final report.
	Out io.Writer
	// LogPath is the run log, empty when there is none.
	LogPath   string
	LookPath  preflight.LookPathFunc
	LookupEnv func(string) (string, bool)
}

type stage struct {
	state State
	title string
	run   func(ctx context.Context) error
}

// Pipeline is a fixed sequence of stages.
type Pipeline struct {
	deps    Deps
	stages  []stage
	state   State
	success string
	tones   []int
}

// State reports where the pipeline is, or ended.
func (p *Pipeline) State() State {
	return p.state
}

// Run executes every stage in order and stops at the first failure. The
// failure has already been reported on Out when Run returns it.
func (p *Pipeline) Run(ctx context.Context) (State, error) {
	cfg := p.deps.Config
	ctx = log.With(ctx, o11y.AttrRunID, cfg.RunID, o11y.AttrHost, cfg.Hostname)

	ctx, span := o11y.Tracer().Start(ctx, string(cfg.Op))
	defer span.End()

	p.state = StateInit
	for i, s := range p.stages {
		p.state = s.state
		headerColor.Fprintf(p.deps.Out, "━━━ [%d/%d] %s ━━━\n", i+1, len(p.stages), s.title)

		if err := p.runStage(ctx, s); err != nil {
			return p.fail(ctx, err)
		}

		if i < len(p.stages)-1 && !cfg.CI {
			if err := p.deps.Prompter.Continue(ctx); err != nil {
				return p.fail(ctx, err)
			}
		}
	}

	p.state = StateDone
	p.report(ctx)
	p.chime(ctx)
	return p.state, nil
}

func (p *Pipeline) runStage(ctx context.Context, s stage) error {
	ctx = log.With(ctx, o11y.AttrStage, s.state.String())
	ctx, span := o11y.Tracer().Start(ctx, s.title)
	defer span.End()
	span.SetAttributes(attribute.String(o11y.AttrStage, s.state.String()))

	log.Info(ctx, "stage started", "title", s.title)
	if err := s.run(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context, err error) (State, error) {
	log.Debug(ctx, "stage failed", "state", p.state.String(), "error", err)
	p.state = StateFailed

	msg := err.Error()
	if !p.deps.Config.Debug {
		msg, _, _ = strings.Cut(msg, "\n")
	}
	errColor.Fprintf(p.deps.Out, "ERROR: %s\n", msg)
	if p.deps.LogPath != "" {
		dimColor.Fprintf(p.deps.Out, "See log file for details: %s\n", p.deps.LogPath)
	}
	return p.state, err
}

func (p *Pipeline) report(ctx context.Context) {
	if p.deps.Steps != nil {
		for _, r := range p.deps.Steps.Results() {
			log.Debug(ctx, "step finished", "step", r.Name, "elapsed", step.FormatElapsed(r.Duration))
		}
	}

	if p.deps.Config.Debug {
		okColor.Fprintln(p.deps.Out, p.success)
		return
	}
	dimColor.Fprintln(p.deps.Out, p.success)
	if p.deps.LogPath != "" {
		dimColor.Fprintf(p.deps.Out, "Log file: \n%s\n", p.deps.LogPath)
	}
}

func (p *Pipeline) dimf(format string, args ...any) {
	dimColor.Fprintf(p.deps.Out, format+"\n", args...)
}

func (p *Pipeline) clone(ctx context.Context) error {
	cfg := p.deps.Config
	repos := []struct {
		name, url, path, branch string
	}{
		{"Terramate", cfg.TerramateCloudRepo, cfg.TerramateCloudPath, ""},
		{"Ansible", cfg.AnsibleConfigRepo, cfg.AnsibleConfigRoot, cfg.AnsibleCfgBranch},
	}

	for _, repo := range repos {
		_, err := step.Do(ctx, p.deps.Steps, step.Spec[*workspace.Workspace]{
			Name:  "clone-" + strings.ToLower(repo.name),
			Start: fmt.Sprintf("Cloning %s repo", repo.name),
			Done: func(ws *workspace.Workspace) string {
				if ws.Existed {
					return fmt.Sprintf("Reusing existing %s repo at %s", repo.name, ws.Path)
				}
				return fmt.Sprintf("Cloned %s repo to %s", repo.name, ws.Path)
			},
		}, func(ctx context.Context) (*workspace.Workspace, error) {
			return workspace.Ensure(ctx, p.deps.Runner, repo.url, repo.path, repo.branch)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
