package cli

import (
	"context"
	"log/slog"

	"github.com/aops-ba/testenv/internal/cleanup"
	"github.com/aops-ba/testenv/internal/command"
	"github.com/aops-ba/testenv/internal/config"
	"github.com/aops-ba/testenv/internal/hostinfo"
	"github.com/aops-ba/testenv/internal/log"
	"github.com/aops-ba/testenv/internal/o11y"
	"github.com/aops-ba/testenv/internal/pipeline"
	"github.com/aops-ba/testenv/internal/preflight"
	"github.com/aops-ba/testenv/internal/stack"
	"github.com/aops-ba/testenv/internal/step"
	"github.com/chainguard-dev/clog"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type globalFlags = config.Flags

func (a *App) createCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "create <prefix>",
		Short: "Create a new test instance <prefix>.aopstest.com and configure it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), config.OpCreate, args[0], *flags)
		},
	}
}

func (a *App) destroyCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "destroy <prefix>",
		Short: "Destroy the test instance <prefix>.aopstest.com and remove it from inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), config.OpDestroy, args[0], *flags)
		},
	}
}

// run resolves the configuration, sets up the ambient stack and drives the
// pipeline for op. Nothing external is touched until configuration and
// preflight have passed.
func (a *App) run(ctx context.Context, op config.Operation, prefix string, flags config.Flags) error {
	cfg, err := config.Load(op, prefix, flags, config.WithLookupEnv(a.LookupEnv))
	if err != nil {
		return err
	}
	if err := preflight.Check(op, a.LookPath); err != nil {
		return err
	}

	var cleanups cleanup.Stack
	defer func() {
		if cerr := cleanups.Run(context.WithoutCancel(ctx)); cerr != nil {
			log.Warn(ctx, "cleanup failed", "error", cerr)
		}
	}()

	console := step.NewConsole(a.Stdout)
	ctx, runner, logPath := a.setupLogging(ctx, cfg, console, &cleanups)

	shutdown, err := o11y.SetupTracing(ctx, cfg.RunID, string(op), cfg.Hostname)
	if err != nil {
		log.Warn(ctx, "failed to set up tracing", "error", err)
	}
	cleanups.Push(shutdown)

	tfPath, err := a.LookPath("terraform")
	if err != nil {
		return err
	}

	deps := pipeline.Deps{
		Config:    cfg,
		Runner:    runner,
		Terraform: stack.TFExec(tfPath, runner),
		Prompter:  pipeline.NewPrompter(a.Stdin, console),
		Steps:     step.NewRun(console, cfg.Debug, cfg.Verbose),
		Out:       console,
		LogPath:   logPath,
		LookPath:  a.LookPath,
		LookupEnv: a.LookupEnv,
	}

	var p *pipeline.Pipeline
	switch op {
	case config.OpCreate:
		if finder, err := hostinfo.NewFromEnv(ctx); err != nil {
			log.Warn(ctx, "instance lookup disabled", "error", err)
		} else {
			deps.Instances = finder
		}
		p = pipeline.Create(deps)
	default:
		p = pipeline.Destroy(deps)
	}

	if _, err := p.Run(ctx); err != nil {
		return reportedError{err}
	}
	return nil
}

// setupLogging installs the context logger and picks the command output
// mode. Debug streams everything to the terminal; otherwise output goes to a
// per-run log file, or nowhere when that file cannot be created.
func (a *App) setupLogging(ctx context.Context, cfg config.Config, console *step.Console, cleanups *cleanup.Stack) (context.Context, *command.Exec, string) {
	level := slog.LevelWarn
	if cfg.Verbose || cfg.Debug {
		level = slog.LevelDebug
	}

	if cfg.Debug {
		ctx = log.WithHandlers(ctx, log.NewConsoleHandler(a.Stderr, level))
		slog.SetDefault(&clog.FromContext(ctx).Logger)
		return ctx, command.New(command.ModeStream, command.WithStdio(a.Stdin, a.Stdout, a.Stderr)), ""
	}

	consoleHandler := log.NewConsoleHandler(console, level)
	mode := command.ModeLog
	logPath := ""

	rl, err := log.NewRunLog(string(cfg.Op), cfg.Prefix)
	if err != nil {
		ctx = log.WithHandlers(ctx, consoleHandler)
		color.New(color.FgYellow).Fprintf(console, "Warning: %v; command output will not be kept\n", err)
		mode = command.ModeDiscard
	} else {
		ctx = log.WithHandlers(ctx, consoleHandler, rl.Handler())
		cleanups.Push(func(context.Context) error { return rl.Close() })
		logPath = rl.Path
	}
	slog.SetDefault(&clog.FromContext(ctx).Logger)

	return ctx, command.New(mode, command.WithStdio(a.Stdin, console, console)), logPath
}
