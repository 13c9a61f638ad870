package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// App is the testenv command line. The zero value is not usable; call New.
type App struct {
	Version   string
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	LookupEnv func(string) (string, bool)
	LookPath  func(string) (string, error)
}

func New(version string) *App {
	return &App{
		Version:   version,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		LookupEnv: os.LookupEnv,
		LookPath:  exec.LookPath,
	}
}

// reportedError marks an error that has already been shown to the operator.
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error {
	return e.error
}

// Execute runs the command line in args and returns the process exit code.
func (a *App) Execute(ctx context.Context, args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(a.Stdin)
	root.SetOut(a.Stdout)
	root.SetErr(a.Stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var reported reportedError
	if !errors.As(err, &reported) {
		color.New(color.FgRed).Fprintf(a.Stderr, "ERROR: %v\n", err)
	}
	return 1
}

func (a *App) rootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "testenv",
		Short: "Create and destroy ephemeral test instances",
		Long: `testenv provisions a test EC2 instance end to end (terramate stack, terraform
apply, ansible inventory, configuration, database import) and tears it down again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVar(&flags.CI, "ci", false, "Run non-interactively and auto-approve infrastructure changes (also enabled by a non-empty CI)")
	root.PersistentFlags().BoolVar(&flags.Verbose, "verbose", false, "Show command output as it is logged")
	root.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Stream all command output directly to the terminal (disables the log file)")

	root.AddCommand(
		a.createCmd(&flags),
		a.destroyCmd(&flags),
		a.versionCmd(),
	)
	return root
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "testenv %s\n", a.Version)
		},
	}
}
