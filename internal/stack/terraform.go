package stack

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/terraform-exec/tfexec"
)

// Terraform is the subset of terraform operations a stack needs.
type Terraform interface {
	Init(ctx context.Context) error
	// Plan writes a plan to out and reports whether it contains changes.
	Plan(ctx context.Context, out string) (bool, error)
	// Show renders a saved plan for humans.
	Show(ctx context.Context, plan string) (string, error)
	// Apply applies a saved plan, or auto-approves a fresh one when plan is
	// empty.
	Apply(ctx context.Context, plan string) error
	Destroy(ctx context.Context) error
}

// TerraformFactory returns a Terraform bound to a working directory.
type TerraformFactory func(ctx context.Context, dir string) (Terraform, error)

// Sink hands out writers for a command's output and reports the start and
// end of processes it did not start itself.
type Sink interface {
	Writer(ctx context.Context, name string) io.WriteCloser
	Track(args []string, fn func() error) error
}

// TFExec returns a factory backed by terraform-exec. All terraform output is
// written to the sink.
func TFExec(execPath string, sink Sink) TerraformFactory {
	return func(ctx context.Context, dir string) (Terraform, error) {
		tf, err := tfexec.NewTerraform(dir, execPath)
		if err != nil {
			return nil, fmt.Errorf("failed to find a terraform executable: %w", err)
		}
		w := sink.Writer(ctx, "terraform")
		tf.SetStdout(w)
		tf.SetStderr(w)
		return Tracked(&tfexecTerraform{tf: tf, out: w}, sink), nil
	}
}

var _ Terraform = (*tfexecTerraform)(nil)

type tfexecTerraform struct {
	tf  *tfexec.Terraform
	out io.WriteCloser
}

func (t *tfexecTerraform) Init(ctx context.Context) error {
	defer t.out.Close()
	return t.tf.Init(ctx)
}

func (t *tfexecTerraform) Plan(ctx context.Context, out string) (bool, error) {
	defer t.out.Close()
	return t.tf.Plan(ctx, tfexec.Out(out))
}

func (t *tfexecTerraform) Show(ctx context.Context, plan string) (string, error) {
	defer t.out.Close()
	return t.tf.ShowPlanFileRaw(ctx, plan)
}

func (t *tfexecTerraform) Apply(ctx context.Context, plan string) error {
	defer t.out.Close()
	if plan == "" {
		return t.tf.Apply(ctx)
	}
	return t.tf.Apply(ctx, tfexec.DirOrPlan(plan))
}

func (t *tfexecTerraform) Destroy(ctx context.Context) error {
	defer t.out.Close()
	return t.tf.Destroy(ctx)
}

// Tracked reports every call to tf through sink under the terraform command
// line it stands for.
func Tracked(tf Terraform, sink Sink) Terraform {
	return &trackedTerraform{tf: tf, sink: sink}
}

type trackedTerraform struct {
	tf   Terraform
	sink Sink
}

func (t *trackedTerraform) Init(ctx context.Context) error {
	return t.sink.Track([]string{"terraform", "init"}, func() error {
		return t.tf.Init(ctx)
	})
}

func (t *trackedTerraform) Plan(ctx context.Context, out string) (bool, error) {
	var changes bool
	err := t.sink.Track([]string{"terraform", "plan", "-out=" + out}, func() error {
		var err error
		changes, err = t.tf.Plan(ctx, out)
		return err
	})
	return changes, err
}

func (t *trackedTerraform) Show(ctx context.Context, plan string) (string, error) {
	var text string
	err := t.sink.Track([]string{"terraform", "show", plan}, func() error {
		var err error
		text, err = t.tf.Show(ctx, plan)
		return err
	})
	return text, err
}

func (t *trackedTerraform) Apply(ctx context.Context, plan string) error {
	args := []string{"terraform", "apply", "-auto-approve"}
	if plan != "" {
		args = []string{"terraform", "apply", plan}
	}
	return t.sink.Track(args, func() error {
		return t.tf.Apply(ctx, plan)
	})
}

func (t *trackedTerraform) Destroy(ctx context.Context) error {
	return t.sink.Track([]string{"terraform", "destroy", "-auto-approve"}, func() error {
		return t.tf.Destroy(ctx)
	})
}
