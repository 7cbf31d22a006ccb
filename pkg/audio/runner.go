package audio

import (
	"context"
	"fmt"

	execute "github.com/alexellis/go-execute/v2"
)

// Runner executes an external media tool. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, command string, args []string) (stdout string, err error)
}

type execRunner struct{}

// NewRunner returns the process-backed Runner used outside of tests.
func NewRunner() Runner { return execRunner{} }

func (execRunner) Run(ctx context.Context, command string, args []string) (string, error) {
	task := execute.ExecTask{
		Command: command,
		Args:    args,
	}

	res, err := task.Execute(ctx)
	if err != nil {
		return res.Stdout, err
	}
	if res.ExitCode != 0 {
		return res.Stdout, fmt.Errorf("%s exited %d: %s", command, res.ExitCode, res.Stderr)
	}
	return res.Stdout, nil
}
