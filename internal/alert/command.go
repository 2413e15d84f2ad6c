package alert

import (
	"context"
	"os/exec"

	bursarErrors "github.com/harunnryd/bursar/internal/errors"

	"github.com/google/shlex"
)

// CommandNotifier runs a configured command with the alert text appended as
// the final argument, for site-local paging glue.
type CommandNotifier struct {
	argv []string
}

func NewCommandNotifier(command string) (*CommandNotifier, error) {
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, bursarErrors.Configuration("parse alert command: " + err.Error())
	}
	if len(argv) == 0 {
		return nil, bursarErrors.Configuration("alert command is empty")
	}
	return &CommandNotifier{argv: argv}, nil
}

func (c *CommandNotifier) Name() string {
	return "command"
}

func (c *CommandNotifier) Notify(ctx context.Context, message string) error {
	args := append(append([]string(nil), c.argv[1:]...), message)
	cmd := exec.CommandContext(ctx, c.argv[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return bursarErrors.Wrap(err, "alert command failed: "+string(out))
	}
	return nil
}
