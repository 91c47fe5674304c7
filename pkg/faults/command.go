package faults

import (
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/chaosproof/chaosproof/pkg/types"
)

// processCandidate runs a long-lived stressor process for the chaos window.
// The process is started in its own process group so that Stop can kill the
// stressor and every worker it forked in one shot.
type processCandidate struct {
	name    string
	tool    string
	command func(scenario types.ScenarioDefinition, target string) string
	cleanup func() error
}

func (c *processCandidate) Name() string {
	return c.name
}

func (c *processCandidate) Available() bool {
	_, err := exec.LookPath(c.tool)
	return err == nil
}

func (c *processCandidate) Start(scenario types.ScenarioDefinition, target string) (*Handle, error) {
	cmd := exec.Command("/bin/sh", "-c", c.command(scenario, target))
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, errors.Errorf("unable to start %v process, err: %v", c.name, err)
	}
	pgid := cmd.Process.Pid

	// reap the process so a stressor that exits on its own never lingers
	// as a zombie
	waited := make(chan struct{})
	go func() {
		cmd.Wait()
		close(waited)
	}()

	return &Handle{
		FaultType: scenario.FaultType,
		Mechanism: c.name,
		Target:    target,
		StartedAt: time.Now(),
		running: func() bool {
			select {
			case <-waited:
				return false
			default:
				return syscall.Kill(-pgid, syscall.Signal(0)) == nil
			}
		},
		release: func() error {
			err := syscall.Kill(-pgid, syscall.SIGKILL)
			if err != nil && err != syscall.ESRCH {
				return errors.Errorf("unable to kill %v process group, err: %v", c.name, err)
			}
			if c.cleanup != nil {
				return c.cleanup()
			}
			return nil
		},
	}, nil
}

// ruleCandidate applies a one-shot effect (a traffic-control rule, a
// firewall rule, a filled tmpfs file, a container restart) and reverses it
// on release. Apply failures roll back everything already applied before
// returning.
type ruleCandidate struct {
	name   string
	tool   string
	apply  func(scenario types.ScenarioDefinition, target string) [][]string
	revert func(scenario types.ScenarioDefinition, target string) [][]string
	verify func(scenario types.ScenarioDefinition, target string) []string
}

func (c *ruleCandidate) Name() string {
	return c.name
}

func (c *ruleCandidate) Available() bool {
	_, err := exec.LookPath(c.tool)
	return err == nil
}

func (c *ruleCandidate) Start(scenario types.ScenarioDefinition, target string) (*Handle, error) {
	revert := c.revert(scenario, target)

	for _, command := range c.apply(scenario, target) {
		if err := runCommand(command); err != nil {
			runCommands(revert)
			return nil, err
		}
	}

	handle := &Handle{
		FaultType: scenario.FaultType,
		Mechanism: c.name,
		Target:    target,
		StartedAt: time.Now(),
		release: func() error {
			return runCommands(revert)
		},
	}
	if c.verify != nil {
		verify := c.verify(scenario, target)
		handle.running = func() bool {
			return runCommand(verify) == nil
		}
	}
	return handle, nil
}

func runCommand(command []string) error {
	if len(command) == 0 {
		return nil
	}
	out, err := exec.Command(command[0], command[1:]...).CombinedOutput()
	if err != nil {
		return errors.Errorf("command '%v' failed, err: %v, output: %v", strings.Join(command, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// runCommands runs every command and keeps going on failure, returning the
// first error seen. Revert paths must attempt every removal even when one
// rule is already gone.
func runCommands(commands [][]string) error {
	var firstErr error
	for _, command := range commands {
		if err := runCommand(command); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
