package checker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// terminateGrace is how long a sampled utility gets to exit after SIGTERM
// before it is killed.
const terminateGrace = 2 * time.Second

// osExecutor is the real CommandExecutor that uses os/exec.
type osExecutor struct{}

func (e *osExecutor) Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error) {
	cmd := exec.CommandContext(ctx, name, args...)
	stdout, err = cmd.Output()
	if exitErr, ok := err.(*exec.ExitError); ok {
		stderr = exitErr.Stderr
	}
	return stdout, stderr, err
}

// osSampler runs the sniff utility against a ring for a fixed window and
// terminates it when the window ends.
type osSampler struct {
	command string
	args    []string
	env     map[string]string
}

func (s *osSampler) Sample(ctx context.Context, ring string, window time.Duration) (Sample, error) {
	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	args := append([]string{ring}, s.args...)
	cmd := exec.CommandContext(ctx, s.command, args...)
	cmd.Env = mergeEnv(os.Environ(), s.env)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = terminateGrace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Sample{}, fmt.Errorf("start: %w", err)
	}
	err := cmd.Wait()
	sample := Sample{
		Output:  stdout.Bytes(),
		Stderr:  stderr.Bytes(),
		Elapsed: time.Since(start),
	}
	// Termination at the end of the window is the normal way out.
	if err != nil && ctx.Err() == nil {
		return sample, fmt.Errorf("exited before the sampling window ended: %w", err)
	}
	return sample, nil
}

// mergeEnv appends defaults for variables not already present in base.
func mergeEnv(base []string, defaults map[string]string) []string {
	if len(defaults) == 0 {
		return base
	}
	present := make(map[string]bool, len(base))
	for _, kv := range base {
		if k, _, ok := strings.Cut(kv, "="); ok {
			present[k] = true
		}
	}
	env := append([]string(nil), base...)
	for k, v := range defaults {
		if !present[k] {
			env = append(env, k+"="+v)
		}
	}
	return env
}
