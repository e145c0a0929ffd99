package isolate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// ProcessExecutor runs each call in a fresh subprocess by re-executing the
// harness binary with the hidden worker command. No worker is ever reused,
// so no interpreter or runtime state survives between calls.
type ProcessExecutor struct {
	// Binary is the worker executable; defaults to the running executable.
	Binary string
	// Args are prepended before the worker arguments. Used by tests to
	// route through the test binary's helper process.
	Args []string
	// Env entries appended to the worker's environment.
	Env []string
	// Timeout bounds each call's wall-clock time; zero means no limit.
	// Expiry is reported as a timed-out CallError, distinct from a crash.
	Timeout time.Duration
}

func (p *ProcessExecutor) Run(ctx context.Context, req *Request) (*Response, error) {
	dir, err := os.MkdirTemp("", "squeezeoff-worker-*")
	if err != nil {
		return nil, fmt.Errorf("creating exchange dir: %w", err)
	}
	defer os.RemoveAll(dir)

	reqPath := filepath.Join(dir, "request.json")
	respPath := filepath.Join(dir, "response.json")
	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	if err := os.WriteFile(reqPath, reqData, 0o644); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	bin := p.Binary
	if bin == "" {
		bin, err = os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolving worker binary: %w", err)
		}
	}

	runCtx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, p.Args...), "worker", "--request", reqPath, "--response", respPath)
	cmd := exec.CommandContext(runCtx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if len(p.Env) > 0 {
		cmd.Env = append(os.Environ(), p.Env...)
	}

	runErr := cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return &Response{Err: &CallError{
			Message:  fmt.Sprintf("%s timed out after %s", req.Op, p.Timeout),
			TimedOut: true,
		}}, nil
	}

	respData, readErr := os.ReadFile(respPath)
	if readErr != nil {
		if runErr != nil {
			// The worker died without writing a response: a hard crash
			// rather than a captured submission failure.
			return &Response{Err: &CallError{
				Message: fmt.Sprintf("worker crashed: %v: %s", runErr, bytes.TrimSpace(stderr.Bytes())),
			}}, nil
		}
		return nil, fmt.Errorf("worker wrote no response: %w", readErr)
	}
	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("parsing worker response: %w", err)
	}
	return &resp, nil
}
