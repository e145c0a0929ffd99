package isolate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
)

// DockerExecutor runs each call in a throwaway container. The harness binary
// and the submission source are bind-mounted read-only and the worker
// command runs against an exchange directory, so the container needs no
// network and writes nothing outside the exchange mount.
type DockerExecutor struct {
	Image       string
	Timeout     time.Duration
	CPULimit    float64
	MemoryLimit int64
	// Binary is the worker executable to mount; defaults to the running
	// executable. It must be runnable inside Image.
	Binary string
}

func (d *DockerExecutor) Run(ctx context.Context, req *Request) (*Response, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	defer cli.Close()

	dir, err := os.MkdirTemp("", "squeezeoff-worker-*")
	if err != nil {
		return nil, fmt.Errorf("creating exchange dir: %w", err)
	}
	defer os.RemoveAll(dir)

	bin := d.Binary
	if bin == "" {
		bin, err = os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolving worker binary: %w", err)
		}
	}

	subAbs, err := filepath.Abs(req.Submission)
	if err != nil {
		return nil, fmt.Errorf("resolving submission path: %w", err)
	}
	subInfo, err := os.Stat(subAbs)
	if err != nil {
		return nil, fmt.Errorf("resolving submission path: %w", err)
	}
	mountSrc := subAbs
	subInContainer := "/submission"
	if !subInfo.IsDir() {
		mountSrc = filepath.Dir(subAbs)
		subInContainer = "/submission/" + filepath.Base(subAbs)
	}

	// The request the container sees points at the mounted submission.
	inner := *req
	inner.Submission = subInContainer
	reqData, err := json.Marshal(&inner)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "request.json"), reqData, 0o644); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	mounts := []mount.Mount{
		{Type: mount.TypeBind, Source: dir, Target: "/exchange"},
		{Type: mount.TypeBind, Source: bin, Target: "/squeezeoff", ReadOnly: true},
		{Type: mount.TypeBind, Source: mountSrc, Target: "/submission", ReadOnly: true},
	}

	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: mounts,
		Init:   &initTrue,
	}
	if d.CPULimit > 0 {
		hostCfg.NanoCPUs = int64(d.CPULimit * 1e9)
	}
	if d.MemoryLimit > 0 {
		hostCfg.Memory = d.MemoryLimit
	}

	containerCfg := &container.Config{
		Image:  d.Image,
		Cmd:    []string{"/squeezeoff", "worker", "--request", "/exchange/request.json", "--response", "/exchange/response.json"},
		Labels: map[string]string{"squeezeoff": "true"},
	}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}
	containerID := createResp.ID
	defer func() {
		cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	if _, err := cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container: %w", err)
	}

	waitCtx := ctx
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	waitResult := cli.ContainerWait(waitCtx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	var exitCode int
	for done := false; !done; {
		select {
		case err := <-waitResult.Error:
			if err != nil {
				cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
				return &Response{Err: &CallError{
					Message:  fmt.Sprintf("%s timed out after %s", req.Op, d.Timeout),
					TimedOut: true,
				}}, nil
			}
			// nil error means no error on this channel; wait for result
		case status := <-waitResult.Result:
			exitCode = int(status.StatusCode)
			done = true
		}
	}

	respData, readErr := os.ReadFile(filepath.Join(dir, "response.json"))
	if readErr != nil {
		if exitCode != 0 {
			return &Response{Err: &CallError{
				Message: fmt.Sprintf("worker crashed with exit code %d: %s", exitCode, containerLogs(cli, containerID)),
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

func containerLogs(cli *client.Client, containerID string) string {
	logReader, err := cli.ContainerLogs(context.Background(), containerID, client.ContainerLogsOptions{
		ShowStdout: true, ShowStderr: true, Tail: "20",
	})
	if err != nil {
		return ""
	}
	defer logReader.Close()
	data, _ := io.ReadAll(logReader)
	return string(data)
}
