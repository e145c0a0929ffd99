package isolate_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/mfellner/squeezeoff/internal/isolate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess stands in for the worker command when the executor
// re-executes the test binary. It only acts when the guard env var is set.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("SQUEEZEOFF_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("SQUEEZEOFF_HELPER_MODE") {
	case "sleep":
		time.Sleep(time.Minute)
		os.Exit(0)
	case "crash":
		fmt.Fprintln(os.Stderr, "simulated worker crash")
		os.Exit(3)
	}

	// Locate the worker arguments after the "--" separator.
	sep := -1
	for i, arg := range os.Args {
		if arg == "--" {
			sep = i
			break
		}
	}
	if sep < 0 || len(os.Args) < sep+6 {
		fmt.Fprintln(os.Stderr, "helper: unexpected arguments")
		os.Exit(2)
	}
	reqPath := os.Args[sep+3]
	respPath := os.Args[sep+5]
	if err := isolate.HandleFiles(reqPath, respPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}

func helperExecutor(mode string, timeout time.Duration) *isolate.ProcessExecutor {
	return &isolate.ProcessExecutor{
		Binary:  os.Args[0],
		Args:    []string{"-test.run=TestHelperProcess", "--"},
		Env:     []string{"SQUEEZEOFF_HELPER_PROCESS=1", "SQUEEZEOFF_HELPER_MODE=" + mode},
		Timeout: timeout,
	}
}

func TestProcessExecutorRoundTrip(t *testing.T) {
	path := writeCodec(t, goodCodec)
	ex := helperExecutor("", 30*time.Second)

	resp, err := ex.Run(context.Background(), &isolate.Request{
		Op:         isolate.OpEncode,
		Submission: path,
		Image:      [][]float64{{7, 9}},
	})
	require.NoError(t, err)
	require.Nil(t, resp.Err)
	require.NotNil(t, resp.Encoded)
	assert.Equal(t, [][2]int64{{7, 8}, {9, 8}}, resp.Encoded.VLC)
}

func TestProcessExecutorSubmissionFailure(t *testing.T) {
	path := writeCodec(t, panicCodec)
	ex := helperExecutor("", 30*time.Second)

	resp, err := ex.Run(context.Background(), &isolate.Request{
		Op:         isolate.OpEncode,
		Submission: path,
		Image:      [][]float64{{1}},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Err)
	assert.Contains(t, resp.Err.Message, "codec exploded")
	assert.NotEmpty(t, resp.Err.Frames)
}

func TestProcessExecutorTimeout(t *testing.T) {
	ex := helperExecutor("sleep", 200*time.Millisecond)

	resp, err := ex.Run(context.Background(), &isolate.Request{
		Op:         isolate.OpEncode,
		Submission: "ignored.go",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Err)
	assert.True(t, resp.Err.TimedOut)
	assert.Contains(t, resp.Err.Message, "timed out")
}

func TestProcessExecutorCrash(t *testing.T) {
	ex := helperExecutor("crash", 30*time.Second)

	resp, err := ex.Run(context.Background(), &isolate.Request{
		Op:         isolate.OpEncode,
		Submission: "ignored.go",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Err)
	assert.Contains(t, resp.Err.Message, "worker crashed")
	assert.Contains(t, resp.Err.Message, "simulated worker crash")
	assert.False(t, resp.Err.TimedOut)
}
