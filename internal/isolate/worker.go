package isolate

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/mfellner/squeezeoff/internal/submission"
)

// Handle executes one request in the current process. It is the body of the
// worker command: the submission is re-loaded from its path here, so nothing
// leaks in from the harness process. All failure modes are converted into a
// structured CallError on the response, never a raised panic.
func Handle(req *Request) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = &Response{Err: &CallError{
				Message: fmt.Sprintf("%s panicked: %v", req.Op, r),
				Frames:  stackFrames(3),
			}}
		}
	}()

	sub, err := submission.Load(req.Submission)
	if err != nil {
		return &Response{Err: &CallError{Message: err.Error()}}
	}

	switch req.Op {
	case OpEncode:
		stream, header := sub.Encode(req.Image)
		headerBits := sub.HeaderBits(header)
		if headerBits < 0 {
			return &Response{Err: &CallError{
				Message: fmt.Sprintf("HeaderBits returned negative count %d", headerBits),
			}}
		}
		rawHeader, err := json.Marshal(header)
		if err != nil {
			return &Response{Err: &CallError{
				Message: fmt.Sprintf("header is not serializable: %v", err),
			}}
		}
		return &Response{Encoded: &EncodeOutput{
			VLC:        stream,
			Header:     rawHeader,
			HeaderBits: int64(headerBits),
		}}
	case OpDecode:
		var header interface{}
		if len(req.Header) > 0 {
			if err := json.Unmarshal(req.Header, &header); err != nil {
				return &Response{Err: &CallError{
					Message: fmt.Sprintf("unpacking header: %v", err),
				}}
			}
		}
		return &Response{Image: sub.Decode(req.VLC, header)}
	}
	return &Response{Err: &CallError{Message: fmt.Sprintf("unknown operation %q", req.Op)}}
}

// HandleFiles reads a request file, executes it, and writes the response
// file. Worker processes exchange these files with the harness; the exit
// code stays zero for submission failures, which travel in the response.
func HandleFiles(reqPath, respPath string) error {
	data, err := os.ReadFile(reqPath)
	if err != nil {
		return fmt.Errorf("reading request: %w", err)
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("parsing request: %w", err)
	}
	resp := Handle(&req)
	out, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshaling response: %w", err)
	}
	if err := os.WriteFile(respPath, out, 0o644); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}

// stackFrames captures the current goroutine's stack as structured frames,
// skipping the innermost skip frames (the capture machinery itself).
func stackFrames(skip int) []Frame {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	var out []Frame
	for {
		fr, more := frames.Next()
		out = append(out, Frame{File: fr.File, Line: fr.Line, Func: fr.Function})
		if !more || len(out) >= 32 {
			break
		}
	}
	return out
}
