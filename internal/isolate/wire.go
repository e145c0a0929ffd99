// Package isolate runs a single submission call (encode or decode) in a
// separate worker process. Arguments and results cross the process boundary
// by value as JSON; the submission itself is never shared, only its path.
// A worker that panics, hangs, or corrupts its own runtime takes down that
// one call, not the harness.
package isolate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Op selects the submission capability a worker invokes.
type Op string

const (
	OpEncode Op = "encode"
	OpDecode Op = "decode"
)

// Request describes one isolated call. Image is set for encode; VLC and
// Header are set for decode.
type Request struct {
	Op         Op              `json:"op"`
	Submission string          `json:"submission"`
	Image      [][]float64     `json:"image,omitempty"`
	VLC        [][2]int64      `json:"vlc,omitempty"`
	Header     json.RawMessage `json:"header,omitempty"`
}

// EncodeOutput is the immutable artifact of a successful encode call. The
// header bit count is declared by the submission inside the worker and is
// trusted beyond non-negativity.
type EncodeOutput struct {
	VLC        [][2]int64      `json:"vlc"`
	Header     json.RawMessage `json:"header"`
	HeaderBits int64           `json:"header_bits"`
}

// Frame is one structured stack frame of a worker failure.
type Frame struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Func string `json:"func"`
}

// CallError is the structured failure of a single isolated call. It is final
// for the image being processed; calls are never retried.
type CallError struct {
	Message  string  `json:"message"`
	Frames   []Frame `json:"frames,omitempty"`
	TimedOut bool    `json:"timed_out,omitempty"`
}

func (e *CallError) Error() string { return e.Message }

// Trace renders the structured frames in a stack-trace-like form.
func (e *CallError) Trace() string {
	var b strings.Builder
	for _, f := range e.Frames {
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", f.Func, f.File, f.Line)
	}
	return b.String()
}

// Response carries the result of an isolated call back to the harness.
// Exactly one of Encoded, Image, or Err is set.
type Response struct {
	Encoded *EncodeOutput `json:"encoded,omitempty"`
	Image   [][]float64   `json:"image,omitempty"`
	Err     *CallError    `json:"error,omitempty"`
}

// Executor runs isolated calls. Run blocks until the worker completes or
// fails; submission failures come back inside the Response, while a non-nil
// error means the harness itself could not execute the call.
type Executor interface {
	Run(ctx context.Context, req *Request) (*Response, error)
}
