package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/mfellner/squeezeoff/internal/isolate"
	"github.com/mfellner/squeezeoff/internal/mat"
	"github.com/mfellner/squeezeoff/internal/vlc"
	"go.uber.org/zap"
)

// ImageRecord is the per-image evaluation state, filled in stage by stage.
// A record with ExecErr set got no further than the failing call; a record
// with nil bit counts had a payload the accountant rejected.
type ImageRecord struct {
	Name string
	X    *mat.Matrix

	Enc     *isolate.EncodeOutput
	Z       *mat.Matrix
	Clipped *mat.Matrix
	RMS     float64

	VLCBits   *int64
	TotalBits *int64
	VLCErr    string

	ExecErr *isolate.CallError
	Failed  bool
}

type EvalOpts struct {
	// Submission is the path handed to every worker process.
	Submission string
	Executor   isolate.Executor
	// Parallel bounds concurrent encode workers; decode and accounting run
	// in image order.
	Parallel int
	Logger   *zap.Logger
}

// Evaluate drives the full pipeline for an ordered list of image
// identifiers. Submission failures are folded into the records; a returned
// error means the harness itself could not proceed (e.g. an unreadable
// reference image) and aborts the run.
func Evaluate(ctx context.Context, opts *EvalOpts, imageIDs []string) ([]*ImageRecord, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	records := make([]*ImageRecord, len(imageIDs))
	for i, id := range imageIDs {
		name, x, err := LoadImage(id)
		if err != nil {
			return nil, fmt.Errorf("loading image %s: %w", id, err)
		}
		records[i] = &ImageRecord{Name: name, X: x}
	}

	// Encode phase. Every image's encode is independent, so these fan out
	// over the pool; each image is encoded exactly once.
	jobs := make([]Job, len(records))
	for idx := range records {
		r := records[idx]
		jobs[idx] = func() error {
			r.runEncode(ctx, opts, logger)
			return nil
		}
	}
	RunPool(opts.Parallel, jobs)

	// Decode and accounting phase, in image order. Each image's decode
	// strictly follows its own encode; there is no cross-image dependency.
	for _, r := range records {
		if r.Failed {
			continue
		}
		r.runDecode(ctx, opts, logger)
		if r.Failed {
			continue
		}
		r.Clipped = Clip(r.Z)
		r.RMS = RMS(r.X, r.Clipped)
		r.account(logger)
	}

	return records, nil
}

func (r *ImageRecord) runEncode(ctx context.Context, opts *EvalOpts, logger *zap.Logger) {
	resp, err := opts.Executor.Run(ctx, &isolate.Request{
		Op:         isolate.OpEncode,
		Submission: opts.Submission,
		Image:      r.X.ToRows(),
	})
	if err != nil {
		r.fail(&isolate.CallError{Message: err.Error()}, logger, "encode")
		return
	}
	if resp.Err != nil {
		r.fail(resp.Err, logger, "encode")
		return
	}
	if resp.Encoded == nil {
		r.fail(&isolate.CallError{Message: "encode worker returned no artifact"}, logger, "encode")
		return
	}
	r.Enc = resp.Encoded
}

func (r *ImageRecord) runDecode(ctx context.Context, opts *EvalOpts, logger *zap.Logger) {
	resp, err := opts.Executor.Run(ctx, &isolate.Request{
		Op:         isolate.OpDecode,
		Submission: opts.Submission,
		VLC:        r.Enc.VLC,
		Header:     r.Enc.Header,
	})
	if err != nil {
		r.fail(&isolate.CallError{Message: err.Error()}, logger, "decode")
		return
	}
	if resp.Err != nil {
		r.fail(resp.Err, logger, "decode")
		return
	}
	z, err := mat.FromRows(resp.Image)
	if err != nil {
		r.fail(&isolate.CallError{Message: fmt.Sprintf("decoded image: %v", err)}, logger, "decode")
		return
	}
	r.Z = z
}

// account runs the bit accountant and the budget comparison. A malformed
// payload leaves both counts nil and fails the record without raising.
func (r *ImageRecord) account(logger *zap.Logger) {
	total, payload, err := TotalBits(r.Enc)
	if err != nil {
		var malformed *vlc.MalformedError
		if errors.As(err, &malformed) {
			r.VLCErr = err.Error()
			r.Failed = true
			logger.Warn("malformed payload", zap.String("image", r.Name), zap.String("reason", err.Error()))
			return
		}
		r.VLCErr = err.Error()
		r.Failed = true
		return
	}
	r.VLCBits = &payload
	r.TotalBits = &total
	if total > BitBudget {
		r.Failed = true
	}
}

func (r *ImageRecord) fail(callErr *isolate.CallError, logger *zap.Logger, op string) {
	r.ExecErr = callErr
	r.Failed = true
	logger.Warn("submission call failed",
		zap.String("image", r.Name),
		zap.String("op", op),
		zap.String("error", callErr.Message))
}
