package cmd

import (
	"github.com/mfellner/squeezeoff/internal/isolate"
	"github.com/spf13/cobra"
)

var (
	flagWorkerRequest  string
	flagWorkerResponse string
)

// newWorkerCmd is the hidden entry point the harness re-executes itself
// with: it runs exactly one submission call and writes the response file.
// Submission failures are captured in the response; a nonzero exit from this
// command means the worker itself broke.
func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "worker",
		Short:  "Run one isolated submission call (internal)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return isolate.HandleFiles(flagWorkerRequest, flagWorkerResponse)
		},
	}
	cmd.Flags().StringVar(&flagWorkerRequest, "request", "", "request file path")
	cmd.Flags().StringVar(&flagWorkerResponse, "response", "", "response file path")
	cmd.MarkFlagRequired("request")
	cmd.MarkFlagRequired("response")
	return cmd
}
