package cmd

import (
	"fmt"

	"github.com/mfellner/squeezeoff/internal/submission"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <submission>",
		Short: "Verify a submission exposes the required functions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := submission.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("ok: package %s exposes Encode, Decode and HeaderBits\n", sub.Package)
			return nil
		},
	}
}
