package cmd

import (
	"fmt"

	"github.com/mfellner/squeezeoff/internal/samples"
	"github.com/spf13/cobra"
)

func newImagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "images",
		Short: "List the bundled sample images",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Bundled samples:")
			for _, name := range samples.List() {
				fmt.Printf("  - %s%s\n", samples.Scheme, name)
			}
			return nil
		},
	}
}
