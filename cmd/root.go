package cmd

import (
	"github.com/mfellner/squeezeoff/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile     string
	flagVerbose bool
	logger      *zap.Logger
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "squeezeoff",
		Short: "Evaluation harness for the image-codec competition",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logger != nil {
				return nil
			}
			zcfg := zap.NewProductionConfig()
			if flagVerbose {
				zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = zcfg.Build()
			return err
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	root.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")
	root.AddCommand(newRunCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newImagesCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newWorkerCmd())
	return root
}
