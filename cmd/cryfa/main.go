// Command cryfa is a thin driver over the container and block
// pipeline, used to exercise them end to end. Real FASTQ/SAM/BAM
// parsing is an external collaborator, so this tool operates on
// synthetic in-process read fixtures rather than parsing any file
// format itself.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	logger := logrus.New()

	root := &cobra.Command{
		Use:   "cryfa",
		Short: "Compress and decompress synthetic DNA read streams",
	}
	root.PersistentFlags().String("log-level", "warn", "logrus level: debug, info, warn, error")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		levelFlag, _ := cmd.Flags().GetString("log-level")
		level, err := logrus.ParseLevel(levelFlag)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
		return nil
	}

	root.AddCommand(newRoundtripCmd(logger))
	return root
}
