package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "readlater",
		Short: "readlater save and import backend",
	}
	rootCmd.AddCommand(newRunCmd(), newUserCmd(), newImportCmd())

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
