package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	var (
		flags    commonFlags
		username string
		path     string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "import a csv file of links for an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || path == "" {
				return fmt.Errorf("--user and --file are required")
			}
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()

			a, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			user, err := a.userSvc.GetByUsername(ctx, username)
			if err != nil {
				return fmt.Errorf("find user: %w", err)
			}
			ic, err := a.importSvc.ImportFile(ctx, user.ID, file)
			if ic != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "imported: %d\nfailed: %d\n", ic.CountImported, ic.CountFailed)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&flags.configPath, "config", "", "path to config.json")
	cmd.Flags().StringVar(&flags.envFile, "env-file", "", "optional .env file with secret overrides")
	cmd.Flags().StringVar(&username, "user", "", "account name to import into")
	cmd.Flags().StringVar(&path, "file", "", "csv file to import")
	return cmd
}
