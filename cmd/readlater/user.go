package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "manage accounts",
	}
	cmd.AddCommand(newUserAddCmd(), newUserTokenCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var (
		flags    commonFlags
		username string
		email    string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "create an account and print its bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("--username is required")
			}
			a, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()
			user, token, err := a.userSvc.Create(context.Background(), username, email)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user_id: %s\ntoken: %s\n", user.ID, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.configPath, "config", "", "path to config.json")
	cmd.Flags().StringVar(&flags.envFile, "env-file", "", "optional .env file with secret overrides")
	cmd.Flags().StringVar(&username, "username", "", "account name used in links")
	cmd.Flags().StringVar(&email, "email", "", "contact email")
	return cmd
}

func newUserTokenCmd() *cobra.Command {
	var (
		flags    commonFlags
		username string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "issue a fresh bearer token for an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("--username is required")
			}
			a, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()
			user, err := a.userSvc.GetByUsername(context.Background(), username)
			if err != nil {
				return fmt.Errorf("find user: %w", err)
			}
			token, err := a.userSvc.IssueToken(user)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.configPath, "config", "", "path to config.json")
	cmd.Flags().StringVar(&flags.envFile, "env-file", "", "optional .env file with secret overrides")
	cmd.Flags().StringVar(&username, "username", "", "account name")
	return cmd
}
