package main

import (
	"fmt"

	"store-backend/internal/config"
	"store-backend/internal/store"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			// Open aplica o schema
			st, err := store.Open(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer st.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date at %s\n", cfg.DatabasePath)
			return nil
		},
	}
}

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage API users",
	}

	var (
		username string
		staff    bool
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a user and print its API token",
		Long: `Create a user and print its API token.

Examples:
  store-api users add --username alice
  store-api users add --username admin --staff`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer st.Close()

			u, err := st.CreateUser(cmd.Context(), username, staff)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s (id=%d staff=%v)\ntoken: %s\n", u.Username, u.ID, u.Staff, u.Token)
			return nil
		},
	}
	add.Flags().StringVarP(&username, "username", "u", "", "username")
	add.Flags().BoolVar(&staff, "staff", false, "grant write access to the catalog")
	_ = add.MarkFlagRequired("username")

	cmd.AddCommand(add)
	return cmd
}
