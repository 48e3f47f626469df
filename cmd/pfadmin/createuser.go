package main

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"personalfinance/internal/auth"
)

func newCreateUserCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "create-user <username>",
		Short: "Create a login user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := strings.TrimSpace(args[0])
			if username == "" {
				return fmt.Errorf("username is required")
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			existing, err := db.GetUserByName(username)
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("user %q already exists", username)
			}

			if password == "" {
				fmt.Print("Password: ")
				raw, err := term.ReadPassword(int(syscall.Stdin))
				fmt.Println()
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = string(raw)
			}
			if len(password) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}

			id, err := db.CreateUser(username, auth.HashPassword(password))
			if err != nil {
				return err
			}
			fmt.Printf("Created user %s (id %d)\n", username, id)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password (prompted if omitted)")
	return cmd
}
