package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mediacat/internal/auth"
	"mediacat/internal/catalog"
	"mediacat/internal/config"
	"mediacat/internal/logging"
)

func newUserCommand(ctx *commandContext) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage catalog user accounts",
	}

	userCmd.AddCommand(newUserAddCommand(ctx))
	userCmd.AddCommand(newUserListCommand(ctx))
	userCmd.AddCommand(newUserRemoveCommand(ctx))

	return userCmd
}

func newUserAddCommand(ctx *commandContext) *cobra.Command {
	var roleFlag string
	var passwordFlag string

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, ok := catalog.ParseRole(roleFlag)
			if !ok {
				return fmt.Errorf("unknown role %q (expected admin, editor, or viewer)", roleFlag)
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				password := passwordFlag
				if password == "" {
					var err error
					password, err = promptPassword(cmd)
					if err != nil {
						return err
					}
				}

				ttl := time.Duration(cfg.Auth.SessionTTLHours) * time.Hour
				svc, err := auth.New(store, ttl, logging.NewNop())
				if err != nil {
					return err
				}
				user, err := svc.CreateUser(cmd.Context(), args[0], password, role)
				if err != nil {
					if errors.Is(err, catalog.ErrDuplicateUsername) {
						return fmt.Errorf("user %q already exists", args[0])
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s user %s\n", user.Role, user.Username)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&roleFlag, "role", "viewer", "Account role: admin, editor, or viewer")
	cmd.Flags().StringVar(&passwordFlag, "password", "", "Password (prompted interactively when omitted)")
	return cmd
}

func promptPassword(cmd *cobra.Command) (string, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return "", errors.New("password required: pass --password or run interactively")
	}
	fmt.Fprint(cmd.OutOrStdout(), "Password: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func newUserListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				users, err := store.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				if len(users) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No users")
					return nil
				}
				rows := make([][]string, 0, len(users))
				for _, user := range users {
					rows = append(rows, []string{
						user.Username,
						string(user.Role),
						user.CreatedAt.Format("2006-01-02"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Username", "Role", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newUserRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <username>",
		Short: "Remove a user account and its sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				removed, err := store.RemoveUser(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("user %q not found", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed user %s\n", args[0])
				return nil
			})
		},
	}
}
