package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"fleetworks/depot/pkg/app"
	"fleetworks/depot/pkg/auth"
	"fleetworks/depot/pkg/cli"
	"fleetworks/depot/pkg/identity"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage depot users",
}

var userCreateFlags struct {
	email         string
	name          string
	role          string
	password      string
	passwordStdin bool
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	Long: `Create an active user account. This is how the first administrator is
added to a new installation.

Examples:
  # Read the password from stdin
  echo "$ADMIN_PASSWORD" | depot user create --email admin@example.com --name Admin --role admin --password-stdin`,
	Args: cobra.NoArgs,
	RunE: runUserCreate,
}

func init() {
	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)

	f := userCreateCmd.Flags()
	f.StringVar(&userCreateFlags.email, "email", "", "login email (required)")
	f.StringVar(&userCreateFlags.name, "name", "", "display name (required)")
	f.StringVar(&userCreateFlags.role, "role", string(identity.RoleViewer), "role: admin, manager, technician or viewer")
	f.StringVar(&userCreateFlags.password, "password", "", "password (prefer --password-stdin)")
	f.BoolVar(&userCreateFlags.passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("name")
	userCreateCmd.MarkFlagsMutuallyExclusive("password", "password-stdin")
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	role, err := identity.ParseRole(userCreateFlags.role)
	if err != nil {
		return err
	}

	password := userCreateFlags.password
	if userCreateFlags.passwordStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password from stdin: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return errors.New("a password is required: use --password-stdin")
	}

	f, err := formatter()
	if err != nil {
		return err
	}

	return withApp(cmd, "user create", func(ctx context.Context, a *app.App) error {
		u, err := a.Auth.CreateUser(ctx, auth.CreateUserInput{
			Email:    userCreateFlags.email,
			Name:     userCreateFlags.name,
			Password: password,
			Role:     role,
		})
		if err != nil {
			return err
		}

		t := cli.Table{Headers: []string{"id", "email", "name", "role"}}
		t.AddRow(u.ID, u.Email, u.Name, string(u.Role))
		return f.FormatTo(cmd.OutOrStdout(), t)
	})
}
