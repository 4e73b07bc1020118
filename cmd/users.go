package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Duongo16/vtm-apidocs/internal/admin"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage console accounts (admin only)",
	}
	cmd.AddCommand(newUsersListCmd())
	cmd.AddCommand(newUsersCreateCmd())
	cmd.AddCommand(newUsersUpdateCmd())
	cmd.AddCommand(newUsersDeleteCmd())
	return cmd
}

func newUsersListCmd() *cobra.Command {
	var filter admin.UserFilter
	var asJSON bool
	state := newEnum(admin.UserStatuses, "")
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			filter.Status = state.String()
			users, err := a.users.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				return a.printer.PrintJSON(users)
			}
			rows := make([][]string, 0, len(users))
			for _, u := range users {
				rows = append(rows, []string{u.ID.String(), u.Name, u.Email, u.Role, u.Status.String(), u.LastLoginAt.String()})
			}
			return a.printer.PrintTable([]string{"ID", "NAME", "EMAIL", "ROLE", "STATUS", "LAST LOGIN"}, rows)
		}),
	}
	cmd.Flags().StringVarP(&filter.Query, "query", "q", "", "Search name or email")
	cmd.Flags().StringVar(&filter.Role, "role", "", "Only this role")
	cmd.Flags().Var(state, "state", "Only this status: "+strings.Join(admin.UserStatuses, ", "))
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newUsersCreateCmd() *cobra.Command {
	var in admin.CreateUser
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			in.Name, in.Email, in.Role = strings.TrimSpace(in.Name), strings.TrimSpace(in.Email), strings.TrimSpace(in.Role)
			if in.Name == "" || in.Email == "" || in.Role == "" {
				return fmt.Errorf("--name, --email and --role are required")
			}
			if in.Password == "" {
				var err error
				if in.Password, err = readSecret(cmd, "Password for "+in.Email+": "); err != nil {
					return err
				}
			}
			if in.Password == "" {
				return fmt.Errorf("password must not be empty")
			}
			user, err := a.users.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printer.PrintJSON(user)
		}),
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&in.Role, "role", "DEV", "Role, for example DEV or ADMIN")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func newUsersUpdateCmd() *cobra.Command {
	var name, email, role, password string
	state := newEnum(admin.UserStatuses, "")
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an account; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			id := strings.TrimSpace(args[0])
			cur, err := findUser(cmd, a, id)
			if err != nil {
				return err
			}
			in := admin.UpdateUser{Name: cur.Name, Email: cur.Email, Role: cur.Role}
			flags := cmd.Flags()
			if flags.Changed("name") {
				in.Name = strings.TrimSpace(name)
			}
			if flags.Changed("email") {
				in.Email = strings.TrimSpace(email)
			}
			if flags.Changed("role") {
				in.Role = strings.TrimSpace(role)
			}
			if flags.Changed("password") {
				in.Password = password
			}
			if flags.Changed("state") {
				in.Status = admin.UserStatus(state.String())
			}
			user, err := a.users.Update(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			return a.printer.PrintJSON(user)
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "New display name")
	cmd.Flags().StringVar(&email, "email", "", "New email")
	cmd.Flags().StringVar(&role, "role", "", "New role")
	cmd.Flags().StringVar(&password, "password", "", "New password")
	cmd.Flags().Var(state, "state", "New status: "+strings.Join(admin.UserStatuses, ", "))
	return cmd
}

// findUser looks id up in the account list; the service has no single-user
// read.
func findUser(cmd *cobra.Command, a *appState, id string) (*admin.User, error) {
	users, err := a.users.List(cmd.Context(), admin.UserFilter{})
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID.String() == id {
			return &users[i], nil
		}
	}
	return nil, fmt.Errorf("no user with id %s", id)
}

func newUsersDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete user %s without --yes", args[0])
			}
			if err := a.users.Delete(cmd.Context(), strings.TrimSpace(args[0])); err != nil {
				return err
			}
			a.printer.Infof("Deleted user %s", args[0])
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the deletion")
	return cmd
}
