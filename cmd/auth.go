package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Duongo16/vtm-apidocs/internal/admin"
	"github.com/Duongo16/vtm-apidocs/internal/session"
)

func newLoginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			email = strings.TrimSpace(email)
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if password == "" {
				var err error
				if password, err = readSecret(cmd, "Password: "); err != nil {
					return err
				}
			}
			login, err := a.auth.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.sessions.Save(&session.Session{Token: login.Token, User: login.User, SavedAt: time.Now()}); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			a.logger.Debug("session saved", "path", a.sessions.Path)
			a.printer.Infof("Logged in as %s (%s)", login.User.Email, login.User.Role)
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var name, email, password, role string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			name, email, role = strings.TrimSpace(name), strings.TrimSpace(email), strings.TrimSpace(role)
			if name == "" || email == "" {
				return fmt.Errorf("--name and --email are required")
			}
			if password == "" {
				var err error
				if password, err = readSecret(cmd, "Password: "); err != nil {
					return err
				}
			}
			if password == "" {
				return fmt.Errorf("password must not be empty")
			}
			msg, err := a.auth.Register(cmd.Context(), name, email, password, role)
			if err != nil {
				return err
			}
			if msg == "" {
				msg = "Registered " + email
			}
			a.printer.Infof("%s", msg)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	cmd.Flags().StringVar(&role, "role", "DEV", "Role, for example DEV or ADMIN")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget it locally",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			if err := a.auth.Logout(cmd.Context()); err != nil {
				// The local session is dropped either way.
				a.logger.Warn("server logout failed", "err", err)
			}
			if err := a.sessions.Clear(); err != nil {
				return fmt.Errorf("clear session: %w", err)
			}
			a.printer.Infof("Logged out")
			return nil
		}),
	}
}

func newWhoamiCmd() *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			if local {
				return printLocalSession(a)
			}
			user, err := a.auth.Me(cmd.Context())
			if err != nil {
				return err
			}
			return a.printer.PrintJSON(user)
		}),
	}
	cmd.Flags().BoolVar(&local, "local", false, "Show the saved session without asking the server")
	return cmd
}

func printLocalSession(a *appState) error {
	sess, err := a.sessions.Load()
	if err != nil {
		return err
	}
	out := struct {
		User      admin.User `json:"user"`
		SavedAt   time.Time  `json:"savedAt"`
		Subject   string     `json:"subject,omitempty"`
		ExpiresAt *time.Time `json:"expiresAt,omitempty"`
		Expired   bool       `json:"expired"`
	}{User: sess.User, SavedAt: sess.SavedAt, Expired: sess.Expired(time.Now())}
	if claims, err := sess.Claims(); err == nil {
		out.Subject = claims.Subject
		if !claims.ExpiresAt.IsZero() {
			out.ExpiresAt = &claims.ExpiresAt
		}
	} else {
		a.logger.Warn("saved token is not a readable JWT", "err", err)
	}
	return a.printer.PrintJSON(out)
}
