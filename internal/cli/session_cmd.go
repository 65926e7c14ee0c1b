package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/alexanderramin/coursetrack/internal/cli/formatter"
	"github.com/alexanderramin/coursetrack/internal/domain"
	"github.com/alexanderramin/coursetrack/internal/session"
)

func newLoginCmd(app *App) *cobra.Command {
	var email, password, token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the LMS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				s   *domain.Session
				err error
			)
			if token != "" {
				s, err = app.deps.Sessions.LoginWithToken(ctx, token)
			} else {
				if email == "" || password == "" {
					if !app.interactive() {
						return errors.New("--email and --password are required (or pass --token)")
					}
					if err := loginForm(&email, &password).Run(); err != nil {
						return fmt.Errorf("login form: %w", err)
					}
				}
				stop := func() {}
				if app.interactive() {
					stop = formatter.StartSpinner(cmd.ErrOrStderr(), "Signing in...")
				}
				s, err = app.deps.Sessions.Login(ctx, email, password)
				stop()
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.StyleGreen.Render("✔ Logged in"))
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatSession(s, app.deps.Clock.Now()))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&token, "token", "", "use an existing access token instead of credentials")
	return cmd
}

func loginForm(email, password *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Email").Value(email).Validate(func(s string) error {
				if s == "" {
					return errors.New("email is required")
				}
				return nil
			}),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(password),
		),
	).WithTheme(courseHuhTheme()).WithShowHelp(false)
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.deps.Sessions.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("Logged out."))
			return nil
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in learner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.deps.Sessions.Current(cmd.Context())
			if errors.Is(err, session.ErrNoSession) {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("Not logged in. Run: coursetrack login"))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatSession(s, app.deps.Clock.Now()))
			return nil
		},
	}
}
