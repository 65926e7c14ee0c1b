package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/alexanderramin/coursetrack/internal/cli/formatter"
)

func newProgressCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show, sync or reset course progress",
	}
	cmd.AddCommand(
		newProgressShowCmd(app),
		newProgressSyncCmd(app),
		newProgressResetCmd(app),
	)
	return cmd
}

func newProgressShowCmd(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show COURSE",
		Short: "Show course progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.deps.Progress.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatStatus(st))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print machine-readable output")
	return cmd
}

func newProgressSyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync COURSE",
		Short: "Push the current percentage to the LMS now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stop := func() {}
			if app.interactive() {
				stop = formatter.StartSpinner(cmd.ErrOrStderr(), "Sending progress to the LMS...")
			}
			err := app.deps.Progress.Sync(cmd.Context(), args[0])
			stop()
			if err != nil {
				return fmt.Errorf("syncing progress: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s progress sent for %s\n", formatter.StyleGreen.Render("✔"), args[0])
			return nil
		},
	}
}

func newProgressResetCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset COURSE",
		Short: "Forget locally stored completions for a course",
		Long: "Clears the completed-lesson set kept on this machine. The percentage " +
			"already stored by the LMS is not changed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			courseID := args[0]
			if !yes {
				if !app.interactive() {
					return errors.New("refusing to reset without --yes")
				}
				confirmed := false
				form := huh.NewForm(huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf("Reset local progress for %s?", courseID)).
						Value(&confirmed),
				)).WithTheme(courseHuhTheme()).WithShowHelp(false)
				if err := form.Run(); err != nil {
					return fmt.Errorf("confirm: %w", err)
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("Cancelled."))
					return nil
				}
			}
			if err := app.deps.Progress.Reset(cmd.Context(), courseID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s local progress cleared for %s\n", formatter.StyleGreen.Render("✔"), courseID)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}
