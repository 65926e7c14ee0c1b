package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/coursetrack/internal/cli/formatter"
)

func newCatalogCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect course catalogs",
	}
	cmd.AddCommand(newCatalogShowCmd(app), newCatalogValidateCmd(app))
	return cmd
}

func newCatalogShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show COURSE",
		Short: "List modules and lessons with completion marks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.deps.Progress.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			done := make(map[string]struct{})
			for _, id := range t.CompletedLessons() {
				done[id] = struct{}{}
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatCatalog(t.Catalog(), done))
			return nil
		},
	}
}

func newCatalogValidateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate COURSE",
		Short: "Check stored completions against the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.deps.Progress.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatValidation(st.Validation, st.DuplicateLessons))
			return nil
		},
	}
}
