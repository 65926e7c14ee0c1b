package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/alexanderramin/coursetrack/internal/cli/formatter"
	"github.com/alexanderramin/coursetrack/internal/domain"
	"github.com/alexanderramin/coursetrack/internal/progress"
)

func newPlayCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "play COURSE [LESSON]",
		Short: "Watch lessons in a terminal player and track completion",
		Long: "Opens a simulated video player. Watching 80% of a lesson marks it " +
			"complete; course progress is sent to the LMS after playback settles.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := app.deps.Progress.Open(ctx, args[0])
			if err != nil {
				return err
			}

			var start string
			if len(args) == 2 {
				start = args[1]
				if _, ok := domain.FindLesson(t.Catalog(), start); !ok {
					return fmt.Errorf("lesson %q is not part of course %s", start, args[0])
				}
			} else if start, err = chooseLesson(app, t); err != nil {
				return err
			}

			notices, unsubscribe := app.deps.Hub.Subscribe(t.CourseID())
			defer unsubscribe()
			if app.deps.Console != nil {
				unmute := app.deps.Console.Mute()
				defer unmute()
			}

			model := newPlayerModel(t, start, notices)
			p := tea.NewProgram(model,
				tea.WithContext(ctx),
				tea.WithAltScreen(),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("player: %w", err)
			}

			snap := t.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n",
				formatter.RenderProgress(snap.Progress, 24),
				formatter.Dim(fmt.Sprintf("%d/%d lessons", len(snap.CompletedLessons), snap.TotalLessons)))
			return nil
		},
	}
}

// chooseLesson asks for a starting lesson when a terminal is attached and
// otherwise resumes at the first lesson not yet completed.
func chooseLesson(app *App, t *progress.Tracker) (string, error) {
	lessons := t.Catalog().Lessons()
	if len(lessons) == 0 {
		return "", nil
	}
	resume := lessons[0].ID
	for _, l := range lessons {
		if !t.IsLessonCompleted(l.ID) {
			resume = l.ID
			break
		}
	}
	if !app.interactive() {
		return resume, nil
	}

	opts := make([]huh.Option[string], 0, len(lessons))
	for _, l := range lessons {
		mark := "○"
		if t.IsLessonCompleted(l.ID) {
			mark = "✔"
		}
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s %s", mark, l.Name), l.ID))
	}
	chosen := resume
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Start with").
			Options(opts...).
			Value(&chosen),
	)).WithTheme(courseHuhTheme()).WithShowHelp(false)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("choose lesson: %w", err)
	}
	return chosen, nil
}
