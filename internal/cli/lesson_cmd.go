package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/coursetrack/internal/cli/formatter"
	"github.com/alexanderramin/coursetrack/internal/progress"
)

func newLessonCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lesson",
		Short: "Record lesson activity",
	}
	cmd.AddCommand(newLessonCompleteCmd(app), newLessonEventCmd(app))
	return cmd
}

func newLessonCompleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "complete COURSE LESSON",
		Short: "Mark a lesson complete",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			added, snap, err := app.deps.Progress.CompleteLesson(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			printLessonResult(cmd, args[1], added, snap)
			return nil
		},
	}
}

func newLessonEventCmd(app *App) *cobra.Command {
	var at, duration float64

	cmd := &cobra.Command{
		Use:   "event COURSE LESSON",
		Short: "Report a playback position for a lesson",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			added, snap, err := app.deps.Progress.RecordPlayback(cmd.Context(), args[0], args[1], at, duration)
			if err != nil {
				return err
			}
			printLessonResult(cmd, args[1], added, snap)
			return nil
		},
	}

	cmd.Flags().Float64Var(&at, "at", 0, "current playback position in seconds")
	cmd.Flags().Float64Var(&duration, "duration", 0, "video duration in seconds")
	_ = cmd.MarkFlagRequired("at")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}

func printLessonResult(cmd *cobra.Command, lessonID string, added bool, snap progress.Snapshot) {
	out := cmd.OutOrStdout()
	if added {
		fmt.Fprintf(out, "%s %s completed\n", formatter.StyleGreen.Render("✔"), lessonID)
	} else {
		fmt.Fprintf(out, "%s %s unchanged\n", formatter.Dim("·"), lessonID)
	}
	fmt.Fprintf(out, "%s %s\n", formatter.RenderProgress(snap.Progress, 24),
		formatter.Dim(fmt.Sprintf("%d/%d lessons", len(snap.CompletedLessons), snap.TotalLessons)))
}
