package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alexanderramin/coursetrack/internal/catalog"
	"github.com/alexanderramin/coursetrack/internal/clock"
	"github.com/alexanderramin/coursetrack/internal/config"
	"github.com/alexanderramin/coursetrack/internal/notify"
	"github.com/alexanderramin/coursetrack/internal/repository"
	"github.com/alexanderramin/coursetrack/internal/service"
	"github.com/alexanderramin/coursetrack/internal/session"
)

// Deps holds the wired components CLI commands run against.
type Deps struct {
	Log      *zap.Logger
	Sessions *session.Manager
	Progress *service.ProgressService
	Catalogs catalog.Source
	Hub      *notify.Hub
	Console  *Console
	Store    repository.KVStore
	Clock    clock.Clock
	Close    func() error
}

// BootFunc builds Deps from the loaded configuration. out receives console
// notifications.
type BootFunc func(ctx context.Context, cfg *config.Config, out io.Writer) (*Deps, error)

// App carries what commands need across the cobra tree. Config and deps are
// filled in by the root command before any subcommand runs.
type App struct {
	Config        *config.Config
	Boot          BootFunc
	IsInteractive func() bool

	deps *Deps
}

// Close releases everything Boot opened. Pending progress syncs are
// delivered first.
func (a *App) Close() error {
	if a.deps == nil || a.deps.Close == nil {
		return nil
	}
	err := a.deps.Close()
	a.deps = nil
	return err
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) boot(cmd *cobra.Command) error {
	if a.deps != nil {
		return nil
	}
	if a.Config == nil {
		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		a.Config = cfg
	}
	if a.Boot == nil {
		return errors.New("no boot function configured")
	}
	deps, err := a.Boot(cmd.Context(), a.Config, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("starting up: %w", err)
	}
	a.deps = deps
	return nil
}

// NewRootCmd creates the top-level "coursetrack" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "coursetrack",
		Short:         "Track lesson completion and sync course progress",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.boot(cmd)
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newLoginCmd(app),
		newLogoutCmd(app),
		newWhoamiCmd(app),
		newCatalogCmd(app),
		newProgressCmd(app),
		newLessonCmd(app),
		newPlayCmd(app),
		newServeCmd(app),
	)

	return root
}
