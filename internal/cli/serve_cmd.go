package cli

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/coursetrack/internal/cli/formatter"
	"github.com/alexanderramin/coursetrack/internal/server"
)

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local companion agent for browser players",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := net.JoinHostPort(app.Config.Server.Host, strconv.Itoa(app.Config.Server.Port))
			srv := server.New(server.Deps{
				Progress: app.deps.Progress,
				Hub:      app.deps.Hub,
				Store:    app.deps.Store,
				Logger:   app.deps.Log,
			})
			fmt.Fprintf(cmd.OutOrStdout(), "%s listening on http://%s %s\n",
				formatter.StyleGreen.Render("●"), addr, formatter.Dim("(ctrl+c to stop)"))
			return srv.Start(ctx, addr)
		},
	}
}
