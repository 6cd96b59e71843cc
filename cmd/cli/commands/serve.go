package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/pkg/core/services"
	"github.com/jakechorley/duty-roster/pkg/httpapi"
	"github.com/jakechorley/duty-roster/pkg/metrics"
)

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the solve API over HTTP",
		Long:  "Start the HTTP API. Stored roster routes need database.url; the result cache needs redis.addr.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				app.Cfg.HTTP.Addr = addr
			}

			deps := services.Collaborators{Logger: app.Logger, Metrics: metrics.New()}

			var store services.SolveRosterStore
			if app.Cfg.Database.URL != "" {
				database, err := app.OpenDatabase()
				if err != nil {
					return err
				}
				defer database.Close()
				store = database
			} else {
				app.Logger.Warn("No database configured, stored roster routes disabled")
			}

			resultCache, err := app.OpenCache()
			if err != nil {
				return err
			}
			defer resultCache.Close()
			deps.Cache = resultCache

			ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			app.Logger.Info("Starting API", zap.String("addr", app.Cfg.HTTP.Addr), zap.Bool("cache", resultCache.Enabled()))
			return httpapi.NewServer(app.Cfg, store, deps).Run(ctx)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (overrides http.addr)")

	return cmd
}
