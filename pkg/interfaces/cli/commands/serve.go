package commands

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/relief/pkg/domain/entities"
	"github.com/vsinha/relief/pkg/infrastructure/config"
	"github.com/vsinha/relief/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/relief/pkg/interfaces/httpapi"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	addr      string
	hubsFile  string
	campsFile string
}

func newServeCommand(global *globalOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the allocation HTTP API",
		Long: `Run the allocation HTTP API.

With the memory backend the store starts empty unless --hubs (and
optionally --camps) name CSV files to preload.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := global.load()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			if opts.addr != "" {
				cfg.Server.Addr = opts.addr
			}

			var seed *entities.Snapshot
			if opts.hubsFile != "" {
				if cfg.Store.Backend != config.BackendMemory {
					return errors.New("--hubs only applies to the memory backend, use seed for persistent stores")
				}
				seed, err = csv.NewLoader().LoadSnapshot(opts.hubsFile, opts.campsFile)
				if err != nil {
					return errors.Wrap(err, "failed to load seed data")
				}
			}

			app, err := NewApp(cfg, logger, seed)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			ln, err := net.Listen("tcp", cfg.Server.Addr)
			if err != nil {
				return errors.Wrapf(err, "failed to listen on %s", cfg.Server.Addr)
			}
			return Serve(ctx, app, ln)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address override")
	cmd.Flags().StringVar(&opts.hubsFile, "hubs", "", "Hubs CSV to preload into the memory backend")
	cmd.Flags().StringVar(&opts.campsFile, "camps", "", "Camps CSV to preload alongside --hubs")
	return cmd
}

// Serve runs the API on ln until ctx is cancelled, then drains in-flight
// requests and pending event deliveries
func Serve(ctx context.Context, app *App, ln net.Listener) error {
	handler := httpapi.NewHandler(app.Service, app.Logger)
	router := httpapi.NewRouter(handler, httpapi.RouterOptions{
		Metrics:    app.Metrics.Handler(),
		Events:     app.Events,
		RatePerSec: app.Config.Server.RatePerSec,
		Burst:      app.Config.Server.Burst,
	})
	srv := httpapi.NewServer(app.Config.Server, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.Logger.Info("relief API listening",
			zap.String("addr", ln.Addr().String()),
			zap.String("backend", app.Config.Store.Backend))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server failed")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.Logger.Info("shutting down relief API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "graceful shutdown failed")
		}
		app.Events.Wait()
		return nil
	})
	return g.Wait()
}
