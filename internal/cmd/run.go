package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sunwardhq/sunward/internal/bus"
	"github.com/sunwardhq/sunward/internal/engine"
	"github.com/sunwardhq/sunward/internal/health"
	"github.com/sunwardhq/sunward/internal/heartbeat"
	"github.com/sunwardhq/sunward/internal/ledger"
	"github.com/sunwardhq/sunward/internal/presence"
	"github.com/sunwardhq/sunward/internal/version"
	"golang.org/x/sync/errgroup"
)

var runCmd = cobra.Command{
	Use:   "run",
	Short: "Run the scheduler",
	RunE:  run,
}

func run(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	logger.Info("sunward starting", slog.String("version", version.BuildVersion))

	resolver, err := loadResolver(logger)
	if err != nil {
		return err
	}
	if gaps := resolver.CoverageGaps(time.Now()); len(gaps) > 0 {
		logger.Warn("rule set does not cover the full day",
			slog.Int("gaps", len(gaps)),
			slog.Time("first", gaps[0]),
		)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := ledger.NewSQLStore(viper.GetString("ledger.path"))
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	defer func() { _ = store.Close() }()

	led := ledger.New(store, logger.With(slog.String("component", "ledger")))
	if err = led.Load(ctx); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	if err = led.Prune(ctx, viper.GetDuration("ledger.retention")); err != nil {
		logger.Error("failed to prune ledger", "err", err)
	}

	client := bus.NewClient(
		viper.GetString("mqtt.url"),
		viper.GetString("mqtt.clientId"),
		logger.With(slog.String("component", "mqtt")),
	)
	if err = client.Connect(viper.GetDuration("mqtt.connectTimeout")); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	defer client.Disconnect()

	topics := bus.Topics{
		Control: viper.GetString("topics.control"),
		Events:  viper.GetString("topics.events"),
	}

	tracker := presence.New(client, topics, viper.GetDuration("presence.timeout"), logger.With(slog.String("component", "presence")))
	emitter := heartbeat.New(client, topics, viper.GetDuration("heartbeat.interval"), logger.With(slog.String("component", "heartbeat")))
	eng := engine.New(resolver, led, client, topics, tracker,
		viper.GetDuration("engine.interval"),
		viper.GetDuration("engine.applyTimeout"),
		logger.With(slog.String("component", "engine")),
	)
	h := health.New(tracker, logger.With(slog.String("component", "health")))

	// the ledger is loaded: run the first scheduling check right away rather
	// than waiting out the first tick
	eng.Poke()

	healthMux := http.NewServeMux()
	healthMux.Handle("/health", h)
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tracker.Run(ctx) })
	g.Go(func() error { return emitter.Run(ctx) })
	g.Go(func() error { return eng.Run(ctx) })
	g.Go(func() error { return h.Run(ctx) })
	g.Go(func() error { return serve(ctx, viper.GetString("health.addr"), healthMux, logger.With(slog.String("component", "health"))) })
	g.Go(func() error { return serve(ctx, viper.GetString("metrics.addr"), metricsMux, logger.With(slog.String("component", "metrics"))) })

	err = g.Wait()
	logger.Info("sunward stopped")
	return err
}

// serve runs an HTTP server until ctx is cancelled, then shuts it down.
func serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	server := http.Server{Addr: addr, Handler: handler}
	errCh := make(chan error)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	logger.Debug("server started", slog.String("addr", addr))
	defer logger.Debug("server stopped", slog.String("addr", addr))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
