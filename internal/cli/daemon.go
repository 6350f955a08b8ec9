package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"trackeco/internal/syncer"
)

func daemonCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Sync in the background until interrupted",
		Long: `Runs a sync every sync.interval while the API is reachable and the
battery is above sync.low_battery_percent.
Send SIGUSR1 to sync immediately. When metrics.listen is set, Prometheus
metrics are served on /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(configPath())
			if err != nil {
				return err
			}
			defer a.Close()

			userID, err := a.userID()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sched := syncer.NewScheduler(a.coord, userID, a.cfg.SyncInterval(), a.cfg.PowerSource())
			sched.RunOnStart = a.cfg.Sync.RunOnStart

			log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			log.Printf("🚀 trackeco daemon for %s", a.session.Email)
			log.Printf("   API: %s", a.cfg.API.BaseURL)
			log.Printf("   Interval: %s", sched.Interval())
			if a.cfg.Sync.LowBatteryPercent > 0 {
				log.Printf("   Skips periodic runs at or below %d%% battery", a.cfg.Sync.LowBatteryPercent)
			}
			log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

			return runDaemon(ctx, sched, a.cfg.Metrics.Listen)
		},
	}
}

func runDaemon(ctx context.Context, sched *syncer.Scheduler, metricsAddr string) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sched.Run(ctx)
	})

	if len(triggerSignals) > 0 {
		trigger := make(chan os.Signal, 1)
		signal.Notify(trigger, triggerSignals...)
		g.Go(func() error {
			defer signal.Stop(trigger)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-trigger:
					result, err := sched.TriggerNow(ctx)
					switch {
					case err == nil:
						log.Printf("✅ on-demand sync: %d synced, %d failed", result.Synced, result.Failed)
					case syncer.IsSkip(err):
						log.Printf("⏭️  on-demand sync skipped: %v", err)
					case ctx.Err() == nil:
						log.Printf("❌ on-demand sync failed: %v", err)
					}
				}
			}
		})
	}

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           metricsRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Printf("📈 Metrics on http://%s/metrics", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func metricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	return r
}
