package main

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pulseworks/cashbeat/internal/bus"
	"github.com/pulseworks/cashbeat/internal/catalog"
	"github.com/pulseworks/cashbeat/internal/config"
	"github.com/pulseworks/cashbeat/internal/events"
	"github.com/pulseworks/cashbeat/internal/forecast"
	"github.com/pulseworks/cashbeat/internal/health"
	"github.com/pulseworks/cashbeat/internal/ledger"
	"github.com/pulseworks/cashbeat/internal/server"
	"github.com/pulseworks/cashbeat/internal/simulate"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the cashbeat daemon",
	GroupID: "system",
	// Override PersistentPreRun so we don't build an API client.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		cat, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			return err
		}

		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		// Independent streams per component so one consumer's draw rate
		// doesn't perturb the others under a fixed seed.
		newRand := func(offset int64) *rand.Rand {
			return rand.New(rand.NewSource(seed + offset))
		}

		b := bus.New(bus.Options{
			Delay:  bus.UniformDelay(cfg.DelayMin, cfg.DelayMax, newRand(0)),
			Logger: logger,
		})
		b.Start()

		led := ledger.New(cat.Accounts, ledger.Options{Logger: logger})
		if err := led.Attach(b); err != nil {
			return err
		}

		fc := forecast.New(led, b, forecast.Options{
			Interval: cfg.ForecastInterval,
			Rand:     newRand(1),
			Logger:   logger,
		})

		gen := simulate.New(cat, b, simulate.Config{
			TxIntervalMin:      cfg.TxIntervalMin,
			TxIntervalMax:      cfg.TxIntervalMax,
			AnomalyIntervalMin: cfg.AnomalyIntervalMin,
			AnomalyIntervalMax: cfg.AnomalyIntervalMax,
			Rand:               newRand(2),
			Logger:             logger,
		})

		agg := health.New(cat.Services, health.Options{
			Rand:   newRand(3),
			Logger: logger,
		})

		srv := server.New(b, led, fc, agg, logger)
		if err := srv.Attach(); err != nil {
			return err
		}

		// Optional NATS mirror.
		var bridgeIDs []string
		var natsPub *events.NATSPublisher
		if cfg.NATSURL != "" {
			natsPub, err = events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				return err
			}
			bridgeIDs = events.AttachBridge(b, natsPub, logger)
			logger.Info("NATS mirror enabled", "nats_url", cfg.NATSURL)
		} else {
			logger.Info("NATS mirror disabled (CASHBEAT_NATS_URL not set)")
		}

		fc.Start()
		agg.Start()
		gen.Start()

		httpServer := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: srv.NewHTTPHandler(cfg.AuthToken),
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		logger.Info("cashbeat started",
			"http_addr", cfg.HTTPAddr,
			"accounts", len(cat.Accounts),
			"merchants", len(cat.Merchants),
			"services", len(cat.Services),
		)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Stop producers first so nothing publishes into a torn-down bus.
		gen.Stop()
		agg.Stop()
		fc.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if natsPub != nil {
			events.DetachBridge(b, bridgeIDs)
			if err := natsPub.Close(); err != nil {
				logger.Error("error closing NATS publisher", "err", err)
			}
		}

		srv.Detach()
		led.Detach(b)
		b.Stop()

		logger.Info("shutdown complete")
		return nil
	},
}
