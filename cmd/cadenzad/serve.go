package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	syncengine "github.com/e7canasta/cadenza-sync"
	"github.com/e7canasta/cadenza-sync/config"
	"github.com/e7canasta/cadenza-sync/emitter"
	"github.com/e7canasta/cadenza-sync/transport"
)

const defaultConfigPath = "config/cadenza.yaml"

// serveCmd runs the sync engine until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		debug, _ := cmd.Flags().GetBool("debug")
		return serve(configPath, debug)
	},
}

func init() {
	serveCmd.Flags().String("config", defaultConfigPath, "Path to configuration file")
	serveCmd.Flags().Bool("debug", false, "Enable debug logging")
	rootCmd.AddCommand(serveCmd)
}

func serve(configPath string, debug bool) error {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	slog.Info("starting cadenzad",
		"instance_id", cfg.InstanceID,
		"transport_mode", cfg.Transport.Mode,
		"mqtt_enabled", cfg.MQTT.Enabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	eng := syncengine.New(cfg.EngineConfig())
	defer eng.Dispose()

	g, gctx := errgroup.WithContext(ctx)

	// Transport clock.
	var clock syncengine.TransportClock
	switch cfg.Transport.Mode {
	case "osc":
		oscClock := transport.NewOSCClock()
		host := cfg.Transport.MasterHost
		g.Go(func() error {
			return oscClock.Run(gctx, host)
		})
		clock = oscClock
	default:
		manual := transport.NewManualClock(cfg.Transport.TempoBPM)
		manual.Start()
		clock = manual
	}

	if err := eng.Initialize(clock); err != nil {
		return err
	}
	if err := eng.StartSynchronizedPlayback(); err != nil {
		return err
	}

	// MQTT notification bridge.
	if cfg.MQTT.Enabled {
		em := emitter.New(emitter.Options{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.InstanceID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			Encoding:    cfg.MQTT.Encoding,
			QoS:         cfg.MQTT.QoS,
		})
		if err := em.Connect(gctx); err != nil {
			return err
		}
		defer em.Close()
		g.Go(func() error {
			return em.Run(gctx, eng.Hub())
		})
	}

	// Surface health snapshots in the daemon log.
	healthCh := make(chan syncengine.Notification, 8)
	if err := eng.Hub().Subscribe(syncengine.KindHealthUpdated, "cadenzad-log", healthCh); err != nil {
		return err
	}
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case n := <-healthCh:
				if n.Health != nil {
					slog.Debug("health snapshot",
						"overall", n.Health.OverallHealth,
						"audio", n.Health.AudioSyncHealth,
						"visual", n.Health.VisualSyncHealth,
						"drift_level", n.Health.DriftLevel,
						"recovery_attempts", n.Health.RecoveryAttempts,
					)
				}
			}
		}
	})

	err = g.Wait()
	if err != nil && ctx.Err() == nil {
		return err
	}
	slog.Info("cadenzad stopped")
	return nil
}
