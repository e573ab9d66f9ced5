package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"livescore-service/config"
	"livescore-service/database"
	"livescore-service/logger"
	"livescore-service/services"
	"livescore-service/tracing"
	"livescore-service/web"
)

const serviceName = "livescore-service"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "livescore",
		Short: "Live match simulator with WebSocket and SSE feeds",
		Long: `Simulates live football matches on a shared clock, persists
snapshots to the configured database and pushes updates to WebSocket rooms.
A Server-Sent Events endpoint re-reads recent events on an interval.

Configuration is read from environment variables (PORT, DATABASE_URL,
SIMULATION_TICK, ...). Running without a subcommand starts the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the simulator and HTTP server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate()
			},
		},
		newSweepCommand(),
	)
	return root
}

func newSweepCommand() *cobra.Command {
	var threshold int
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete finished matches past the minute threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd.Context(), threshold, cmd)
		},
	}
	cmd.Flags().IntVar(&threshold, "threshold", 0, "minute threshold (defaults to RETENTION_MINUTE_THRESHOLD)")
	return cmd
}

func openStore(cfg *config.Config) (*services.SQLMatchStore, func() error, error) {
	db, dialect, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Printf("Database connected and migrated (%s)", dialect)
	return services.NewSQLMatchStore(db, dialect), db.Close, nil
}

func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	_, closeDB, err := openStore(cfg)
	if err != nil {
		return err
	}
	return closeDB()
}

func runSweep(ctx context.Context, threshold int, cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if threshold <= 0 {
		threshold = cfg.RetentionMinuteThreshold
	}

	store, closeDB, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	cleanup := services.NewDataCleanupService(store, services.CleanupConfig{MinuteThreshold: threshold})
	result, err := cleanup.ExecuteCleanup(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d %s matches with minute > %d in %s\n",
		result.DeletedRows, result.Status, result.MinuteThreshold, result.Duration)
	return nil
}

// buildRelay 根据配置创建外部转发, 未配置任何 Broker 时返回 nil
func buildRelay(cfg *config.Config) *services.UpdateRelay {
	var brokers []services.MessageBroker

	if cfg.AMQPURL != "" {
		connector := services.NewAMQPConnector(cfg.AMQPURL, cfg.AMQPExchange)
		if err := connector.Start(); err != nil {
			// 发布时会重新连接
			logger.Errorf("AMQP relay not connected yet: %v", err)
		}
		brokers = append(brokers, connector)
	}

	if cfg.MQTTBroker != "" {
		publisher := services.NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTTopicPrefix)
		if err := publisher.Connect(); err != nil {
			logger.Errorf("MQTT relay disabled: %v", err)
		} else {
			brokers = append(brokers, publisher)
		}
	}

	if len(brokers) == 0 {
		return nil
	}
	return services.NewUpdateRelay(cfg.RelayBuffer, brokers...)
}

func runServe(parent context.Context) error {
	logger.Println("Starting Livescore Service...")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, serviceName, cfg.OTELEndpoint)
	if err != nil {
		logger.Errorf("Tracing disabled: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownTracing(shutdownCtx)
	}()

	store, closeDB, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	seeds, err := services.LoadMatchesFile(cfg.MatchesFile)
	if err != nil {
		return err
	}

	relay := buildRelay(cfg)
	registry := services.NewSubscriptionRegistry()
	hub := web.NewHub(registry, relay, cfg.ChatMaxLength)
	writer := services.NewSnapshotWriter(store, cfg.PersistRetryDelay)

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	engine := services.NewMatchEngine(services.EngineConfig{
		GoalProbability:   cfg.GoalProbability,
		YellowProbability: cfg.YellowProbability,
		RosterSize:        cfg.RosterSize,
		HalfTimeMinute:    cfg.HalfTimeMinute,
		FullTimeMinute:    cfg.FullTimeMinute,
	}, rand.New(rand.NewSource(seed)))

	simulator := services.NewMatchSimulator(engine, writer, hub.FanOut(), services.SimulatorConfig{
		Tick:            cfg.SimulationTick,
		CheckpointEvery: cfg.CheckpointEvery,
		RecentEvents:    cfg.RecentEventsLimit,
	})
	if err := simulator.Bootstrap(ctx, store, seeds); err != nil {
		return fmt.Errorf("failed to load matches: %w", err)
	}

	stream := services.NewEventStream(store, services.EventStreamConfig{
		Interval: cfg.PullInterval,
		Limit:    cfg.PullEventsLimit,
	})
	cleanup := services.NewDataCleanupService(store, services.CleanupConfig{
		Interval:        cfg.RetentionInterval,
		MinuteThreshold: cfg.RetentionMinuteThreshold,
	})
	server := web.NewServer(cfg, store, simulator, stream, hub)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		simulator.Run(gctx)
		return nil
	})
	g.Go(func() error {
		writer.Run(gctx)
		return nil
	})
	if relay.Enabled() {
		g.Go(func() error {
			relay.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		cleanup.Run(gctx)
		return nil
	})
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Stop(shutdownCtx)
	})

	logger.Printf("Simulating %d matches (seed %d, tick %s)", simulator.Count(), seed, cfg.SimulationTick)
	runErr := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := writer.Flush(flushCtx); err != nil {
		logger.Errorf("Failed to flush pending snapshots: %v", err)
		runErr = errors.Join(runErr, err)
	}

	logger.Println("Service stopped")
	return runErr
}
