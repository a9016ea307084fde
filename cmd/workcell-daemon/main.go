package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/athena-robotics/workcell-go/internal/adapters/httpapi"
	"github.com/athena-robotics/workcell-go/internal/adapters/metrics"
	"github.com/athena-robotics/workcell-go/internal/adapters/persistence"
	"github.com/athena-robotics/workcell-go/internal/adapters/robot"
	"github.com/athena-robotics/workcell-go/internal/application/common"
	appFleet "github.com/athena-robotics/workcell-go/internal/application/fleet"
	fulfillmentCmd "github.com/athena-robotics/workcell-go/internal/application/fulfillment/commands"
	"github.com/athena-robotics/workcell-go/internal/application/scanning"
	"github.com/athena-robotics/workcell-go/internal/application/tasks"
	domainFleet "github.com/athena-robotics/workcell-go/internal/domain/fleet"
	"github.com/athena-robotics/workcell-go/internal/domain/inventory"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
	"github.com/athena-robotics/workcell-go/internal/infrastructure/config"
	"github.com/athena-robotics/workcell-go/internal/infrastructure/database"
	"github.com/athena-robotics/workcell-go/internal/infrastructure/logging"
	"github.com/athena-robotics/workcell-go/internal/infrastructure/pidfile"
	"github.com/athena-robotics/workcell-go/internal/infrastructure/ports"
)

const version = "0.1.0"

// Exit codes: 0 clean shutdown, 1 instance lock held, 2 bad
// configuration, 3 primary robot unreachable.
const (
	exitOK         = 0
	exitLockHeld   = 1
	exitConfig     = 2
	exitRobotsDown = 3
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: search standard locations)")
	force := flag.Bool("force", false, "Kill any existing daemon and start a new one")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("workcell-daemon %s\n", version)
		os.Exit(exitOK)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(exitConfig)
	}

	pf := pidfile.New(cfg.Daemon.PIDFile)
	if err := pf.Acquire(); err != nil {
		if !*force {
			fmt.Fprintf(os.Stderr, "%v\nUse --force to kill the existing daemon\n", err)
			os.Exit(exitLockHeld)
		}
		if killErr := pf.KillExisting(10 * time.Second); killErr != nil {
			fmt.Fprintf(os.Stderr, "failed to kill existing daemon: %v\n", killErr)
			os.Exit(exitLockHeld)
		}
		if err := pf.Acquire(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to acquire PID file after --force: %v\n", err)
			os.Exit(exitLockHeld)
		}
	}
	defer func() { _ = pf.Release() }()

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging error: %v\n", err)
		os.Exit(exitConfig)
	}
	defer func() { _ = logger.Sync() }()

	os.Exit(run(cfg, logger))
}

func run(cfg *config.Config, logger *zap.Logger) int {
	logger.Info("starting workcell daemon",
		zap.String("version", version),
		zap.Int("robots", len(cfg.Robots)))

	clock := shared.NewRealClock()

	// Task archive. A broken database costs history, not operation, so
	// failures downgrade to a warning and the daemon runs without it.
	var archive tasks.Archive
	var db *gorm.DB
	if d, err := database.NewConnection(&cfg.Database); err != nil {
		logger.Warn("task archive unavailable", zap.Error(err))
	} else if err := database.AutoMigrate(d); err != nil {
		logger.Warn("task archive migration failed", zap.Error(err))
		_ = database.Close(d)
	} else {
		db = d
		archive = persistence.NewGormTaskArchive(db)
	}
	if db != nil {
		defer func() { _ = database.Close(db) }()
	}

	var observer tasks.Observer
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		collector := metrics.NewCollector(metrics.GetRegistry())
		metrics.SetGlobalCollector(collector)
		metrics.SetGlobalRobotCollector(collector)
		observer = collector
	}

	// Robot fleet. The primary connection is mandatory; without it no
	// task can run.
	fleet := robot.NewFleet(logger)
	for _, rc := range cfg.Robots {
		_, err := fleet.Register(robot.Config{
			ID:               rc.Name,
			Address:          rc.Address,
			RetryInterval:    rc.RetryInterval,
			MaxRetryAttempts: rc.MaxRetryAttempts,
			RequestTimeout:   rc.RequestTimeout,
			RateLimit:        rc.RateLimit,
		}, rc.Primary || rc.Name == cfg.PrimaryRobot().Name, clock)
		if err != nil {
			logger.Error("invalid robot configuration", zap.Error(err))
			return exitConfig
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := fleet.ConnectAll(ctx); err != nil {
		logger.Error("robot connection failed", zap.Error(err))
		return exitRobotsDown
	}
	defer fleet.CloseAll()
	primary := fleet.Primary()

	inv := inventory.NewDefault(clock)
	locks := domainFleet.NewPoseLock(domainFleet.DefaultConflictPairs())
	exchange := scanning.NewExchange()

	med := common.NewMediator()
	executor := fulfillmentCmd.NewExecutor(primary, inv, locks, logger)
	if err := registerHandlers(med, registration{
		executor: executor,
		primary:  primary,
		inv:      inv,
		locks:    locks,
		exchange: exchange,
		clock:    clock,
		logger:   logger,
	}); err != nil {
		logger.Error("handler registration failed", zap.Error(err))
		return exitConfig
	}

	engine := tasks.NewEngine(med, tasks.Options{
		QueueCapacity: cfg.Daemon.QueueCapacity,
		Archive:       archive,
		Observer:      observer,
		Clock:         clock,
		Logger:        logger,
	})
	if err := registerEngineHandlers(med, engine); err != nil {
		logger.Error("handler registration failed", zap.Error(err))
		return exitConfig
	}
	engine.Start()

	var battery *appFleet.BatteryMonitor
	if cfg.Charging.Enabled {
		links := make([]ports.RobotLink, 0, len(fleet.Robots()))
		for _, ctrl := range fleet.Robots() {
			links = append(links, ctrl)
		}
		busy := func(robotID string) bool {
			return robotID == primary.ID() && engine.Status().RunningTask != ""
		}
		battery = appFleet.NewBatteryMonitor(links, busy, locks, appFleet.MonitorConfig{
			Interval: cfg.Charging.Interval,
			Policy: domainFleet.ChargingPolicy{
				LowThreshold:  cfg.Charging.LowThreshold,
				FullThreshold: cfg.Charging.FullThreshold,
			},
			ChargingPose: cfg.Charging.ChargingPose,
		}, clock, logger)
		if err := battery.Start(); err != nil {
			logger.Warn("battery monitor failed to start", zap.Error(err))
			battery = nil
		}
	}

	deps := httpapi.Deps{
		Mediator: med,
		Engine:   engine,
		Fleet:    fleet,
		Logger:   logger,
		Clock:    clock,
		Version:  version,
	}
	if battery != nil {
		deps.Battery = battery
	}
	handler := httpapi.NewRouter(deps)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("command server listening", zap.String("address", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("command server failed", zap.Error(err))
			return exitConfig
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Daemon.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown incomplete", zap.Error(err))
	}
	if battery != nil {
		_ = battery.Stop()
	}
	if err := engine.Stop(shutdownCtx); err != nil {
		logger.Warn("task engine shutdown incomplete", zap.Error(err))
	}

	logger.Info("daemon stopped")
	return exitOK
}
