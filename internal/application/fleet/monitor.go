package fleet

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/athena-robotics/workcell-go/internal/domain/fleet"
	"github.com/athena-robotics/workcell-go/internal/domain/inventory"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
	"github.com/athena-robotics/workcell-go/internal/infrastructure/ports"
)

const batteryTopic = "/battery_state"

// MonitorConfig tunes the battery sweep
type MonitorConfig struct {
	Interval         time.Duration
	Policy           fleet.ChargingPolicy
	ChargingPose     string
	PrimitiveTimeout time.Duration
}

// TaskRunningFunc reports whether the named robot is executing a task.
// The monitor never sends a robot to the charger mid-task.
type TaskRunningFunc func(robotID string) bool

// BatteryMonitor subscribes each robot's battery topic and sweeps the
// readings on a fixed schedule, dispatching idle low-battery robots to
// the charging station.
type BatteryMonitor struct {
	robots      []ports.RobotLink
	taskRunning TaskRunningFunc
	locks       *fleet.PoseLock
	cfg         MonitorConfig
	clock       shared.Clock
	logger      *zap.Logger

	mu       sync.Mutex
	trackers map[string]*fleet.BatteryTracker
	dispatch map[string]bool

	scheduler gocron.Scheduler
}

func NewBatteryMonitor(robots []ports.RobotLink, taskRunning TaskRunningFunc, locks *fleet.PoseLock,
	cfg MonitorConfig, clock shared.Clock, logger *zap.Logger) *BatteryMonitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Policy == (fleet.ChargingPolicy{}) {
		cfg.Policy = fleet.DefaultChargingPolicy()
	}
	if cfg.ChargingPose == "" {
		cfg.ChargingPose = inventory.NavCharging
	}
	if cfg.PrimitiveTimeout <= 0 {
		cfg.PrimitiveTimeout = 30 * time.Second
	}
	if clock == nil {
		clock = shared.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	trackers := make(map[string]*fleet.BatteryTracker, len(robots))
	for _, r := range robots {
		trackers[r.ID()] = fleet.NewBatteryTracker(r.ID())
	}
	return &BatteryMonitor{
		robots:      robots,
		taskRunning: taskRunning,
		locks:       locks,
		cfg:         cfg,
		clock:       clock,
		logger:      logger,
		trackers:    trackers,
		dispatch:    make(map[string]bool),
	}
}

// Start subscribes the battery topics and schedules the sweep
func (m *BatteryMonitor) Start() error {
	for _, r := range m.robots {
		if err := r.SubscribeTopic(batteryTopic, "sensor_msgs/BatteryState", 1000, 1); err != nil {
			m.logger.Warn("battery topic subscription failed",
				zap.String("robot_id", r.ID()), zap.Error(err))
		}
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	if _, err := scheduler.NewJob(
		gocron.DurationJob(m.cfg.Interval),
		gocron.NewTask(m.Sweep),
	); err != nil {
		return err
	}
	scheduler.Start()
	m.scheduler = scheduler
	return nil
}

// Stop shuts the scheduler down
func (m *BatteryMonitor) Stop() error {
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.Shutdown()
}

// Sweep applies the latest topic reading of every robot to its tracker
// and dispatches charging runs the state machine asks for.
func (m *BatteryMonitor) Sweep() {
	for _, r := range m.robots {
		msg, ok := r.TopicMessage(batteryTopic)
		if !ok {
			continue
		}
		percentage, ok := batteryPercentage(msg)
		if !ok {
			continue
		}

		m.mu.Lock()
		tracker := m.trackers[r.ID()]
		dispatching := m.dispatch[r.ID()]
		action := tracker.Observe(percentage, m.taskRunning(r.ID()), m.cfg.Policy, m.clock.Now())
		if action == fleet.BatteryActionStartCharging && !dispatching {
			m.dispatch[r.ID()] = true
			m.mu.Unlock()
			go m.sendToCharger(r)
			continue
		}
		m.mu.Unlock()
	}
}

// Reports returns the queryable battery view of every robot
func (m *BatteryMonitor) Reports() []fleet.BatteryReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	reports := make([]fleet.BatteryReport, 0, len(m.robots))
	for _, r := range m.robots {
		reports = append(reports, m.trackers[r.ID()].Report())
	}
	return reports
}

func (m *BatteryMonitor) sendToCharger(r ports.RobotLink) {
	defer func() {
		m.mu.Lock()
		m.dispatch[r.ID()] = false
		m.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*m.cfg.PrimitiveTimeout)
	defer cancel()

	if err := m.locks.Acquire(ctx, r.ID(), m.cfg.ChargingPose); err != nil {
		m.logger.Warn("charger dispatch aborted", zap.String("robot_id", r.ID()), zap.Error(err))
		return
	}
	defer m.locks.Release(r.ID(), m.cfg.ChargingPose)

	if err := r.WaitNavigationReady(ctx, m.cfg.PrimitiveTimeout); err != nil {
		m.logger.Warn("charger dispatch failed", zap.String("robot_id", r.ID()), zap.Error(err))
		return
	}
	if err := r.NavigateToPose(ctx, m.cfg.ChargingPose, m.cfg.PrimitiveTimeout); err != nil {
		m.logger.Warn("charger dispatch failed", zap.String("robot_id", r.ID()), zap.Error(err))
		return
	}

	m.mu.Lock()
	m.trackers[r.ID()].ChargingStarted()
	m.mu.Unlock()
	m.logger.Info("robot docked at charger", zap.String("robot_id", r.ID()))
}

// batteryPercentage extracts the charge fraction from a BatteryState
// message, tolerating percentages published as 0..100.
func batteryPercentage(msg map[string]any) (float64, bool) {
	raw, ok := msg["percentage"]
	if !ok {
		return 0, false
	}
	p, ok := raw.(float64)
	if !ok {
		return 0, false
	}
	if p > 1 {
		p = p / 100
	}
	return p, true
}
