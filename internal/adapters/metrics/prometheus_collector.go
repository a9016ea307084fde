package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/athena-robotics/workcell-go/internal/domain/task"
)

// Collector bundles every workcell metric family. It implements
// CommandRecorder and RobotRecorder and doubles as the task engine's
// observer.
type Collector struct {
	commandsTotal   *prometheus.CounterVec
	taskDuration    *prometheus.HistogramVec
	queueDepth      prometheus.Gauge
	primitiveCalls  *prometheus.CounterVec
	robotReconnects *prometheus.CounterVec
	robotConnected  *prometheus.GaugeVec
}

// NewCollector creates and registers every metric family on the given
// registry.
func NewCollector(registry *prometheus.Registry) *Collector {
	c := &Collector{
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commands_total",
			Help:      "Commands received, labelled by type and outcome code",
		}, []string{"cmd_type", "code"}),

		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "task_duration_seconds",
			Help:      "Wall time of finished tasks",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"cmd_type", "status"}),

		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "task_queue_depth",
			Help:      "Tasks waiting in the queue",
		}),

		primitiveCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "robot",
			Name:      "primitive_calls_total",
			Help:      "Robot primitive calls, labelled by action and outcome",
		}, []string{"robot_id", "action", "outcome"}),

		robotReconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "robot",
			Name:      "reconnects_total",
			Help:      "Recovered robot websocket sessions",
		}, []string{"robot_id"}),

		robotConnected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "robot",
			Name:      "connected",
			Help:      "Whether the robot link is up (1) or down (0)",
		}, []string{"robot_id"}),
	}

	registry.MustRegister(
		c.commandsTotal,
		c.taskDuration,
		c.queueDepth,
		c.primitiveCalls,
		c.robotReconnects,
		c.robotConnected,
	)
	return c
}

func (c *Collector) RecordCommand(cmdType string, code int) {
	c.commandsTotal.WithLabelValues(cmdType, strconv.Itoa(code)).Inc()
}

func (c *Collector) RecordTaskFinished(cmdType string, status task.Status, seconds float64) {
	c.taskDuration.WithLabelValues(cmdType, string(status)).Observe(seconds)
}

func (c *Collector) RecordQueueDepth(depth int) {
	c.queueDepth.Set(float64(depth))
}

// TaskFinished satisfies the task engine's observer interface
func (c *Collector) TaskFinished(cmdType string, status task.Status, seconds float64) {
	c.RecordTaskFinished(cmdType, status, seconds)
}

// QueueDepth satisfies the task engine's observer interface
func (c *Collector) QueueDepth(depth int) {
	c.RecordQueueDepth(depth)
}

func (c *Collector) RecordPrimitive(robotID, action, outcome string) {
	c.primitiveCalls.WithLabelValues(robotID, action, outcome).Inc()
}

func (c *Collector) RecordReconnect(robotID string) {
	c.robotReconnects.WithLabelValues(robotID).Inc()
}

func (c *Collector) SetConnected(robotID string, connected bool) {
	v := 0.0
	if connected {
		v = 1.0
	}
	c.robotConnected.WithLabelValues(robotID).Set(v)
}
