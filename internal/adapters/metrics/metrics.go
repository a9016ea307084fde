package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/athena-robotics/workcell-go/internal/domain/task"
)

const (
	// Namespace for all metrics
	namespace = "workcell"
	// Subsystem for daemon metrics
	subsystem = "daemon"
)

var (
	// Registry is the global Prometheus registry for all metrics
	Registry *prometheus.Registry

	// globalCommandCollector records command ingress events.
	// Set by SetGlobalCollector() when metrics are enabled.
	globalCommandCollector CommandRecorder

	// globalRobotCollector records robot link events
	globalRobotCollector RobotRecorder
)

// CommandRecorder records command-plane events
type CommandRecorder interface {
	RecordCommand(cmdType string, code int)
	RecordTaskFinished(cmdType string, status task.Status, seconds float64)
	RecordQueueDepth(depth int)
}

// RobotRecorder records robot-link events. Used by the transport
// adapter, which must never block on metrics.
type RobotRecorder interface {
	RecordPrimitive(robotID, action, outcome string)
	RecordReconnect(robotID string)
	SetConnected(robotID string, connected bool)
}

// InitRegistry initializes the Prometheus registry.
// Should be called once at application startup if metrics are enabled.
func InitRegistry() {
	Registry = prometheus.NewRegistry()
}

// GetRegistry returns the global Prometheus registry.
// Returns nil if metrics are not initialized.
func GetRegistry() *prometheus.Registry {
	return Registry
}

// IsEnabled returns true if metrics collection is enabled
func IsEnabled() bool {
	return Registry != nil
}

// SetGlobalCollector sets the global command collector
func SetGlobalCollector(collector CommandRecorder) {
	globalCommandCollector = collector
}

// SetGlobalRobotCollector sets the global robot-link collector
func SetGlobalRobotCollector(collector RobotRecorder) {
	globalRobotCollector = collector
}

// RecordCommand records one ingress command and its outcome code
func RecordCommand(cmdType string, code int) {
	if globalCommandCollector != nil {
		globalCommandCollector.RecordCommand(cmdType, code)
	}
}

// RecordPrimitive records one robot primitive call
func RecordPrimitive(robotID, action, outcome string) {
	if globalRobotCollector != nil {
		globalRobotCollector.RecordPrimitive(robotID, action, outcome)
	}
}

// RecordReconnect records a recovered robot link
func RecordReconnect(robotID string) {
	if globalRobotCollector != nil {
		globalRobotCollector.RecordReconnect(robotID)
	}
}

// SetRobotConnected updates the connectivity gauge for one robot
func SetRobotConnected(robotID string, connected bool) {
	if globalRobotCollector != nil {
		globalRobotCollector.SetConnected(robotID, connected)
	}
}
