package fleet

import "time"

// BatteryState is the charging posture of one robot
type BatteryState string

const (
	// BatteryPending indicates no reading has arrived yet
	BatteryPending BatteryState = "pending"

	// BatteryNormal indicates the robot can take work
	BatteryNormal BatteryState = "normal"

	// BatteryLow indicates charge is below the low threshold and the
	// robot goes to the charger once the current task finishes
	BatteryLow BatteryState = "low_battery"

	// BatteryCharging indicates the robot is docked at the charger
	BatteryCharging BatteryState = "charging"
)

// ChargingPolicy holds the percentage thresholds driving the battery
// state machine. Percentages are fractions in [0,1].
type ChargingPolicy struct {
	LowThreshold  float64
	FullThreshold float64
}

// DefaultChargingPolicy matches the workcell operating defaults:
// dock below 30%, resume work above 80%.
func DefaultChargingPolicy() ChargingPolicy {
	return ChargingPolicy{LowThreshold: 0.30, FullThreshold: 0.80}
}

// BatteryAction tells the monitor what to do after an observation
type BatteryAction int

const (
	// BatteryActionNone means keep monitoring
	BatteryActionNone BatteryAction = iota

	// BatteryActionStartCharging means navigate to the charger now
	BatteryActionStartCharging
)

// BatteryTracker runs the battery state machine for one robot. Not
// safe for concurrent use; the monitor owns each tracker.
type BatteryTracker struct {
	robotID    string
	state      BatteryState
	percentage float64
	received   bool
	lastCheck  time.Time
}

// NewBatteryTracker starts a tracker in the pending state
func NewBatteryTracker(robotID string) *BatteryTracker {
	return &BatteryTracker{robotID: robotID, state: BatteryPending}
}

// RobotID returns the robot this tracker follows
func (t *BatteryTracker) RobotID() string {
	return t.robotID
}

// State returns the current battery state
func (t *BatteryTracker) State() BatteryState {
	return t.state
}

// Percentage returns the last observed charge fraction
func (t *BatteryTracker) Percentage() float64 {
	return t.percentage
}

// Received reports whether at least one reading has arrived
func (t *BatteryTracker) Received() bool {
	return t.received
}

// Observe applies a fresh reading. A low first reading or a lingering
// low state asks for charging immediately when no task is running; a
// drop below the threshold mid-work defers until the next observation
// after the task ends.
func (t *BatteryTracker) Observe(percentage float64, taskRunning bool, policy ChargingPolicy, at time.Time) BatteryAction {
	t.percentage = percentage
	t.received = true
	t.lastCheck = at

	switch t.state {
	case BatteryPending:
		if percentage < policy.LowThreshold {
			t.state = BatteryLow
			if !taskRunning {
				return BatteryActionStartCharging
			}
			return BatteryActionNone
		}
		t.state = BatteryNormal

	case BatteryNormal:
		if percentage < policy.LowThreshold {
			t.state = BatteryLow
		}

	case BatteryLow:
		if !taskRunning {
			return BatteryActionStartCharging
		}

	case BatteryCharging:
		if percentage >= policy.FullThreshold {
			t.state = BatteryNormal
		}
	}
	return BatteryActionNone
}

// ChargingStarted moves the tracker to charging after a successful
// navigation to the charger.
func (t *BatteryTracker) ChargingStarted() {
	t.state = BatteryCharging
}

// Available reports whether the robot can accept new work, with the
// reason when it cannot.
func (t *BatteryTracker) Available() (bool, string) {
	switch t.state {
	case BatteryPending:
		return false, "battery_info_pending"
	case BatteryLow:
		return false, "low_battery"
	case BatteryCharging:
		return false, "charging"
	}
	return true, ""
}

// BatteryReport is the queryable view of one tracker
type BatteryReport struct {
	RobotID           string       `json:"robot_id"`
	Percentage        float64      `json:"percentage"`
	State             BatteryState `json:"state"`
	InfoReceived      bool         `json:"battery_info_received"`
	Available         bool         `json:"available"`
	UnavailableReason string       `json:"unavailable_reason,omitempty"`
}

// Report builds the queryable view
func (t *BatteryTracker) Report() BatteryReport {
	available, reason := t.Available()
	return BatteryReport{
		RobotID:           t.robotID,
		Percentage:        t.percentage,
		State:             t.state,
		InfoReceived:      t.received,
		Available:         available,
		UnavailableReason: reason,
	}
}
