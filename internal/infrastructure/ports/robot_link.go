package ports

import (
	"context"
	"time"
)

// Safe-pose presets accepted by the arm when releasing an object.
const (
	SafePosePreset  = "preset"
	SafePoseLiftUp  = "lift_up"
	SafePoseRetract = "retract"
)

// Detection is one computer-vision hit from the scan table
type Detection struct {
	TargetPose string
	BottleType string
}

// RobotLink defines the primitive operations of one robot.
// This is in infrastructure/ports because it's an external service interface;
// the WebSocket transport behind it lives in adapters/robot.
type RobotLink interface {
	// ID returns the robot identifier
	ID() string

	// Connected reports whether the link is currently up
	Connected() bool

	// WaitNavigationReady blocks until the navigation stack reports ready
	WaitNavigationReady(ctx context.Context, timeout time.Duration) error

	// NavigateToPose drives the base to a named waypoint
	NavigateToPose(ctx context.Context, navigationPose string, timeout time.Duration) error

	// GrabObject picks an object of the given family from targetPose
	GrabObject(ctx context.Context, objectType, targetPose, hand string, timeout time.Duration) error

	// PutObject releases the held object at targetPose using the given safe pose
	PutObject(ctx context.Context, objectType, targetPose, hand, safePose string, timeout time.Duration) error

	// TurnWaist rotates the torso to angle degrees, within [-180,180]
	TurnWaist(ctx context.Context, angle float64, obstacleAvoidance bool, timeout time.Duration) error

	// Scan triggers the handheld scan gun
	Scan(ctx context.Context, timeout time.Duration) error

	// CvDetect asks the vision service for the next bottle on the scan
	// table. Returns (nil, nil) when nothing is detected.
	CvDetect(ctx context.Context, timeout time.Duration) (*Detection, error)

	// SubscribeTopic registers interest in a published topic. The
	// subscription survives reconnects.
	SubscribeTopic(topic, msgType string, throttleRate, queueLength int) error

	// TopicMessage returns the last message seen on a subscribed topic
	TopicMessage(topic string) (map[string]any, bool)
}
