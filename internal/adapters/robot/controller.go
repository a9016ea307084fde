package robot

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/athena-robotics/workcell-go/internal/adapters/metrics"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
	"github.com/athena-robotics/workcell-go/internal/infrastructure/ports"
)

// retryPause separates the two attempts of a retryable primitive
const retryPause = time.Second

// Controller implements ports.RobotLink over one Client. Navigation
// and waist rotation are idempotent on the robot side and get a second
// attempt on timeout or remote error; grab, put and scan never retry.
type Controller struct {
	client *Client
	logger *zap.Logger
	clock  shared.Clock
}

// NewController wraps a connected client in the primitive layer
func NewController(client *Client, logger *zap.Logger, clock shared.Clock) *Controller {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Controller{
		client: client,
		logger: logger.Named("primitives").With(zap.String("robot_id", client.ID())),
		clock:  clock,
	}
}

// ID returns the robot identifier
func (c *Controller) ID() string {
	return c.client.ID()
}

// Connected reports whether the underlying link is up
func (c *Controller) Connected() bool {
	return c.client.Connected()
}

// Connect establishes the underlying link
func (c *Controller) Connect(ctx context.Context) error {
	return c.client.Connect(ctx)
}

// Close tears the underlying link down
func (c *Controller) Close() {
	c.client.Close()
}

// WaitNavigationReady blocks until the navigation stack reports ready
func (c *Controller) WaitNavigationReady(ctx context.Context, timeout time.Duration) error {
	_, err := c.call(ctx, serviceNavigation, actionWaitNavigation, nil, timeout, true)
	return err
}

// NavigateToPose drives the base to a named waypoint
func (c *Controller) NavigateToPose(ctx context.Context, navigationPose string, timeout time.Duration) error {
	args := map[string]any{"navigation_pose": navigationPose}
	_, err := c.call(ctx, serviceNavigation, actionNavigateToPose, args, timeout, true)
	return err
}

// GrabObject picks an object of the given family from targetPose
func (c *Controller) GrabObject(ctx context.Context, objectType, targetPose, hand string, timeout time.Duration) error {
	args := map[string]any{
		"strawberry": map[string]any{
			"type":        objectType,
			"target_pose": targetPose,
			"hand":        hand,
		},
	}
	_, err := c.call(ctx, serviceArm, actionGrabObject, args, timeout, false)
	return err
}

// PutObject releases the held object at targetPose using safePose
func (c *Controller) PutObject(ctx context.Context, objectType, targetPose, hand, safePose string, timeout time.Duration) error {
	args := map[string]any{
		"strawberry": map[string]any{
			"type":        objectType,
			"target_pose": targetPose,
			"hand":        hand,
			"safe_pose":   safePose,
		},
	}
	_, err := c.call(ctx, serviceArm, actionPutObject, args, timeout, false)
	return err
}

// TurnWaist rotates the torso to angle degrees, within [-180,180]
func (c *Controller) TurnWaist(ctx context.Context, angle float64, obstacleAvoidance bool, timeout time.Duration) error {
	if angle < -180 || angle > 180 {
		return shared.NewValidationError("angle", "must be within [-180,180]")
	}
	args := map[string]any{
		"angle":              angle,
		"obstacle_avoidance": obstacleAvoidance,
	}
	_, err := c.call(ctx, serviceArm, actionTurnWaist, args, timeout, true)
	return err
}

// Scan triggers the handheld scan gun
func (c *Controller) Scan(ctx context.Context, timeout time.Duration) error {
	_, err := c.call(ctx, serviceArm, actionScan, nil, timeout, false)
	return err
}

// CvDetect asks the vision service for the next bottle on the scan
// table. The vision service answers result:false when the table is
// empty, so a remote refusal here means "nothing detected", not a
// fault. Returns (nil, nil) in that case.
func (c *Controller) CvDetect(ctx context.Context, timeout time.Duration) (*ports.Detection, error) {
	values, err := c.call(ctx, serviceArm, actionCvDetect, nil, timeout, false)
	if err != nil {
		var remote *shared.RemoteCallError
		if errors.As(err, &remote) {
			return nil, nil
		}
		return nil, err
	}
	pose, _ := values["target_pose"].(string)
	bottleType, _ := values["bottle_type"].(string)
	if pose == "" || bottleType == "" {
		return nil, nil
	}
	return &ports.Detection{TargetPose: pose, BottleType: bottleType}, nil
}

// SubscribeTopic registers interest in a published topic
func (c *Controller) SubscribeTopic(topic, msgType string, throttleRate, queueLength int) error {
	return c.client.SubscribeTopic(topic, msgType, throttleRate, queueLength)
}

// TopicMessage returns the last message seen on a subscribed topic
func (c *Controller) TopicMessage(topic string) (map[string]any, bool) {
	return c.client.TopicMessage(topic)
}

// call issues the request, checks the completion flag and applies the
// single-retry policy for idempotent actions.
func (c *Controller) call(ctx context.Context, service, action string, args map[string]any, timeout time.Duration, retryable bool) (map[string]any, error) {
	attempts := 1
	if retryable {
		attempts = 2
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			c.logger.Warn("retrying primitive",
				zap.String("action", action),
				zap.Error(lastErr),
			)
			c.clock.Sleep(retryPause)
		}

		values, err := c.client.Call(ctx, service, action, args, timeout)
		if err == nil {
			err = checkFinished(c.client.ID(), action, values)
			if err == nil {
				metrics.RecordPrimitive(c.client.ID(), action, "ok")
				return values, nil
			}
		}
		metrics.RecordPrimitive(c.client.ID(), action, outcomeLabel(err))
		lastErr = err

		// a lost link or a cancelled context is never retried here;
		// the handler layer owns the disconnect policy
		var disconnected *shared.RobotDisconnectedError
		if errors.As(err, &disconnected) || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// outcomeLabel maps a primitive failure to its metric label
func outcomeLabel(err error) string {
	switch shared.CodeOf(err) {
	case shared.CodeRobotDisconnected:
		return "disconnected"
	case shared.CodePrimitiveTimeout:
		return "timeout"
	case shared.CodeRemoteError:
		return "remote_error"
	default:
		return "error"
	}
}

// checkFinished validates the service-level completion flag. The peer
// can reply result:true with finish:false when the motion was accepted
// but did not complete; both layers must agree before an ack counts.
func checkFinished(robotID, action string, values map[string]any) error {
	if finished, ok := values["finish"].(bool); ok && finished {
		return nil
	}
	return shared.NewRemoteCallError(robotID, action, "service reported finish=false")
}
