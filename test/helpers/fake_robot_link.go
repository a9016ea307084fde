package helpers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/athena-robotics/workcell-go/internal/infrastructure/ports"
)

// FakeRobotLink is a scripted in-memory robot for application tests.
// Every primitive appends a call string like "grab(glass_bottle_500,
// shelf_500_001, right)" so tests can assert the exact motion sequence.
// Errors are injected per call string prefix.
type FakeRobotLink struct {
	mu sync.Mutex

	RobotID      string
	Down         bool
	calls        []string
	failures     map[string]error
	onceFailures map[string]error
	detections   []*ports.Detection
	topics       map[string]map[string]any
}

func NewFakeRobotLink(id string) *FakeRobotLink {
	return &FakeRobotLink{
		RobotID:      id,
		failures:     make(map[string]error),
		onceFailures: make(map[string]error),
		topics:       make(map[string]map[string]any),
	}
}

// FailOn makes every call whose recorded string starts with prefix
// return err.
func (f *FakeRobotLink) FailOn(prefix string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[prefix] = err
}

// FailOnce fails only the first call matching prefix; later matching
// calls succeed again, as after a recovered link.
func (f *FakeRobotLink) FailOnce(prefix string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onceFailures[prefix] = err
}

// ScriptDetections queues cv_detect results in order; nil entries mean
// "nothing on the table".
func (f *FakeRobotLink) ScriptDetections(detections ...*ports.Detection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detections = append(f.detections, detections...)
}

// SetTopicMessage primes the last-seen message of a topic
func (f *FakeRobotLink) SetTopicMessage(topic string, msg map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics[topic] = msg
}

// Calls returns a copy of the recorded call strings
func (f *FakeRobotLink) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsWithPrefix returns the recorded calls starting with prefix
func (f *FakeRobotLink) CallsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range f.Calls() {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeRobotLink) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	for prefix, err := range f.onceFailures {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			delete(f.onceFailures, prefix)
			return err
		}
	}
	for prefix, err := range f.failures {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			return err
		}
	}
	return nil
}

func (f *FakeRobotLink) ID() string {
	if f.RobotID == "" {
		return "robot_a"
	}
	return f.RobotID
}

func (f *FakeRobotLink) Connected() bool { return !f.Down }

func (f *FakeRobotLink) WaitNavigationReady(ctx context.Context, timeout time.Duration) error {
	return f.record("wait_navigation_ready")
}

func (f *FakeRobotLink) NavigateToPose(ctx context.Context, navigationPose string, timeout time.Duration) error {
	return f.record(fmt.Sprintf("navigate(%s)", navigationPose))
}

func (f *FakeRobotLink) GrabObject(ctx context.Context, objectType, targetPose, hand string, timeout time.Duration) error {
	return f.record(fmt.Sprintf("grab(%s, %s, %s)", objectType, targetPose, hand))
}

func (f *FakeRobotLink) PutObject(ctx context.Context, objectType, targetPose, hand, safePose string, timeout time.Duration) error {
	return f.record(fmt.Sprintf("put(%s, %s, %s, %s)", objectType, targetPose, hand, safePose))
}

func (f *FakeRobotLink) TurnWaist(ctx context.Context, angle float64, obstacleAvoidance bool, timeout time.Duration) error {
	return f.record(fmt.Sprintf("turn_waist(%.0f, %t)", angle, obstacleAvoidance))
}

func (f *FakeRobotLink) Scan(ctx context.Context, timeout time.Duration) error {
	return f.record("scan")
}

func (f *FakeRobotLink) CvDetect(ctx context.Context, timeout time.Duration) (*ports.Detection, error) {
	if err := f.record("cv_detect"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.detections) == 0 {
		return nil, nil
	}
	d := f.detections[0]
	f.detections = f.detections[1:]
	return d, nil
}

func (f *FakeRobotLink) SubscribeTopic(topic, msgType string, throttleRate, queueLength int) error {
	return f.record(fmt.Sprintf("subscribe(%s)", topic))
}

func (f *FakeRobotLink) TopicMessage(topic string) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.topics[topic]
	return msg, ok
}

var _ ports.RobotLink = (*FakeRobotLink)(nil)
