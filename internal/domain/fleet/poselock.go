package fleet

import (
	"context"
	"sync"
)

// DefaultConflictPairs maps each transfer-side pose to the split-side
// pose it interferes with. A robot working one side of a pair blocks a
// different robot from entering the other side.
func DefaultConflictPairs() map[string]string {
	return map[string]string{
		"waiting_split_area_transfer":  "waiting_split_area_split",
		"split_done_250ml_area_transfer": "split_done_250ml_area_split",
		"split_done_500ml_area_transfer": "split_done_500ml_area_split",
	}
}

// PoseLock serializes access to pairs of physically adjacent poses.
// Poses outside the conflict table are never blocked.
type PoseLock struct {
	mu       sync.Mutex
	conflict map[string]string
	occupied map[string]string
	waiting  map[string][]string
	changed  chan struct{}
}

// NewPoseLock builds a lock over the given transfer-to-split pairs.
// Each pair guards both directions.
func NewPoseLock(pairs map[string]string) *PoseLock {
	conflict := make(map[string]string, len(pairs)*2)
	for transfer, split := range pairs {
		conflict[transfer] = split
		conflict[split] = transfer
	}
	return &PoseLock{
		conflict: conflict,
		occupied: make(map[string]string),
		waiting:  make(map[string][]string),
		changed:  make(chan struct{}),
	}
}

// Acquire claims poseName for robotID, blocking while the conflicting
// pose is held by a different robot. Returns the context error if ctx
// ends first. A robot already holding the conflicting pose is not
// blocked by itself.
func (l *PoseLock) Acquire(ctx context.Context, robotID, poseName string) error {
	conflicting, protected := l.conflict[poseName]
	if !protected {
		return nil
	}

	l.mu.Lock()
	for {
		holder, held := l.occupied[conflicting]
		if !held || holder == robotID {
			break
		}
		l.addWaiter(poseName, robotID)
		changed := l.changed
		l.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			l.mu.Lock()
			l.removeWaiter(poseName, robotID)
			l.mu.Unlock()
			return ctx.Err()
		}
		l.mu.Lock()
	}
	l.removeWaiter(poseName, robotID)
	l.occupied[poseName] = robotID
	l.mu.Unlock()
	return nil
}

// Release frees poseName if robotID holds it and wakes all waiters so
// they can re-check their conflicting pose.
func (l *PoseLock) Release(robotID, poseName string) {
	if _, protected := l.conflict[poseName]; !protected {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	holder, ok := l.occupied[poseName]
	if !ok || holder != robotID {
		return
	}
	delete(l.occupied, poseName)
	close(l.changed)
	l.changed = make(chan struct{})
}

// OccupyingRobot reports which robot holds poseName, if any
func (l *PoseLock) OccupyingRobot(poseName string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	holder, ok := l.occupied[poseName]
	return holder, ok
}

// Status is a point-in-time view of lock occupancy
type Status struct {
	OccupiedPoses map[string]string   `json:"occupied_poses"`
	WaitingRobots map[string][]string `json:"waiting_robots"`
}

// Snapshot copies the current occupancy and wait lists
func (l *PoseLock) Snapshot() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	status := Status{
		OccupiedPoses: make(map[string]string, len(l.occupied)),
		WaitingRobots: make(map[string][]string),
	}
	for pose, robot := range l.occupied {
		status.OccupiedPoses[pose] = robot
	}
	for pose, robots := range l.waiting {
		if len(robots) == 0 {
			continue
		}
		status.WaitingRobots[pose] = append([]string(nil), robots...)
	}
	return status
}

func (l *PoseLock) addWaiter(poseName, robotID string) {
	for _, id := range l.waiting[poseName] {
		if id == robotID {
			return
		}
	}
	l.waiting[poseName] = append(l.waiting[poseName], robotID)
}

func (l *PoseLock) removeWaiter(poseName, robotID string) {
	waiters := l.waiting[poseName]
	for i, id := range waiters {
		if id == robotID {
			l.waiting[poseName] = append(waiters[:i], waiters[i+1:]...)
			return
		}
	}
}
