package robot

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/athena-robotics/workcell-go/internal/domain/shared"
	"github.com/athena-robotics/workcell-go/internal/infrastructure/ports"
)

// Fleet holds the rosbridge links for every configured robot. The
// primary robot executes tasks; secondaries are reachable for status
// and battery supervision but never receive task primitives.
type Fleet struct {
	logger *zap.Logger

	mu        sync.RWMutex
	members   map[string]*Controller
	primaryID string
}

func NewFleet(logger *zap.Logger) *Fleet {
	return &Fleet{
		logger:  logger.Named("fleet"),
		members: make(map[string]*Controller),
	}
}

// Register creates the link for one robot. The first robot flagged
// primary becomes the task executor; registering a second primary or a
// duplicate id is a configuration mistake.
func (f *Fleet) Register(cfg Config, primary bool, clock shared.Clock) (*Controller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.members[cfg.ID]; exists {
		return nil, fmt.Errorf("robot %q registered twice", cfg.ID)
	}
	if primary && f.primaryID != "" {
		return nil, fmt.Errorf("robots %q and %q both flagged primary", f.primaryID, cfg.ID)
	}

	ctrl := NewController(NewClient(cfg, f.logger), f.logger, clock)
	f.members[cfg.ID] = ctrl
	if primary {
		f.primaryID = cfg.ID
	}
	return ctrl, nil
}

// Primary returns the task-executing robot, or nil when none was
// flagged in config.
func (f *Fleet) Primary() *Controller {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.primaryID == "" {
		return nil
	}
	return f.members[f.primaryID]
}

func (f *Fleet) Robot(id string) (*Controller, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ctrl, ok := f.members[id]
	return ctrl, ok
}

// Robots returns every member in id order.
func (f *Fleet) Robots() []*Controller {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*Controller, 0, len(f.members))
	for _, id := range f.idsLocked() {
		out = append(out, f.members[id])
	}
	return out
}

func (f *Fleet) IDs() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.idsLocked()
}

func (f *Fleet) idsLocked() []string {
	ids := make([]string, 0, len(f.members))
	for id := range f.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ConnectAll dials every robot. The primary connection is mandatory:
// its retry budget must produce a session or the error is returned.
// Secondary robots connect in the background and only log failures,
// since a dead observer robot must not keep the workcell down.
func (f *Fleet) ConnectAll(ctx context.Context) error {
	f.mu.RLock()
	primaryID := f.primaryID
	members := make(map[string]*Controller, len(f.members))
	for id, ctrl := range f.members {
		members[id] = ctrl
	}
	f.mu.RUnlock()

	for _, id := range f.IDs() {
		if id == primaryID {
			continue
		}
		ctrl := members[id]
		go func(id string, ctrl *Controller) {
			if err := ctrl.Connect(ctx); err != nil {
				f.logger.Error("secondary robot unreachable",
					zap.String("robot_id", id),
					zap.Error(err))
			}
		}(id, ctrl)
	}

	if primaryID == "" {
		return fmt.Errorf("no primary robot configured")
	}
	if err := members[primaryID].Connect(ctx); err != nil {
		return fmt.Errorf("primary robot %s: %w", primaryID, err)
	}
	return nil
}

func (f *Fleet) CloseAll() {
	for _, ctrl := range f.Robots() {
		ctrl.Close()
	}
}

// ConnectionStates reports id → connected for the health endpoint.
func (f *Fleet) ConnectionStates() map[string]bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	states := make(map[string]bool, len(f.members))
	for id, ctrl := range f.members {
		states[id] = ctrl.Connected()
	}
	return states
}

var _ ports.RobotLink = (*Controller)(nil)
