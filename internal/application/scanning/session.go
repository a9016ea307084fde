package scanning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/athena-robotics/workcell-go/internal/application/scanning/types"
	"github.com/athena-robotics/workcell-go/internal/domain/bottle"
	"github.com/athena-robotics/workcell-go/internal/domain/fleet"
	"github.com/athena-robotics/workcell-go/internal/domain/inventory"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
	"github.com/athena-robotics/workcell-go/internal/domain/task"
	"github.com/athena-robotics/workcell-go/internal/infrastructure/ports"
)

// Scan-session states, exposed through the task's current step
const (
	StateNavigatingToScan  = "NAVIGATING_TO_SCAN"
	StateGrabScanGun       = "GRAB_SCAN_GUN"
	StateCvDetecting       = "CV_DETECTING"
	StateGrabbingBottle    = "GRABBING_BOTTLE"
	StateScanning          = "SCANNING"
	StateWaitingIDInput    = "WAITING_ID_INPUT"
	StatePuttingToBack     = "PUTTING_TO_BACK"
	StateTurningBackFront  = "TURNING_BACK_FRONT"
	StateNavigatingToSplit = "NAVIGATING_TO_SPLIT"
	StatePuttingDown       = "PUTTING_DOWN"
)

const (
	scanGunType = "scan_gun"
	scanGunPose = "scan_gun_temp_001"

	// DefaultIDInputWait bounds how long the session stays parked on one
	// bottle before giving up.
	DefaultIDInputWait = 300 * time.Second

	// consecutive empty cv_detect answers that end the detection loop
	detectionMisses = 2
)

// SessionConfig tunes one scan session
type SessionConfig struct {
	PrimitiveTimeout time.Duration
	IDInputWait      time.Duration
}

// grabbedBottle is a bottle physically in hand but not yet stowed. It
// can still be put back at its detection pose if the session unwinds.
type grabbedBottle struct {
	targetPose string
	objectType bottle.ObjectType
}

// Session runs one SCAN_QRCODE task end to end. The worker goroutine
// owns all fields except the rendezvous state guarded by mu.
type Session struct {
	robot    ports.RobotLink
	inv      *inventory.Inventory
	locks    *fleet.PoseLock
	exchange *Exchange
	logger   *zap.Logger
	clock    shared.Clock
	task     *task.Task
	cfg      SessionConfig

	mu           sync.Mutex
	waiting      bool
	expectedType string
	input        chan EnterIDInput

	scanned []types.ScannedBottle
	failed  []types.FailedDetection
	grabbed []grabbedBottle
	gunHeld bool
}

func NewSession(robot ports.RobotLink, inv *inventory.Inventory, locks *fleet.PoseLock,
	exchange *Exchange, t *task.Task, cfg SessionConfig, clock shared.Clock, logger *zap.Logger) *Session {
	if cfg.PrimitiveTimeout <= 0 {
		cfg.PrimitiveTimeout = 10 * time.Second
	}
	if cfg.IDInputWait <= 0 {
		cfg.IDInputWait = DefaultIDInputWait
	}
	if clock == nil {
		clock = shared.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		robot:    robot,
		inv:      inv,
		locks:    locks,
		exchange: exchange,
		logger:   logger,
		clock:    clock,
		task:     t,
		cfg:      cfg,
		input:    make(chan EnterIDInput, 1),
	}
}

// deliver validates and hands over one operator input. Called from the
// ENTER_ID path, never from the worker goroutine.
func (s *Session) deliver(input EnterIDInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.waiting {
		return "", shared.NewNoWaitingTaskError()
	}
	if input.ObjectType != s.expectedType {
		// The session stays parked; the operator retries with the right type.
		return "", shared.NewEnterIDMismatchError(s.expectedType, input.ObjectType)
	}
	if err := s.task.Resume(); err != nil {
		return "", shared.NewNoWaitingTaskError()
	}
	s.waiting = false
	s.input <- input
	return s.task.ID(), nil
}

// Run drives the whole session. The returned error is nil when the
// session completed (possibly with failed detections), task.ErrCancelled
// on observed cancellation, and a coded error on a fatal primitive
// failure. Physical unwinding happens before any error return.
func (s *Session) Run(ctx context.Context) (*types.ScanResult, error) {
	defer s.exchange.clear(s)
	defer s.returnScanGun(ctx)

	robotID := s.robot.ID()
	if err := s.locks.Acquire(ctx, robotID, inventory.NavScanTable); err != nil {
		return nil, shared.NewInternalError("pose lock wait aborted: " + err.Error())
	}
	defer s.locks.Release(robotID, inventory.NavScanTable)

	s.setState(StateNavigatingToScan)
	if err := s.navigate(ctx, inventory.NavScanTable); err != nil {
		return nil, err
	}

	s.setState(StateGrabScanGun)
	if err := s.robot.GrabObject(ctx, scanGunType, scanGunPose, string(bottle.HandLeft), s.cfg.PrimitiveTimeout); err != nil {
		return nil, err
	}
	s.gunHeld = true

	if err := s.detectLoop(ctx); err != nil {
		s.returnGrabbed(ctx)
		return nil, err
	}
	s.returnScanGun(ctx)

	if len(s.scanned) > 0 {
		if err := s.dropOff(ctx); err != nil {
			return nil, err
		}
	}

	result := &types.ScanResult{
		Success:        true,
		Message:        fmt.Sprintf("scanned %d bottles", len(s.scanned)),
		ScannedBottles: s.snapshotScanned(),
		FailedBottles:  append([]types.FailedDetection{}, s.failed...),
		Total:          len(s.scanned) + len(s.failed),
	}
	return result, nil
}

// detectLoop runs cv_detect until two consecutive empty answers or the
// back platform fills up.
func (s *Session) detectLoop(ctx context.Context) error {
	misses := 0
	for misses < detectionMisses {
		if s.task.CancelRequested() {
			s.returnGrabbed(ctx)
			return task.ErrCancelled
		}

		s.setState(StateCvDetecting)
		det, err := s.robot.CvDetect(ctx, s.cfg.PrimitiveTimeout)
		if err != nil {
			return err
		}
		if det == nil {
			misses++
			continue
		}
		misses = 0

		done, err := s.processDetection(ctx, det)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return nil
}

// processDetection walks one bottle through grab, scan, id rendezvous
// and stowing. done=true ends the loop early (platform full).
func (s *Session) processDetection(ctx context.Context, det *ports.Detection) (done bool, err error) {
	objType := bottle.ObjectType(det.BottleType)
	if !objType.Valid() {
		s.recordFailed("", det, "cv_detect",
			shared.NewValidationError("bottle_type", "unknown bottle type "+det.BottleType))
		return false, nil
	}

	s.setState(StateGrabbingBottle)
	if err := s.robot.GrabObject(ctx, det.BottleType, det.TargetPose, string(bottle.HandRight), s.cfg.PrimitiveTimeout); err != nil {
		return false, err
	}
	s.grabbed = append(s.grabbed, grabbedBottle{targetPose: det.TargetPose, objectType: objType})

	if s.inv.BackPlatformFree()[objType] <= 0 {
		// No room left for this family: reverse the grab and end the
		// session with what was already processed.
		s.recordFailed("", det, "reserve", shared.NewPlatformFullError(det.BottleType))
		s.returnGrabbed(ctx)
		return true, nil
	}

	s.setState(StateScanning)
	if err := s.robot.Scan(ctx, s.cfg.PrimitiveTimeout); err != nil {
		s.returnGrabbed(ctx)
		return false, err
	}

	input, err := s.awaitID(ctx, det)
	if err != nil {
		s.returnGrabbed(ctx)
		return false, err
	}

	if err := s.recordScan(input, det, objType); err != nil {
		s.recordFailed(input.BottleID, det, "enter_id", err)
		s.returnGrabbed(ctx)
		return false, nil
	}

	res, err := s.inv.ReserveBackSlot(objType, input.BottleID)
	if err != nil {
		s.recordFailed(input.BottleID, det, "reserve", err)
		s.returnGrabbed(ctx)
		if shared.CodeOf(err) == shared.CodePlatformOverCapacity {
			return true, nil
		}
		return false, nil
	}

	s.setState(StatePuttingToBack)
	if err := s.robot.TurnWaist(ctx, 180, true, s.cfg.PrimitiveTimeout); err != nil {
		s.inv.CancelReservation(res)
		s.returnGrabbed(ctx)
		return false, err
	}
	if err := s.robot.PutObject(ctx, det.BottleType, res.PoseName(), string(bottle.HandRight), ports.SafePosePreset, s.cfg.PrimitiveTimeout); err != nil {
		s.inv.CancelReservation(res)
		s.returnGrabbed(ctx)
		return false, err
	}
	if err := s.inv.CommitPlace(res); err != nil {
		s.recordFailed(input.BottleID, det, "put_object", err)
		return false, nil
	}
	s.grabbed = s.grabbed[:len(s.grabbed)-1]

	s.scanned = append(s.scanned, types.ScannedBottle{
		BottleID:   input.BottleID,
		ObjectType: det.BottleType,
		BackSlot:   res.PoseName(),
		ScannedAt:  s.clock.Now(),
	})
	s.task.PublishScanProgress(nil, s.snapshotScanned())

	s.setState(StateTurningBackFront)
	if err := s.robot.TurnWaist(ctx, 0, true, s.cfg.PrimitiveTimeout); err != nil {
		s.logger.Warn("waist return failed after stow", zap.Error(err))
	}
	return false, nil
}

// awaitID parks the task and blocks until an operator delivers the
// bottle id, the wait times out, or cancellation is observed.
func (s *Session) awaitID(ctx context.Context, det *ports.Detection) (EnterIDInput, error) {
	s.setState(StateWaitingIDInput)
	s.task.PublishScanProgress(map[string]any{
		"target_pose": det.TargetPose,
		"bottle_type": det.BottleType,
	}, s.snapshotScanned())

	// Open the rendezvous window before parking, under the lock deliver
	// takes. An operator who sees the task WAITING serializes behind
	// this section and always finds the window open.
	s.exchange.register(s)
	s.mu.Lock()
	s.waiting = true
	s.expectedType = det.BottleType
	if err := s.task.Park(); err != nil {
		s.waiting = false
		s.mu.Unlock()
		return EnterIDInput{}, shared.NewInternalError(err.Error())
	}
	s.mu.Unlock()

	deadline := time.NewTimer(s.cfg.IDInputWait)
	defer deadline.Stop()
	cancelPoll := time.NewTicker(200 * time.Millisecond)
	defer cancelPoll.Stop()

	for {
		select {
		case input := <-s.input:
			return input, nil
		case <-deadline.C:
			if s.stopWaiting() {
				return EnterIDInput{}, shared.NewInternalError("timed out waiting for bottle id input")
			}
			// An input won the race with the deadline.
			return <-s.input, nil
		case <-cancelPoll.C:
			if !s.task.CancelRequested() {
				continue
			}
			if s.stopWaiting() {
				return EnterIDInput{}, task.ErrCancelled
			}
			return <-s.input, nil
		case <-ctx.Done():
			if s.stopWaiting() {
				return EnterIDInput{}, ctx.Err()
			}
			return <-s.input, nil
		}
	}
}

// stopWaiting closes the rendezvous window. Returns false when a
// delivery already won, in which case the input channel holds it.
func (s *Session) stopWaiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.waiting {
		return false
	}
	s.waiting = false
	if err := s.task.Resume(); err != nil {
		s.logger.Warn("resume after wait window closed", zap.Error(err))
	}
	return true
}

// recordScan binds the delivered id to the ledger and stamps it scanned
func (s *Session) recordScan(input EnterIDInput, det *ports.Detection, objType bottle.ObjectType) error {
	view, err := s.inv.Bottle(input.BottleID)
	switch {
	case shared.CodeOf(err) == shared.CodeBottleNotFound:
		if err := s.inv.RegisterBottle(input.BottleID, objType, bottle.HandRight, det.TargetPose); err != nil {
			return err
		}
	case err != nil:
		return err
	case view.Location != "":
		// The ledger thought the bottle was elsewhere; the scan table wins.
		if err := s.inv.CommitRemove(view.Location, input.BottleID); err != nil {
			return err
		}
	}
	return s.inv.MarkScanned(input.BottleID)
}

// dropOff drives to the split station and releases every stowed bottle
// into its typed slot.
func (s *Session) dropOff(ctx context.Context) error {
	robotID := s.robot.ID()
	if err := s.locks.Acquire(ctx, robotID, inventory.NavSplit); err != nil {
		return shared.NewInternalError("pose lock wait aborted: " + err.Error())
	}
	defer s.locks.Release(robotID, inventory.NavSplit)

	s.setState(StateNavigatingToSplit)
	if err := s.navigate(ctx, inventory.NavSplit); err != nil {
		return err
	}

	s.setState(StatePuttingDown)
	for i := range s.scanned {
		if s.task.CancelRequested() {
			return task.ErrCancelled
		}
		s.putDown(ctx, &s.scanned[i])
	}
	return nil
}

// putDown moves one bottle from the back platform to the split-station
// slot of its family. Failures leave the bottle on the platform and are
// recorded, never fatal.
func (s *Session) putDown(ctx context.Context, sb *types.ScannedBottle) {
	splitPose := fmt.Sprintf("split_temp_%s_001", bottle.ObjectType(sb.ObjectType).ShortCode())
	det := &ports.Detection{TargetPose: sb.BackSlot, BottleType: sb.ObjectType}

	res, err := s.inv.Reserve(splitPose, sb.BottleID)
	if err != nil {
		s.recordFailed(sb.BottleID, det, "reserve", err)
		return
	}

	steps := []struct {
		step string
		call func() error
	}{
		{"turn_waist", func() error { return s.robot.TurnWaist(ctx, 180, true, s.cfg.PrimitiveTimeout) }},
		{"grab_object", func() error {
			return s.robot.GrabObject(ctx, sb.ObjectType, sb.BackSlot, string(bottle.HandRight), s.cfg.PrimitiveTimeout)
		}},
		{"turn_waist", func() error { return s.robot.TurnWaist(ctx, 0, true, s.cfg.PrimitiveTimeout) }},
	}
	for i, st := range steps {
		if err := st.call(); err != nil {
			s.inv.CancelReservation(res)
			s.recordFailed(sb.BottleID, det, st.step, err)
			return
		}
		if i == 1 {
			if err := s.inv.CommitRemove(sb.BackSlot, sb.BottleID); err != nil {
				s.logger.Warn("ledger remove failed after grab",
					zap.String("bottle_id", sb.BottleID), zap.Error(err))
			}
		}
	}
	if err := s.robot.PutObject(ctx, sb.ObjectType, splitPose, string(bottle.HandRight), ports.SafePosePreset, s.cfg.PrimitiveTimeout); err != nil {
		s.inv.CancelReservation(res)
		s.recordFailed(sb.BottleID, det, "put_object", err)
		return
	}
	if err := s.inv.CommitPlace(res); err != nil {
		s.recordFailed(sb.BottleID, det, "put_object", err)
		return
	}
	sb.SplitSlot = splitPose
}

// returnGrabbed puts every in-hand bottle back at its detection pose.
// Best effort: the arm may already be out of reach of the table.
func (s *Session) returnGrabbed(ctx context.Context) {
	for i := len(s.grabbed) - 1; i >= 0; i-- {
		g := s.grabbed[i]
		if err := s.robot.PutObject(ctx, string(g.objectType), g.targetPose,
			string(bottle.HandRight), ports.SafePosePreset, s.cfg.PrimitiveTimeout); err != nil {
			s.logger.Warn("could not return bottle to scan table",
				zap.String("target_pose", g.targetPose), zap.Error(err))
		}
	}
	s.grabbed = nil
}

// returnScanGun puts the gun back on its holder if still held
func (s *Session) returnScanGun(ctx context.Context) {
	if !s.gunHeld {
		return
	}
	s.gunHeld = false
	if err := s.robot.PutObject(ctx, scanGunType, scanGunPose,
		string(bottle.HandLeft), ports.SafePosePreset, s.cfg.PrimitiveTimeout); err != nil {
		s.logger.Warn("could not return scan gun", zap.Error(err))
	}
}

func (s *Session) navigate(ctx context.Context, nav string) error {
	if err := s.robot.WaitNavigationReady(ctx, s.cfg.PrimitiveTimeout); err != nil {
		return err
	}
	return s.robot.NavigateToPose(ctx, nav, s.cfg.PrimitiveTimeout)
}

func (s *Session) setState(state string) {
	s.task.FinishStep()
	s.task.BeginStep(state)
}

func (s *Session) recordFailed(bottleID string, det *ports.Detection, step string, err error) {
	s.failed = append(s.failed, types.FailedDetection{
		BottleID:   bottleID,
		TargetPose: det.TargetPose,
		BottleType: det.BottleType,
		Step:       step,
		Code:       shared.CodeOf(err),
		Message:    err.Error(),
	})
	s.logger.Warn("scan step failed",
		zap.String("task_id", s.task.ID()),
		zap.String("step", step),
		zap.String("target_pose", det.TargetPose),
		zap.Error(err))
}

func (s *Session) snapshotScanned() []types.ScannedBottle {
	out := make([]types.ScannedBottle, len(s.scanned))
	copy(out, s.scanned)
	return out
}
