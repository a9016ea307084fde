package inventory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/athena-robotics/workcell-go/internal/domain/bottle"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
)

// Inventory is the authoritative ledger of bottles and slots. One
// instance exists per process; every mutation happens under its mutex
// and callers only ever see value snapshots.
type Inventory struct {
	mu      sync.Mutex
	bottles map[string]*bottle.Bottle
	slots   map[string]*Slot
	clock   shared.Clock
}

// New creates an empty inventory
func New(clock shared.Clock) *Inventory {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Inventory{
		bottles: make(map[string]*bottle.Bottle),
		slots:   make(map[string]*Slot),
		clock:   clock,
	}
}

// BottleView is the read-model projection of a bottle. TargetPose is
// the slot the bottle is grabbed from: its current location when known,
// its home slot otherwise.
type BottleView struct {
	BottleID       string            `json:"bottle_id"`
	ObjectType     bottle.ObjectType `json:"object_type"`
	Hand           bottle.Hand       `json:"hand"`
	TargetPose     string            `json:"target_pose"`
	NavigationPose string            `json:"navigation_pose"`
	Location       string            `json:"location,omitempty"`
	OnRobot        bool              `json:"on_robot,omitempty"`
	Scanned        bool              `json:"scanned"`
	ScannedAt      *time.Time        `json:"scanned_at,omitempty"`
}

// Reservation is an ephemeral hold on one slot position. It is consumed
// by CommitPlace or released by CancelReservation; until then it counts
// against the slot's free capacity.
type Reservation struct {
	poseName string
	bottleID string
	done     bool
}

func (r *Reservation) PoseName() string { return r.poseName }
func (r *Reservation) BottleID() string { return r.bottleID }

// AddSlot registers a slot. Replacing an existing pose name is an error.
func (inv *Inventory) AddSlot(s *Slot) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if _, ok := inv.slots[s.PoseName()]; ok {
		return shared.NewValidationError("pose_name", "slot "+s.PoseName()+" already registered")
	}
	inv.slots[s.PoseName()] = s
	return nil
}

// RegisterBottle adds a bottle to the ledger without placing it
func (inv *Inventory) RegisterBottle(id string, objectType bottle.ObjectType, hand bottle.Hand, homeSlot string) error {
	b, err := bottle.New(id, objectType, hand, homeSlot)
	if err != nil {
		return err
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if _, ok := inv.bottles[id]; ok {
		return shared.NewValidationError("bottle_id", "bottle "+id+" already registered")
	}
	inv.bottles[id] = b
	return nil
}

// BindBottle places a registered bottle directly into a slot, bypassing
// the reservation protocol. Used when seeding the boot layout.
func (inv *Inventory) BindBottle(bottleID, poseName string) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	b, ok := inv.bottles[bottleID]
	if !ok {
		return shared.NewBottleNotFoundError(bottleID)
	}
	s, ok := inv.slots[poseName]
	if !ok {
		return shared.NewSlotNotFoundError(poseName)
	}
	if !s.Accepts(b.ObjectType()) {
		return shared.NewTypeMismatchError(poseName, string(s.AcceptedType()), string(b.ObjectType()))
	}
	if s.Free() < 1 {
		return shared.NewSlotFullError(poseName, s.Capacity())
	}
	s.add(bottleID)
	b.SetLocation(poseName)
	return nil
}

// Bottle returns a snapshot of one bottle
func (inv *Inventory) Bottle(bottleID string) (BottleView, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	b, ok := inv.bottles[bottleID]
	if !ok {
		return BottleView{}, shared.NewBottleNotFoundError(bottleID)
	}
	return inv.viewOf(b), nil
}

func (inv *Inventory) viewOf(b *bottle.Bottle) BottleView {
	target := b.Location()
	if target == "" {
		target = b.HomeSlot()
	}
	nav := ""
	onRobot := false
	if s, ok := inv.slots[target]; ok {
		nav = s.NavigationPose()
		onRobot = s.Category() == CategoryBackPlatform
	} else if target != "" {
		nav = NavigationFromPose(target)
	}
	return BottleView{
		BottleID:       b.ID(),
		ObjectType:     b.ObjectType(),
		Hand:           b.Hand(),
		TargetPose:     target,
		NavigationPose: nav,
		Location:       b.Location(),
		OnRobot:        onRobot,
		Scanned:        b.ScannedAt() != nil,
		ScannedAt:      b.ScannedAt(),
	}
}

// Slot returns a snapshot of one slot
func (inv *Inventory) Slot(poseName string) (Detail, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	s, ok := inv.slots[poseName]
	if !ok {
		return Detail{}, shared.NewSlotNotFoundError(poseName)
	}
	return s.detail(), nil
}

// SlotsByNavigation returns all slots reachable from one waypoint,
// ordered by pose name.
func (inv *Inventory) SlotsByNavigation(nav string) []Detail {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	var out []Detail
	for _, s := range inv.slots {
		if s.NavigationPose() == nav {
			out = append(out, s.detail())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PoseName < out[j].PoseName })
	return out
}

// Reserve places an ephemeral hold for bottleID on the named slot
func (inv *Inventory) Reserve(poseName, bottleID string) (*Reservation, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.reserveLocked(poseName, bottleID)
}

func (inv *Inventory) reserveLocked(poseName, bottleID string) (*Reservation, error) {
	b, ok := inv.bottles[bottleID]
	if !ok {
		return nil, shared.NewBottleNotFoundError(bottleID)
	}
	s, ok := inv.slots[poseName]
	if !ok {
		return nil, shared.NewSlotNotFoundError(poseName)
	}
	if !s.Accepts(b.ObjectType()) {
		return nil, shared.NewTypeMismatchError(poseName, string(s.AcceptedType()), string(b.ObjectType()))
	}
	if s.Free() < 1 {
		return nil, shared.NewSlotFullError(poseName, s.Capacity())
	}
	s.reserved++
	return &Reservation{poseName: poseName, bottleID: bottleID}, nil
}

// ReserveBackSlot holds the first free back-platform slot accepting the
// given family. Returns PlatformFullError when every typed slot is taken.
func (inv *Inventory) ReserveBackSlot(objectType bottle.ObjectType, bottleID string) (*Reservation, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for _, name := range inv.backSlotNamesLocked(objectType) {
		s := inv.slots[name]
		if s.Free() > 0 {
			return inv.reserveLocked(name, bottleID)
		}
	}
	return nil, shared.NewPlatformFullError(string(objectType))
}

func (inv *Inventory) backSlotNamesLocked(objectType bottle.ObjectType) []string {
	var names []string
	for name, s := range inv.slots {
		if s.Category() == CategoryBackPlatform && s.Accepts(objectType) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// BackPlatformFree reports the free back-platform positions per family.
// The planner simulates against this snapshot without holding anything.
func (inv *Inventory) BackPlatformFree() map[bottle.ObjectType]int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	free := make(map[bottle.ObjectType]int)
	for _, t := range bottle.AllObjectTypes() {
		free[t] = 0
	}
	for _, s := range inv.slots {
		if s.Category() != CategoryBackPlatform {
			continue
		}
		if t := s.AcceptedType(); t != "" {
			free[t] += s.Free()
		}
	}
	return free
}

// CommitPlace consumes a reservation and moves the bottle into the slot
func (inv *Inventory) CommitPlace(res *Reservation) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if res == nil || res.done {
		return shared.NewInternalError("reservation already consumed")
	}
	s, ok := inv.slots[res.poseName]
	if !ok {
		return shared.NewSlotNotFoundError(res.poseName)
	}
	b, ok := inv.bottles[res.bottleID]
	if !ok {
		return shared.NewBottleNotFoundError(res.bottleID)
	}
	if loc := b.Location(); loc != "" {
		return shared.NewInternalError(fmt.Sprintf("bottle %s still placed at %s", res.bottleID, loc))
	}
	res.done = true
	s.reserved--
	s.add(res.bottleID)
	b.SetLocation(res.poseName)
	return nil
}

// CancelReservation releases an unconsumed hold. Safe to call twice.
func (inv *Inventory) CancelReservation(res *Reservation) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if res == nil || res.done {
		return
	}
	res.done = true
	if s, ok := inv.slots[res.poseName]; ok && s.reserved > 0 {
		s.reserved--
	}
}

// CommitRemove takes the bottle out of the slot (the robot grabbed it)
func (inv *Inventory) CommitRemove(poseName, bottleID string) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	s, ok := inv.slots[poseName]
	if !ok {
		return shared.NewSlotNotFoundError(poseName)
	}
	b, ok := inv.bottles[bottleID]
	if !ok {
		return shared.NewBottleNotFoundError(bottleID)
	}
	if !s.remove(bottleID) {
		return shared.NewInternalError(fmt.Sprintf("bottle %s is not at %s", bottleID, poseName))
	}
	b.ClearLocation()
	return nil
}

// MarkScanned stamps the bottle with the current time
func (inv *Inventory) MarkScanned(bottleID string) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	b, ok := inv.bottles[bottleID]
	if !ok {
		return shared.NewBottleNotFoundError(bottleID)
	}
	b.MarkScanned(inv.clock.Now())
	return nil
}

// SummaryFilter selects what the BOTTLE_GET projection returns
type SummaryFilter struct {
	BottleID string
	PoseName string
	Detail   bool
}

// Summary builds the BOTTLE_GET projection: one bottle, one slot's
// occupants, or the whole ledger, with or without attributes.
func (inv *Inventory) Summary(f SummaryFilter) (map[string]any, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	switch {
	case f.BottleID != "":
		b, ok := inv.bottles[f.BottleID]
		if !ok {
			return nil, shared.NewBottleNotFoundError(f.BottleID)
		}
		if !f.Detail {
			return map[string]any{"bottle_id": f.BottleID}, nil
		}
		return map[string]any{"bottle": inv.viewOf(b)}, nil

	case f.PoseName != "":
		s, ok := inv.slots[f.PoseName]
		if !ok {
			return nil, shared.NewSlotNotFoundError(f.PoseName)
		}
		ids := s.Occupants()
		if !f.Detail {
			return map[string]any{"pose_name": f.PoseName, "bottle_ids": ids}, nil
		}
		views := make([]BottleView, 0, len(ids))
		for _, id := range ids {
			if b, ok := inv.bottles[id]; ok {
				views = append(views, inv.viewOf(b))
			}
		}
		return map[string]any{"pose_name": f.PoseName, "slot": s.detail(), "bottles": views}, nil

	default:
		ids := make([]string, 0, len(inv.bottles))
		for id := range inv.bottles {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		if !f.Detail {
			return map[string]any{"total_count": len(ids), "bottle_ids": ids}, nil
		}
		views := make([]BottleView, 0, len(ids))
		for _, id := range ids {
			views = append(views, inv.viewOf(inv.bottles[id]))
		}
		return map[string]any{"total_count": len(ids), "bottles": views}, nil
	}
}
