package inventory

import (
	"strings"

	"github.com/athena-robotics/workcell-go/internal/domain/bottle"
)

// Category describes where a slot physically sits in the workcell.
type Category string

const (
	CategoryShelf        Category = "shelf"
	CategoryBackPlatform Category = "back_platform"
	CategoryWorktable    Category = "worktable"
	CategoryScanTable    Category = "scan_table"
	CategoryDetectTemp   Category = "detect_temp"
)

// Slot is a fixed target pose that can hold bottles. Back-platform
// slots ride on the robot and have no navigation waypoint of their own.
type Slot struct {
	poseName       string
	category       Category
	navigationPose string
	acceptedType   bottle.ObjectType
	capacity       int
	occupants      []string
	reserved       int
}

// NewSlot creates a slot. acceptedType "" means untyped (accepts any
// family). navigationPose "" derives the waypoint from the pose name.
func NewSlot(poseName string, category Category, navigationPose string, acceptedType bottle.ObjectType, capacity int) *Slot {
	if capacity < 1 {
		capacity = 1
	}
	if navigationPose == "" && category != CategoryBackPlatform {
		navigationPose = NavigationFromPose(poseName)
	}
	return &Slot{
		poseName:       poseName,
		category:       category,
		navigationPose: navigationPose,
		acceptedType:   acceptedType,
		capacity:       capacity,
	}
}

// NavigationFromPose derives the navigation waypoint from a pose name:
// the leading token up to the first underscore ("shelf_temp_1000_001"
// navigates from "shelf").
func NavigationFromPose(poseName string) string {
	if i := strings.Index(poseName, "_"); i > 0 {
		return poseName[:i]
	}
	return poseName
}

func (s *Slot) PoseName() string                { return s.poseName }
func (s *Slot) Category() Category              { return s.category }
func (s *Slot) NavigationPose() string          { return s.navigationPose }
func (s *Slot) AcceptedType() bottle.ObjectType { return s.acceptedType }
func (s *Slot) Capacity() int                   { return s.capacity }

// Occupants returns the bottle ids currently present, oldest first
func (s *Slot) Occupants() []string {
	out := make([]string, len(s.occupants))
	copy(out, s.occupants)
	return out
}

// Free returns how many bottles can still be committed, counting
// outstanding reservations against capacity.
func (s *Slot) Free() int {
	free := s.capacity - len(s.occupants) - s.reserved
	if free < 0 {
		return 0
	}
	return free
}

// IsFull reports whether occupancy has reached capacity
func (s *Slot) IsFull() bool {
	return len(s.occupants) >= s.capacity
}

// Accepts reports whether the slot takes bottles of the given family
func (s *Slot) Accepts(t bottle.ObjectType) bool {
	return s.acceptedType == "" || s.acceptedType == t
}

func (s *Slot) holds(bottleID string) bool {
	for _, id := range s.occupants {
		if id == bottleID {
			return true
		}
	}
	return false
}

func (s *Slot) add(bottleID string) {
	s.occupants = append(s.occupants, bottleID)
}

func (s *Slot) remove(bottleID string) bool {
	for i, id := range s.occupants {
		if id == bottleID {
			s.occupants = append(s.occupants[:i], s.occupants[i+1:]...)
			return true
		}
	}
	return false
}

// Detail is the read-model projection of a slot handed to callers
// outside the inventory mutex.
type Detail struct {
	PoseName       string            `json:"pose_name"`
	Category       Category          `json:"category"`
	NavigationPose string            `json:"navigation_pose"`
	AcceptedType   bottle.ObjectType `json:"accepted_type,omitempty"`
	Capacity       int               `json:"capacity"`
	Occupants      []string          `json:"occupants"`
	Free           int               `json:"free"`
}

func (s *Slot) detail() Detail {
	return Detail{
		PoseName:       s.poseName,
		Category:       s.category,
		NavigationPose: s.navigationPose,
		AcceptedType:   s.acceptedType,
		Capacity:       s.capacity,
		Occupants:      s.Occupants(),
		Free:           s.Free(),
	}
}
