package bottle

import (
	"time"

	"github.com/athena-robotics/workcell-go/internal/domain/shared"
)

// ObjectType is the bottle family. It governs which slots accept the
// bottle and which back-platform slots the planner may reserve for it.
type ObjectType string

const (
	Glass1000 ObjectType = "glass_bottle_1000"
	Glass500  ObjectType = "glass_bottle_500"
	Glass250  ObjectType = "glass_bottle_250"
	Glass100  ObjectType = "glass_bottle_100"
)

// AllObjectTypes returns the known families in a fixed order.
func AllObjectTypes() []ObjectType {
	return []ObjectType{Glass1000, Glass500, Glass250, Glass100}
}

// Valid reports whether t is a known family
func (t ObjectType) Valid() bool {
	switch t {
	case Glass1000, Glass500, Glass250, Glass100:
		return true
	}
	return false
}

// ShortCode returns the size token used in pose names ("1000" for
// glass_bottle_1000).
func (t ObjectType) ShortCode() string {
	s := string(t)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '_' {
			return s[i+1:]
		}
	}
	return s
}

// Hand is the arm preference tag. Values pass through to the robot
// verbatim: the vendor documentation is self-contradictory about which
// physical arm each value selects, so no meaning is attached here.
type Hand string

const (
	HandLeft  Hand = "left"
	HandRight Hand = "right"
	HandBoth  Hand = "both"
)

// Valid reports whether h is an accepted tag
func (h Hand) Valid() bool {
	switch h {
	case HandLeft, HandRight, HandBoth:
		return true
	}
	return false
}

// Bottle is a physical sample bottle tracked by the inventory. At most
// one slot references a bottle at any time; Location mirrors that slot.
type Bottle struct {
	id         string
	objectType ObjectType
	hand       Hand
	homeSlot   string
	location   string
	scannedAt  *time.Time
}

// New creates a bottle. homeSlot is the canonical slot the bottle is
// grabbed from when no current location is known.
func New(id string, objectType ObjectType, hand Hand, homeSlot string) (*Bottle, error) {
	if id == "" {
		return nil, shared.NewValidationError("bottle_id", "must not be empty")
	}
	if !objectType.Valid() {
		return nil, shared.NewValidationError("object_type", "unknown object type "+string(objectType))
	}
	if hand == "" {
		hand = HandRight
	}
	if !hand.Valid() {
		return nil, shared.NewValidationError("hand", "unknown hand tag "+string(hand))
	}
	return &Bottle{
		id:         id,
		objectType: objectType,
		hand:       hand,
		homeSlot:   homeSlot,
	}, nil
}

func (b *Bottle) ID() string             { return b.id }
func (b *Bottle) ObjectType() ObjectType { return b.objectType }
func (b *Bottle) Hand() Hand             { return b.hand }
func (b *Bottle) HomeSlot() string       { return b.homeSlot }

// Location returns the pose name of the slot currently holding the
// bottle, or "" when the bottle is unassigned.
func (b *Bottle) Location() string { return b.location }

// ScannedAt returns the scan timestamp, nil when never scanned
func (b *Bottle) ScannedAt() *time.Time { return b.scannedAt }

// SetLocation records the slot now holding the bottle
func (b *Bottle) SetLocation(poseName string) {
	b.location = poseName
	if poseName != "" {
		b.homeSlot = poseName
	}
}

// ClearLocation marks the bottle as in transit (on an arm, between slots)
func (b *Bottle) ClearLocation() {
	b.location = ""
}

// MarkScanned records the time the bottle's QR code was read
func (b *Bottle) MarkScanned(at time.Time) {
	t := at
	b.scannedAt = &t
}
