package scanning

import (
	"sync"

	"github.com/athena-robotics/workcell-go/internal/domain/shared"
)

// EnterIDInput is what the operator keys in for the bottle being scanned
type EnterIDInput struct {
	BottleID   string
	ObjectType string
}

// Exchange is the rendezvous between the scan worker and ENTER_ID
// callers. At most one session waits at a time; delivery is validated
// against the detected bottle type before the session is woken, so a
// mismatched id leaves the session parked.
type Exchange struct {
	mu      sync.Mutex
	waiting *Session
}

func NewExchange() *Exchange {
	return &Exchange{}
}

// Deliver hands an operator input to the waiting session. Returns
// NoWaitingTaskError when no session is parked and EnterIDMismatchError
// when the type does not match the detection. When several callers
// race, exactly one delivery succeeds.
func (x *Exchange) Deliver(input EnterIDInput) (taskID string, err error) {
	x.mu.Lock()
	s := x.waiting
	x.mu.Unlock()
	if s == nil {
		return "", shared.NewNoWaitingTaskError()
	}
	return s.deliver(input)
}

func (x *Exchange) register(s *Session) {
	x.mu.Lock()
	x.waiting = s
	x.mu.Unlock()
}

func (x *Exchange) clear(s *Session) {
	x.mu.Lock()
	if x.waiting == s {
		x.waiting = nil
	}
	x.mu.Unlock()
}
