package gate

import (
	"sync"
	"time"

	"github.com/portones-fc/access/internal/domain"
)

// StateStore holds the last observed door status per gate. It is the
// eventually consistent view the app reads: commands flip a gate into a
// transitional status optimistically, controller reports settle it, and a
// confirmation timeout degrades it to UNKNOWN when no report arrives.
//
// A gate that has never reported is UNKNOWN.
type StateStore struct {
	mu       sync.Mutex
	states   map[string]*gateState
	watchers map[int]chan domain.GateStatusChange
	nextID   int
}

type gateState struct {
	status domain.GateStatus
	timer  *time.Timer
	// gen invalidates a pending confirmation timer: the timer callback only
	// acts when its captured generation is still current.
	gen uint64
}

func NewStateStore() *StateStore {
	return &StateStore{
		states:   make(map[string]*gateState),
		watchers: make(map[int]chan domain.GateStatusChange),
	}
}

// Status returns the last observed status for a gate.
func (s *StateStore) Status(gateID string) domain.GateStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[gateID]; ok {
		return st.status
	}
	return domain.GateUnknown
}

// Snapshot returns a copy of every tracked gate status.
func (s *StateStore) Snapshot() map[string]domain.GateStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := make(map[string]domain.GateStatus, len(s.states))
	for id, st := range s.states {
		snap[id] = st.status
	}
	return snap
}

// BeginTransition optimistically moves a gate into a transitional status
// (OPENING or CLOSING) and arms a timer that forces the gate to UNKNOWN if no
// controller report confirms the transition within the timeout. It returns
// the prior status so a failed command can be rolled back with Revert.
func (s *StateStore) BeginTransition(gateID string, transitional domain.GateStatus, timeout time.Duration) domain.GateStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.ensure(gateID)
	prev := st.status

	s.disarm(st)
	st.status = transitional
	gen := st.gen
	st.timer = time.AfterFunc(timeout, func() {
		s.expire(gateID, gen)
	})

	s.notify(domain.GateStatusChange{GateID: gateID, Status: transitional, At: time.Now()})
	return prev
}

// Revert restores a gate to a prior status and disarms any pending
// confirmation timer. Used when the command behind an optimistic transition
// never made it onto the wire.
func (s *StateStore) Revert(gateID string, prev domain.GateStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.ensure(gateID)
	s.disarm(st)
	st.status = prev

	s.notify(domain.GateStatusChange{GateID: gateID, Status: prev, At: time.Now()})
}

// Apply records a controller report. The report always wins over whatever the
// store currently believes; redelivery of the current status is a no-op.
func (s *StateStore) Apply(evt domain.GateStatusEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.ensure(evt.GateID)
	if st.status == evt.Status {
		return
	}

	s.disarm(st)
	st.status = evt.Status

	s.notify(domain.GateStatusChange{GateID: evt.GateID, Status: evt.Status, At: evt.Timestamp})
}

// Subscribe registers a watcher for status changes. The channel is buffered;
// changes are dropped rather than blocking the store when the watcher lags.
// Call the returned cancel function to unsubscribe and close the channel.
func (s *StateStore) Subscribe() (<-chan domain.GateStatusChange, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan domain.GateStatusChange, 16)
	s.watchers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.watchers, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *StateStore) ensure(gateID string) *gateState {
	st, ok := s.states[gateID]
	if !ok {
		st = &gateState{status: domain.GateUnknown}
		s.states[gateID] = st
	}
	return st
}

// disarm cancels a pending confirmation timer and bumps the generation so a
// concurrently firing callback becomes a no-op. Caller holds the lock.
func (s *StateStore) disarm(st *gateState) {
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	st.gen++
}

func (s *StateStore) expire(gateID string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[gateID]
	if !ok || st.gen != gen {
		return
	}
	st.timer = nil
	st.gen++
	st.status = domain.GateUnknown

	s.notify(domain.GateStatusChange{GateID: gateID, Status: domain.GateUnknown, At: time.Now()})
}

// notify fans a change out to watchers. Caller holds the lock.
func (s *StateStore) notify(change domain.GateStatusChange) {
	for _, ch := range s.watchers {
		select {
		case ch <- change:
		default:
			// Drop the change if the watcher's buffer is full.
		}
	}
}
