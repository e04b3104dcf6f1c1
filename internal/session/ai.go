package session

import (
	"time"

	"sketchwars/internal/wire"
)

// aiAdapter drives the machine seat in single-player games. Seat
// identities come from start_game rather than assign_player: the server
// deals two seats and the adapter decides which one is the human based on
// the cached player id.
//
// The in-flight flag lives in the state store so a reloaded client does
// not issue a second stroke computation for the same turn.
type aiAdapter struct {
	store   StateStore
	timeout time.Duration

	humanID       string
	aiID          string
	aiTargetIndex int

	timer *time.Timer

	// replaying marks a stroke replay in flight so a duplicate push
	// cannot start a second one and double-end the AI turn.
	replaying bool
	stalled   bool
}

func newAIAdapter(store StateStore, timeout time.Duration) *aiAdapter {
	return &aiAdapter{store: store, timeout: timeout}
}

// resolveSeats picks the human seat from the start_game payload. A cached
// id matching a dealt seat means this is a resume; otherwise the lowest
// classifier index is the human and the cached state is reset.
func (a *aiAdapter) resolveSeats(cachedPlayerID string, p wire.StartGame) (humanID string, resumed bool) {
	if _, ok := p.Targets[cachedPlayerID]; ok {
		a.humanID = cachedPlayerID
		resumed = true
	} else {
		for id, idx := range p.TargetIndices {
			if a.humanID == "" || idx < p.TargetIndices[a.humanID] {
				a.humanID = id
			}
		}
		a.store.Delete(keyAIMutex)
	}

	for id := range p.Targets {
		if id != a.humanID {
			a.aiID = id
		}
	}
	a.aiTargetIndex = p.TargetIndices[a.aiID]
	return a.humanID, resumed
}

func (a *aiAdapter) mutexHeld() bool {
	v, ok := a.store.Get(keyAIMutex)
	return ok && v == "true"
}

func (a *aiAdapter) setMutex(held bool) {
	if held {
		a.store.Set(keyAIMutex, "true")
	} else {
		a.store.Delete(keyAIMutex)
	}
}

// armTimeout starts the stall watchdog for one stroke computation.
func (a *aiAdapter) armTimeout(onStall func()) {
	a.disarmTimeout()
	a.timer = time.AfterFunc(a.timeout, onStall)
}

func (a *aiAdapter) disarmTimeout() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
