package dialog

import (
	"sync"
	"time"

	"github.com/zakkerni/zakkerni/internal/store"
)

// step is where a chat currently is in a guided flow. The task flow walks
// title, then due phrase, then (for premium owners) a repeat choice; the
// reminder flow walks body then cadence.
type step int

const (
	stepIdle step = iota
	stepAwaitTask
	stepAwaitDue
	stepAwaitRecurrence
	stepAwaitReminder
	stepAwaitReminderInterval
)

// conversation is the scratch state of one chat's current flow. It is
// transient: a restart simply drops users back to idle.
type conversation struct {
	Step  step
	Title string
	Due   *time.Time
	Body  string
	Rec   store.Recurrence
}

// stateManager keys conversations by the inbound message's state key.
type stateManager struct {
	mu    sync.Mutex
	convs map[string]*conversation
}

func newStateManager() *stateManager {
	return &stateManager{convs: make(map[string]*conversation)}
}

// get returns the chat's conversation, creating an idle one if absent.
func (m *stateManager) get(key string) *conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.convs[key]; ok {
		return c
	}
	c := &conversation{}
	m.convs[key] = c
	return c
}

// reset drops the chat back to idle.
func (m *stateManager) reset(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.convs, key)
}
