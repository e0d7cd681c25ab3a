package orchestrator

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"
)

// Event kinds published while a pipeline runs.
const (
	EventStageStarted   = "stage_started"
	EventStageCompleted = "stage_completed"
	EventShortCircuit   = "short_circuit"
	EventRetry          = "retry"
	EventRunCompleted   = "run_completed"
	EventCheckIn        = "check_in"
)

// Event is a generic SSE payload wrapper.
type Event struct {
	Event   string    `json:"event"`
	GoalID  string    `json:"goal_id"`
	RunID   string    `json:"run_id,omitempty"`
	Stage   string    `json:"stage,omitempty"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

type subscriber chan []byte

// Hub fans pipeline events out to subscribers of a goal.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[subscriber]struct{} // goalID -> set of subscribers
}

func NewHub() *Hub { return &Hub{subs: map[string]map[subscriber]struct{}{}} }

// GoalKey is the hub key for a goal id.
func GoalKey(id int64) string { return strconv.FormatInt(id, 10) }

// Subscribe returns a channel of JSON-encoded events for goalID. The caller
// must call the returned func when done.
func (h *Hub) Subscribe(goalID string) (<-chan []byte, func()) {
	ch := make(subscriber, 16)
	h.mu.Lock()
	set := h.subs[goalID]
	if set == nil {
		set = map[subscriber]struct{}{}
		h.subs[goalID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[goalID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, goalID)
				}
			}
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, unsubscribe
}

// Publish never blocks; slow subscribers miss events.
func (h *Hub) Publish(goalID string, ev Event) {
	if h == nil {
		return
	}
	ev.GoalID = goalID
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.RLock()
	for ch := range h.subs[goalID] {
		select {
		case ch <- b:
		default:
		}
	}
	h.mu.RUnlock()
}

// Subscribers reports how many listeners goalID has.
func (h *Hub) Subscribers(goalID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[goalID])
}
