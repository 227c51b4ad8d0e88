package scan

import (
	"sync"

	"github.com/sells-group/market-scan/internal/model"
)

// subscriberBuffer is the per-subscriber channel capacity. A subscriber
// that falls further behind than this starts losing events; delivery is
// best-effort and the persisted scan state is the source of truth.
const subscriberBuffer = 32

// Broadcaster fans progress events out to per-scan subscribers. A
// publish never blocks, so a slow or absent subscriber cannot stall the
// pipeline.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan model.ProgressEvent
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]map[int]chan model.ProgressEvent)}
}

// Subscribe registers a listener for one scan's events. The returned
// cancel func closes the channel and removes the subscription; it is
// safe to call more than once.
func (b *Broadcaster) Subscribe(scanID string) (<-chan model.ProgressEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan model.ProgressEvent, subscriberBuffer)
	if b.subs[scanID] == nil {
		b.subs[scanID] = make(map[int]chan model.ProgressEvent)
	}
	id := b.nextID
	b.nextID++
	b.subs[scanID][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[scanID], id)
			if len(b.subs[scanID]) == 0 {
				delete(b.subs, scanID)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers an event to every live subscriber of the scan.
// Full channels are skipped.
func (b *Broadcaster) Publish(scanID string, ev model.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs[scanID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
