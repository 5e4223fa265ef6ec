package service

import (
	"sync"
	"time"

	"github.com/junker098/universe-app/internal/model"
	"github.com/wb-go/wbf/zlog"
)

// EventBus fans workflow events out to subscribers in emission order.
// Publish never blocks: a subscriber whose buffer is full loses the event.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[uint64]chan model.Event
	nextID uint64
	seq    uint64
	buffer int
	closed bool
}

func NewEventBus(buffer int) *EventBus {
	return &EventBus{
		subs:   make(map[uint64]chan model.Event),
		buffer: buffer,
	}
}

func (b *EventBus) Subscribe() (<-chan model.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan model.Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *EventBus) Publish(ev model.Event) model.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	ev.Seq = b.seq
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			zlog.Logger.Warn().Uint64("subscriber", id).Uint64("seq", ev.Seq).Str("kind", string(ev.Kind)).Msg("Event dropped: subscriber buffer is full")
		}
	}
	return ev
}

// Close releases every subscriber; later Subscribe calls get a closed channel.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
