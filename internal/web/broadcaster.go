package web

import (
	"sync"

	"gpsbeacon/internal/gps"
)

// Broadcaster fans fix snapshots out to stream listeners. It keeps the most
// recent value so new subscribers get an immediate sample.
type Broadcaster struct {
	mu       sync.RWMutex
	subs     map[int]chan gps.Snapshot
	nextID   int
	last     gps.Snapshot
	haveLast bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan gps.Snapshot)}
}

func (b *Broadcaster) Subscribe(buffer int) (int, <-chan gps.Snapshot) {
	if b == nil {
		return 0, nil
	}
	if buffer <= 0 {
		buffer = 2
	}
	ch := make(chan gps.Snapshot, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	last, have := b.last, b.haveLast
	b.mu.Unlock()
	if have {
		select {
		case ch <- last:
		default:
		}
	}
	return id, ch
}

func (b *Broadcaster) Unsubscribe(id int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish never blocks; slow subscribers miss samples.
func (b *Broadcaster) Publish(snap gps.Snapshot) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = snap
	b.haveLast = true
	for _, ch := range b.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
