package runtime

import "sync"

// Broadcaster fans values out to any number of subscribers, preserving
// publish order per subscriber. Publishing never blocks: each subscriber owns
// an in-memory queue drained by its own dispatcher goroutine, so one slow
// consumer cannot stall the publisher or its peers.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[int]*subQueue[T]
	nextID int
	closed bool
}

func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[int]*subQueue[T])}
}

// Subscribe returns a channel of future published values and a cancel
// function. Cancelling closes the channel; so does closing the broadcaster.
// Subscribing to a closed broadcaster yields an already-closed channel.
func (b *Broadcaster[T]) Subscribe(buf int) (<-chan T, func()) {
	sq := newSubQueue[T](buf)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sq.close()
		return sq.out, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = sq
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if q, ok := b.subs[id]; ok {
			delete(b.subs, id)
			q.close()
		}
		b.mu.Unlock()
	}
	return sq.out, cancel
}

// Publish delivers v to every current subscriber. A no-op after Close.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sq := range b.subs {
		sq.enqueue(v)
	}
}

// Close terminates every subscriber channel. Idempotent.
func (b *Broadcaster[T]) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, sq := range b.subs {
		sq.close()
		delete(b.subs, id)
	}
	return nil
}

type subQueue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []T
	closed bool
	out    chan T
}

func newSubQueue[T any](buf int) *subQueue[T] {
	sq := &subQueue[T]{out: make(chan T, buf)}
	sq.cond = sync.NewCond(&sq.mu)
	go sq.dispatch()
	return sq
}

func (sq *subQueue[T]) enqueue(v T) {
	sq.mu.Lock()
	if !sq.closed {
		sq.queue = append(sq.queue, v)
		sq.cond.Signal()
	}
	sq.mu.Unlock()
}

func (sq *subQueue[T]) close() {
	sq.mu.Lock()
	sq.closed = true
	sq.cond.Broadcast()
	sq.mu.Unlock()
}

func (sq *subQueue[T]) dispatch() {
	for {
		sq.mu.Lock()
		for !sq.closed && len(sq.queue) == 0 {
			sq.cond.Wait()
		}
		if sq.closed {
			sq.mu.Unlock()
			close(sq.out)
			return
		}
		v := sq.queue[0]
		copy(sq.queue, sq.queue[1:])
		sq.queue = sq.queue[:len(sq.queue)-1]
		sq.mu.Unlock()

		// Blocks only on the channel buffer / the subscriber reading.
		sq.out <- v
	}
}
