package progress

import "sync"

// DefaultPumpBuffer is the channel capacity used by NewPump when size <= 0.
const DefaultPumpBuffer = 64

// Pump forwards events to a downstream sink from one goroutine.
// Emit may be called from any number of goroutines. Events emitted after
// Close are dropped.
type Pump struct {
	ch   chan Event
	out  Sink
	done chan struct{}

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

// NewPump starts a pump delivering to out.
func NewPump(out Sink, size int) *Pump {
	if size <= 0 {
		size = DefaultPumpBuffer
	}
	p := &Pump{
		ch:   make(chan Event, size),
		out:  OrNop(out),
		done: make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Pump) run() {
	defer close(p.done)
	for e := range p.ch {
		p.out.Emit(e)
	}
}

// Emit queues e for delivery. It blocks while the buffer is full.
func (p *Pump) Emit(e Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	p.ch <- e
}

// Close stops accepting events and waits until every queued event has been
// delivered.
func (p *Pump) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.ch)
		p.mu.Unlock()
	})
	<-p.done
}
