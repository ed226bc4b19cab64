package events

import (
	"sync"

	"github.com/tolelom/casinochain/log"
)

// Handler is a callback invoked for matching records.
type Handler func(Record)

// Emitter is a simple pub/sub broker for committed records. Subscribe
// before Emit. Emit is called only after a block commits, so subscribers
// never see rolled-back events.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	all      []Handler
	log      *log.Logger
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[EventType][]Handler), log: log.Module("events")}
}

// Subscribe registers h to be called whenever typ is emitted.
func (e *Emitter) Subscribe(typ EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typ] = append(e.handlers[typ], h)
}

// SubscribeAll registers h for every record.
func (e *Emitter) SubscribeAll(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.all = append(e.all, h)
}

// Emit delivers rec to all subscribers synchronously.
// Each handler is guarded by panic recovery so a misbehaving subscriber
// cannot crash the node or halt block production.
func (e *Emitter) Emit(rec Record) {
	e.mu.RLock()
	handlers := append(append([]Handler(nil), e.all...), e.handlers[rec.Type]...)
	e.mu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.log.Error("handler panicked", "type", rec.Type, "height", rec.Height, "panic", r)
				}
			}()
			h(rec)
		}()
	}
}

// EmitAll delivers a block's log in order.
func (e *Emitter) EmitAll(recs []Record) {
	for _, r := range recs {
		e.Emit(r)
	}
}
