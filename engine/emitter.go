package engine

import (
	"sync"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/logger"
)

type subscriber struct {
	id      int64
	handler Handler
}

// Emitter dispatches events to subscribers synchronously, in
// subscription order. A panicking handler is logged and skipped.
type Emitter struct {
	subs   map[string][]subscriber
	nextId int64
	mutex  sync.RWMutex
}

func NewEmitter() *Emitter {
	return &Emitter{subs: make(map[string][]subscriber)}
}

func (e *Emitter) On(kind string, h Handler) func() {
	e.mutex.Lock()
	e.nextId++
	id := e.nextId
	e.subs[kind] = append(e.subs[kind], subscriber{id: id, handler: h})
	e.mutex.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.off(kind, id) })
	}
}

func (e *Emitter) off(kind string, id int64) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	subs := e.subs[kind]
	for i, s := range subs {
		if s.id == id {
			e.subs[kind] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(e.subs[kind]) == 0 {
		delete(e.subs, kind)
	}
}

func (e *Emitter) Emit(ev Event) {
	e.mutex.RLock()
	subs := e.subs[ev.Kind]
	e.mutex.RUnlock()

	for _, s := range subs {
		e.call(s, ev)
	}
}

func (e *Emitter) call(s subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("engine: %s handler panicked: %v", ev.Kind, r)
		}
	}()
	s.handler(ev)
}

// Listeners reports how many handlers are subscribed to kind.
func (e *Emitter) Listeners(kind string) int {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return len(e.subs[kind])
}
