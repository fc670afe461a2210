// Package waketimer is the wake-up trigger collaborator: keyed one-shot
// timers that fire a handler at an absolute instant. Registration is an
// upsert (last write wins per key), so recomputing the trigger set is
// always safe.
package waketimer

import (
	"context"
	"sync"
	"time"

	logx "medremind/pkg/logx"
)

// Payload travels with a trigger from registration to fire. It is advisory:
// the handler must re-validate against storage, because the underlying
// occurrence may have been acted upon, deleted, or reset in between.
type Payload struct {
	MedicationID   int64
	MedicationName string
	Clock          string
	Dose           string
}

// Handler is invoked when a trigger fires. Fires run on their own goroutine.
type Handler func(ctx context.Context, key string, p Payload)

// Timer registers and cancels keyed wake-up triggers.
type Timer interface {
	Register(key string, at time.Time, p Payload)
	Cancel(key string) bool
	CancelAll() int
}

// Service backs Timer with time.AfterFunc. Each key carries a version
// counter so callbacks from replaced registrations are ignored.
type Service struct {
	handler Handler
	log     logx.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	ver    map[string]uint64
	closed bool

	baseCtx context.Context
	cancel  context.CancelFunc
	fires   sync.WaitGroup
}

// New returns an in-process Timer delivering fires to handler.
func New(handler Handler, log logx.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		handler: handler,
		log:     log,
		timers:  map[string]*time.Timer{},
		ver:     map[string]uint64{},
		baseCtx: ctx,
		cancel:  cancel,
	}
}

func (t *Service) Register(key string, at time.Time, p Payload) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	if old, ok := t.timers[key]; ok {
		_ = old.Stop()
		delete(t.timers, key)
	}
	t.ver[key]++
	ver := t.ver[key]

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}

	t.timers[key] = time.AfterFunc(delay, func() {
		t.mu.Lock()
		if t.closed || t.ver[key] != ver {
			t.mu.Unlock()
			return
		}
		delete(t.timers, key)
		delete(t.ver, key)
		t.fires.Add(1)
		t.mu.Unlock()

		go func() {
			defer t.fires.Done()
			t.handler(t.baseCtx, key, p)
		}()
	})

	t.log.Debug("trigger registered",
		logx.String("key", key), logx.Time("at", at))
}

func (t *Service) Cancel(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	timer, ok := t.timers[key]
	if !ok {
		return false
	}
	_ = timer.Stop()
	delete(t.timers, key)
	delete(t.ver, key)
	t.log.Debug("trigger cancelled", logx.String("key", key))
	return true
}

func (t *Service) CancelAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.timers)
	for key, timer := range t.timers {
		_ = timer.Stop()
		delete(t.timers, key)
		delete(t.ver, key)
	}
	return n
}

// Pending returns the currently registered trigger keys.
func (t *Service) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make([]string, 0, len(t.timers))
	for k := range t.timers {
		keys = append(keys, k)
	}
	return keys
}

// Close cancels all triggers, stops accepting registrations, and waits for
// in-flight fires to drain.
func (t *Service) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	for key, timer := range t.timers {
		_ = timer.Stop()
		delete(t.timers, key)
		delete(t.ver, key)
	}
	t.mu.Unlock()

	t.cancel()
	t.fires.Wait()
}
