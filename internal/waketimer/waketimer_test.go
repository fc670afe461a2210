package waketimer

import (
	"context"
	"sync"
	"testing"
	"time"

	logx "medremind/pkg/logx"
)

type recorder struct {
	mu    sync.Mutex
	fires []string
	done  chan struct{}
}

func newRecorder(expect int) *recorder {
	return &recorder{done: make(chan struct{}, expect)}
}

func (r *recorder) handle(_ context.Context, key string, _ Payload) {
	r.mu.Lock()
	r.fires = append(r.fires, key)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *recorder) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for fire %d/%d", i+1, n)
		}
	}
}

func (r *recorder) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.fires...)
}

func TestRegisterFires(t *testing.T) {
	t.Parallel()
	rec := newRecorder(1)
	w := New(rec.handle, logx.Nop())
	defer w.Close()

	w.Register("med/1/08:00", time.Now().Add(10*time.Millisecond), Payload{MedicationID: 1})
	rec.wait(t, 1)
	if got := rec.keys(); len(got) != 1 || got[0] != "med/1/08:00" {
		t.Fatalf("fires = %v", got)
	}
}

func TestRegisterPastInstantFiresImmediately(t *testing.T) {
	t.Parallel()
	rec := newRecorder(1)
	w := New(rec.handle, logx.Nop())
	defer w.Close()

	w.Register("med/1/08:00", time.Now().Add(-time.Hour), Payload{})
	rec.wait(t, 1)
}

func TestRegisterSameKeyReplaces(t *testing.T) {
	t.Parallel()
	rec := newRecorder(2)
	w := New(rec.handle, logx.Nop())
	defer w.Close()

	// The first registration is far out; the second replaces it.
	w.Register("med/1/08:00", time.Now().Add(time.Hour), Payload{})
	w.Register("med/1/08:00", time.Now().Add(10*time.Millisecond), Payload{})
	rec.wait(t, 1)

	// Only one trigger existed; no second fire arrives.
	select {
	case <-rec.done:
		t.Fatal("stale registration fired")
	case <-time.After(50 * time.Millisecond):
	}
	if len(w.Pending()) != 0 {
		t.Fatalf("pending = %v, want empty", w.Pending())
	}
}

func TestCancel(t *testing.T) {
	t.Parallel()
	rec := newRecorder(1)
	w := New(rec.handle, logx.Nop())
	defer w.Close()

	w.Register("med/1/08:00", time.Now().Add(30*time.Millisecond), Payload{})
	if !w.Cancel("med/1/08:00") {
		t.Fatal("Cancel should report an existing key")
	}
	if w.Cancel("med/1/08:00") {
		t.Fatal("second Cancel should report no key")
	}
	select {
	case <-rec.done:
		t.Fatal("cancelled trigger fired")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestCancelAll(t *testing.T) {
	t.Parallel()
	rec := newRecorder(3)
	w := New(rec.handle, logx.Nop())
	defer w.Close()

	at := time.Now().Add(time.Hour)
	w.Register("med/1/08:00", at, Payload{})
	w.Register("med/1/20:00", at, Payload{})
	w.Register("med/2/08:00", at, Payload{})

	if n := w.CancelAll(); n != 3 {
		t.Fatalf("CancelAll = %d, want 3", n)
	}
	if len(w.Pending()) != 0 {
		t.Fatalf("pending after CancelAll: %v", w.Pending())
	}
}

func TestCloseStopsRegistrations(t *testing.T) {
	t.Parallel()
	rec := newRecorder(1)
	w := New(rec.handle, logx.Nop())

	w.Register("med/1/08:00", time.Now().Add(time.Hour), Payload{})
	w.Close()
	w.Register("med/2/08:00", time.Now().Add(5*time.Millisecond), Payload{})

	select {
	case <-rec.done:
		t.Fatal("registration after Close fired")
	case <-time.After(50 * time.Millisecond):
	}
}
