package eventbus

import (
	"testing"
	"time"
)

func TestPublishFansOut(t *testing.T) {
	t.Parallel()
	b := New()
	ch1, unsub1 := b.Subscribe(4)
	ch2, unsub2 := b.Subscribe(4)
	defer unsub1()
	defer unsub2()

	b.Publish(Event{Type: TypeReminderFired, Data: "x"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			if e.Type != TypeReminderFired {
				t.Fatalf("subscriber %d got type %q", i+1, e.Type)
			}
			if e.Time.IsZero() {
				t.Fatalf("subscriber %d got zero publish time", i+1)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received the event", i+1)
		}
	}
}

func TestPublishDropsWhenSubscriberIsFull(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: TypeDayReset})
	b.Publish(Event{Type: TypeLowStock}) // buffer full: dropped, no block

	e := <-ch
	if e.Type != TypeDayReset {
		t.Fatalf("got %q, want the first event", e.Type)
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected second event %q", e.Type)
	default:
	}
}

func TestUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(2)

	unsub()
	unsub() // second call is a no-op

	b.Publish(Event{Type: TypeIntakeTaken})

	if _, ok := <-ch; ok {
		t.Fatal("closed subscription must not receive events")
	}
}

func TestPublishWithNoSubscribers(t *testing.T) {
	t.Parallel()
	b := New()
	b.Publish(Event{Type: TypeIntakeMissed}) // must not panic or block
}
