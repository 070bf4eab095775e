package eventbus

import (
	"testing"
)

func TestPublishFiltersByTopic(t *testing.T) {
	t.Parallel()
	b := New()
	all, unsubAll := b.Subscribe(4)
	defer unsubAll()
	done, unsubDone := b.Subscribe(4, TopicCounterDone)
	defer unsubDone()

	b.Publish(Event{Type: TopicTriggered, Element: "a"})
	b.Publish(Event{Type: TopicCounterDone, Element: "b", Data: 250})

	if got := len(all); got != 2 {
		t.Fatalf("unfiltered subscriber got %d events, want 2", got)
	}
	if got := len(done); got != 1 {
		t.Fatalf("filtered subscriber got %d events, want 1", got)
	}
	e := <-done
	if e.Element != "b" || e.Data.(int) != 250 || e.Time.IsZero() {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	t.Parallel()
	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: TopicShown})
	b.Publish(Event{Type: TopicShown})
	b.Publish(Event{Type: TopicShown})

	if got := Dropped(b); got != 2 {
		t.Fatalf("Dropped = %d, want 2", got)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	// Publishing after unsubscribe must not panic.
	b.Publish(Event{Type: TopicTeardown})
}
