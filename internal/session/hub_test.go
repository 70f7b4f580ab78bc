package session

import "testing"

func TestHubPublishAndUnsubscribe(t *testing.T) {
	h := NewHub()
	id1, ch1 := h.Subscribe()
	id2, ch2 := h.Subscribe()
	if id1 == id2 {
		t.Fatalf("duplicate subscriber ids: %s", id1)
	}

	h.Publish(Event{Type: EvtPaused})
	for _, ch := range []chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			if evt.Type != EvtPaused {
				t.Errorf("event type = %s, want %s", evt.Type, EvtPaused)
			}
		default:
			t.Fatal("subscriber did not receive event")
		}
	}

	h.Unsubscribe(id1)
	if _, ok := <-ch1; ok {
		t.Fatal("channel not closed on Unsubscribe")
	}
	// Unsubscribing twice is a no-op.
	h.Unsubscribe(id1)

	h.Publish(Event{Type: EvtResumed})
	select {
	case evt := <-ch2:
		if evt.Type != EvtResumed {
			t.Errorf("event type = %s, want %s", evt.Type, EvtResumed)
		}
	default:
		t.Fatal("remaining subscriber missed event")
	}
}

func TestHubDropsForSlowSubscribers(t *testing.T) {
	h := NewHub()
	_, ch := h.Subscribe()

	// Overflow the buffer; Publish must not block.
	for i := 0; i < 100; i++ {
		h.Publish(Event{Type: EvtKeypoints})
	}
	if got := len(ch); got != cap(ch) {
		t.Errorf("buffered events = %d, want full buffer %d", got, cap(ch))
	}
}

func TestHubClose(t *testing.T) {
	h := NewHub()
	_, ch := h.Subscribe()
	h.Close()

	if _, ok := <-ch; ok {
		t.Fatal("channel not closed on hub Close")
	}
	// Publishing after Close is a no-op.
	h.Publish(Event{Type: EvtError})
}

func TestPostureMessages(t *testing.T) {
	if got := postureMessage("squat_back_round"); got != "Straighten your back! Look ahead." {
		t.Errorf("known code message = %q", got)
	}
	if got := postureMessage("never_heard_of_it"); got != "Check your posture!" {
		t.Errorf("fallback message = %q", got)
	}
}
