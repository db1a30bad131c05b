package eventbus

import "testing"

func TestPushPopFIFO(t *testing.T) {
	q := New[Event](4)
	q.TryPush(Event{Kind: NoteOn, Key: 60})
	q.TryPush(Event{Kind: NoteOn, Key: 61})

	ev, ok := q.TryPop()
	if !ok || ev.Key != 60 {
		t.Fatalf("expected first event to be key 60, got %+v ok=%v", ev, ok)
	}
	ev, ok = q.TryPop()
	if !ok || ev.Key != 61 {
		t.Fatalf("expected second event to be key 61, got %+v ok=%v", ev, ok)
	}
	if _, ok := q.TryPop(); ok {
		t.Fatalf("expected queue to be empty")
	}
}

func TestOverflowDrops(t *testing.T) {
	q := New[Event](2)
	q.TryPush(Event{Kind: NoteOn})
	q.TryPush(Event{Kind: NoteOn})
	if q.TryPush(Event{Kind: NoteOn}) {
		t.Fatalf("expected third push to fail on a full queue")
	}
	if q.Dropped.Load() != 1 {
		t.Errorf("expected drop counter to increment, got %d", q.Dropped.Load())
	}
}

func TestDrainAllInvokesInOrder(t *testing.T) {
	q := New[Event](8)
	for i := 0; i < 5; i++ {
		q.TryPush(Event{Kind: ControllerChange, Value: uint8(i)})
	}
	var seen []uint8
	q.DrainAll(func(ev Event) { seen = append(seen, ev.Value) })
	for i, v := range seen {
		if v != uint8(i) {
			t.Fatalf("expected FIFO order, got %v", seen)
		}
	}
	if len(seen) != 5 {
		t.Errorf("expected 5 drained events, got %d", len(seen))
	}
}
