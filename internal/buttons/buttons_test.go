package buttons

import (
	"testing"
	"time"
)

func TestDebouncerDropsRapidRepeats(t *testing.T) {
	d := newDebouncer(50 * time.Millisecond)
	base := time.Now()

	if !d.accept(ButtonPlayPause, base) {
		t.Fatal("first press rejected")
	}
	if d.accept(ButtonPlayPause, base.Add(10*time.Millisecond)) {
		t.Error("bounce inside the window accepted")
	}
	if !d.accept(ButtonPlayPause, base.Add(60*time.Millisecond)) {
		t.Error("press after the window rejected")
	}
}

func TestDebouncerTracksButtonsIndependently(t *testing.T) {
	d := newDebouncer(50 * time.Millisecond)
	base := time.Now()

	if !d.accept(ButtonPlayPause, base) {
		t.Fatal("first press rejected")
	}
	if !d.accept(ButtonNext, base.Add(time.Millisecond)) {
		t.Error("different button suppressed by another button's window")
	}
}

func TestEmitDropsWhenChannelFull(t *testing.T) {
	out := make(chan Event, 1)
	emit(out, Event{Button: ButtonNext, At: time.Now()})
	emit(out, Event{Button: ButtonPrevious, At: time.Now()}) // must not block

	ev := <-out
	if ev.Button != ButtonNext {
		t.Errorf("button = %s, want next", ev.Button)
	}
	select {
	case ev := <-out:
		t.Errorf("unexpected second event %v", ev)
	default:
	}
}

func TestButtonIDValid(t *testing.T) {
	for _, b := range []ButtonID{ButtonPlayPause, ButtonPrevious, ButtonNext, ButtonCycleSource} {
		if !b.Valid() {
			t.Errorf("%s reported invalid", b)
		}
	}
	if ButtonID("volume_up").Valid() {
		t.Error("unknown button reported valid")
	}
}
