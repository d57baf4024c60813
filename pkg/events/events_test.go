package events

import (
	"strings"
	"testing"
	"time"
)

func TestBroadcaster_PublishSubscribe(t *testing.T) {
	b := NewBroadcaster(10)
	sub := b.Subscribe(4)
	defer sub.Close()

	Logf(b, "Starting Appium session (attempt %d/%d)", 1, 3)

	select {
	case e := <-sub.C:
		if e.Kind != KindLog {
			t.Errorf("Kind = %q, want log", e.Kind)
		}
		if e.ID == "" || e.Time.IsZero() {
			t.Errorf("event not stamped: %+v", e)
		}
		if !strings.Contains(e.Message, "attempt 1/3") {
			t.Errorf("Message = %q", e.Message)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestBroadcaster_NeverBlocks(t *testing.T) {
	b := NewBroadcaster(10)
	sub := b.Subscribe(1)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			b.Publish(Event{Message: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
	if b.Dropped() != 49 {
		t.Errorf("Dropped() = %d, want 49", b.Dropped())
	}
}

func TestBroadcaster_CloseTwice(t *testing.T) {
	b := NewBroadcaster(1)
	sub := b.Subscribe(1)
	sub.Close()
	sub.Close()

	if _, ok := <-sub.C; ok {
		t.Error("channel should be closed")
	}
	b.Publish(Event{Message: "after close"})
}

func TestBroadcaster_Recent(t *testing.T) {
	b := NewBroadcaster(3)
	for _, m := range []string{"a", "b", "c", "d"} {
		b.Publish(Event{Message: m})
	}

	got := b.Recent(10)
	if len(got) != 3 {
		t.Fatalf("len(Recent) = %d, want 3", len(got))
	}
	if got[0].Message != "b" || got[2].Message != "d" {
		t.Errorf("Recent = %v", got)
	}
}

func TestLogf_NilPublisher(t *testing.T) {
	Logf(nil, "ignored")
}

func TestRecorder(t *testing.T) {
	var r Recorder
	Logf(&r, "one")
	Logf(&r, "two")
	if got := r.Events(); len(got) != 2 || got[1].Message != "two" {
		t.Errorf("Events() = %v", got)
	}
}

func TestLogf_NilRecorder(t *testing.T) {
	var r *Recorder
	Logf(r, "dropped")
	if got := r.Events(); got != nil {
		t.Errorf("Events() = %v, want nil", got)
	}
}
