package jobs

import (
	"testing"
	"time"

	"viralforge/internal/models"
)

func TestHubSequencing(t *testing.T) {
	hub := NewHub(10)

	for i := 0; i < 3; i++ {
		hub.Publish(Event{JobID: "j1", Status: models.StatusDownloading})
	}

	events := hub.Since(0)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, e := range events {
		if e.Seq != int64(i+1) {
			t.Errorf("event %d seq = %d", i, e.Seq)
		}
		if e.Timestamp.IsZero() {
			t.Errorf("event %d has no timestamp", i)
		}
	}
}

func TestHubSince(t *testing.T) {
	hub := NewHub(10)
	hub.Publish(Event{JobID: "j1"})
	hub.Publish(Event{JobID: "j2"})
	third := hub.Publish(Event{JobID: "j3"})

	events := hub.Since(2)
	if len(events) != 1 || events[0].Seq != third.Seq {
		t.Fatalf("Since(2) = %v", events)
	}
	if got := hub.Since(third.Seq); got != nil {
		t.Fatalf("Since(latest) should be empty, got %v", got)
	}
}

func TestHubHistoryBound(t *testing.T) {
	hub := NewHub(5)
	for i := 0; i < 12; i++ {
		hub.Publish(Event{JobID: "j1"})
	}
	events := hub.Since(0)
	if len(events) != 5 {
		t.Fatalf("expected 5 retained events, got %d", len(events))
	}
	if events[0].Seq != 8 || events[4].Seq != 12 {
		t.Errorf("retained window = [%d, %d]", events[0].Seq, events[4].Seq)
	}
}

func TestHubSubscribe(t *testing.T) {
	hub := NewHub(10)
	ch, cancel := hub.Subscribe()
	defer cancel()

	published := hub.Publish(Event{JobID: "j1", Status: models.StatusRendering, Progress: 50})

	select {
	case got := <-ch:
		if got.Seq != published.Seq || got.JobID != "j1" || got.Progress != 50 {
			t.Errorf("received %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(10)
	_, cancel := hub.Subscribe()
	defer cancel()

	// Nobody drains the channel; publishing must still return promptly.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Publish(Event{JobID: "j1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestHubCancelIdempotent(t *testing.T) {
	hub := NewHub(10)
	_, cancel := hub.Subscribe()
	cancel()
	cancel() // second call must not panic

	hub.Publish(Event{JobID: "j1"}) // nor publishing after cancel
}

func TestHubPublishDuringCancel(t *testing.T) {
	hub := NewHub(10)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5000; i++ {
			hub.Publish(Event{JobID: "j1"})
		}
	}()

	// Subscriber churn while publishing must never panic the publisher
	// with a send on a released channel.
	for i := 0; i < 5000; i++ {
		_, cancel := hub.Subscribe()
		cancel()
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("publisher stalled during subscriber churn")
	}
}
