package ui

import (
	"context"
	"testing"
	"time"

	"taskgen/internal/watcher"
)

func TestWaitForEvents_CoalescesBurst(t *testing.T) {
	ch := make(chan watcher.Event, 3)
	ch <- watcher.Event{Kind: watcher.Created, Path: "/t/.a.csv.tmp"}
	ch <- watcher.Event{Kind: watcher.Created, Path: "/t/a.csv"}
	ch <- watcher.Event{Kind: watcher.Deleted, Path: "/t/b.csv"}

	msg := waitForEvents(ch, 20*time.Millisecond)().(eventsMsg)
	if msg.closed {
		t.Fatal("channel reported closed while still open")
	}
	if len(msg.events) != 3 {
		t.Fatalf("expected 3 coalesced events, got %d", len(msg.events))
	}
	if msg.events[2].Name() != "b.csv" {
		t.Errorf("events out of order: %+v", msg.events)
	}
}

func TestWaitForEvents_NoWindow(t *testing.T) {
	ch := make(chan watcher.Event, 2)
	ch <- watcher.Event{Kind: watcher.Created, Path: "/t/a.csv"}
	ch <- watcher.Event{Kind: watcher.Created, Path: "/t/b.csv"}

	msg := waitForEvents(ch, 0)().(eventsMsg)
	if len(msg.events) != 1 {
		t.Errorf("expected one event without a window, got %d", len(msg.events))
	}
}

func TestWaitForEvents_Closed(t *testing.T) {
	ch := make(chan watcher.Event)
	close(ch)
	msg := waitForEvents(ch, time.Second)().(eventsMsg)
	if !msg.closed || len(msg.events) != 0 {
		t.Errorf("expected closed empty batch, got %+v", msg)
	}
}

func TestWaitForEvents_ClosedMidBurst(t *testing.T) {
	ch := make(chan watcher.Event, 1)
	ch <- watcher.Event{Kind: watcher.Deleted, Path: "/t/a.csv"}
	close(ch)
	msg := waitForEvents(ch, time.Second)().(eventsMsg)
	if !msg.closed || len(msg.events) != 1 {
		t.Errorf("expected closed batch with one event, got %+v", msg)
	}
}

func TestPromptConfirmer(t *testing.T) {
	c := NewPromptConfirmer()
	ctx := context.Background()

	if ok, err := c.Confirm(ctx, "delete?"); ok || err != nil {
		t.Errorf("empty queue = (%v, %v), want (false, nil)", ok, err)
	}

	c.push(true, false)
	if ok, _ := c.Confirm(ctx, "first"); !ok {
		t.Error("expected first queued answer true")
	}
	if ok, _ := c.Confirm(ctx, "second"); ok {
		t.Error("expected second queued answer false")
	}

	c.push(true)
	c.reset()
	if ok, _ := c.Confirm(ctx, "after reset"); ok {
		t.Error("reset should drop queued answers")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	c.push(true)
	if _, err := c.Confirm(cancelled, "cancelled"); err == nil {
		t.Error("expected context error")
	}
}
