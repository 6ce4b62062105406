package ui

import (
	"time"

	"taskgen/internal/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

// eventsMsg carries a burst of directory events collected by waitForEvents.
type eventsMsg struct {
	events []watcher.Event
	closed bool
}

// waitForEvents blocks for one event, then keeps collecting for window so a
// burst (a save is a create plus a rename) becomes a single refresh. The
// command returns when the channel closes, so it never outlives the watcher.
func waitForEvents(ch <-chan watcher.Event, window time.Duration) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsMsg{closed: true}
		}
		batch := []watcher.Event{ev}
		if window <= 0 {
			return eventsMsg{events: batch}
		}
		timer := time.NewTimer(window)
		defer timer.Stop()
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return eventsMsg{events: batch, closed: true}
				}
				batch = append(batch, ev)
			case <-timer.C:
				return eventsMsg{events: batch}
			}
		}
	}
}
