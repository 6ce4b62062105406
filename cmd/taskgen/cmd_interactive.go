package main

import (
	"context"

	"taskgen/cmd/taskgen/ui"
	"taskgen/internal/logging"
	"taskgen/internal/session"
	"taskgen/internal/watcher"

	"github.com/spf13/cobra"
)

// runInteractive launches the full-screen editor. A watcher that cannot start
// only costs live refresh; the editor still runs.
func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	conf := ui.NewPromptConfirmer()
	sess := session.New(newStore(), session.WithConfirmer(conf))

	var events <-chan watcher.Event
	if cfg.Watcher.Enabled {
		w := newWatcher()
		if err := w.Start(ctx); err != nil {
			logging.WatcherWarn("live refresh disabled: %v", err)
		} else {
			defer w.Stop()
			events = w.Events()
		}
	}

	logging.UI("interactive editor on %s", cfg.Tasks.Dir)
	return ui.Run(ui.Options{
		Session:   sess,
		Confirmer: conf,
		Events:    events,
		Refresh:   cfg.GetRefreshInterval(),
		Styles:    ui.NewStyles(ui.DetectTheme(cfg.UI.Theme)),
		ListWidth: cfg.UI.ListWidth,
		Clipboard: cfg.UI.Clipboard,
	})
}
