package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskgen/internal/watcher"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchFor time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print changes to the task directory until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if watchFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, watchFor)
		defer cancel()
	}

	w := newWatcher()
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.Tasks.Dir, err)
	}
	defer w.Stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching %s (ctrl+c to stop)\n", w.Dir())
	for ev := range w.Events() {
		fmt.Fprintf(out, "%s  %-7s  %s\n", time.Now().Format("15:04:05"), ev.Kind, ev.Name())
	}

	stats := w.Stats()
	logger.Debug("watch finished",
		zap.Int("created", stats.Created),
		zap.Int("deleted", stats.Deleted),
		zap.Int("moved", stats.Moved),
		zap.Int("modified", stats.Modified),
		zap.Int("errors", stats.Errors))
	return nil
}

func newWatcher() *watcher.Watcher {
	return watcher.New(cfg.Tasks.Dir,
		watcher.WithSuffix(cfg.Tasks.Extension),
		watcher.WithBuffer(cfg.Watcher.Buffer))
}
