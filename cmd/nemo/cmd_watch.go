package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/aidan-bailey/nemo/internal/config"
)

var watchCmd = &cobra.Command{
	Use:   "watch <manifest>",
	Short: "Re-run the program whenever its rule files change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return watchManifest(ctx, args[0])
	},
}

// watchManifest runs the manifest once, then re-runs it whenever the
// manifest or one of its rule files changes. Rapid saves are debounced.
func watchManifest(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	addTargets := func() error {
		manifest, err := config.Load(path)
		if err != nil {
			return err
		}
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			return err
		}
		watched[filepath.Clean(path)] = true
		for _, file := range manifest.Rules {
			resolved := manifest.Resolve(file)
			if err := watcher.Add(filepath.Dir(resolved)); err != nil {
				return err
			}
			watched[filepath.Clean(resolved)] = true
		}
		return nil
	}
	if err := addTargets(); err != nil {
		return err
	}

	rerun := func() {
		if err := runManifest(ctx, path); err != nil {
			fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		}
	}
	rerun()

	const debounce = 500 * time.Millisecond
	var pending *time.Timer
	trigger := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(debounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		case <-trigger:
			rerun()
		}
	}
}
