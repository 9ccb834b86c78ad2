package config

import (
	"context"
	"fmt"
	"time"

	"github.com/radovskyb/watcher"
)

// Watch polls path every interval and calls onChange with the reloaded
// config after each write. Files that fail to load or validate are reported
// to onError and otherwise ignored. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, interval time.Duration, onChange func(*Config), onError func(error)) error {
	if interval < time.Millisecond {
		return fmt.Errorf("config: watch interval %s is too short", interval)
	}

	w := watcher.New()
	w.SetMaxEvents(1)
	w.FilterOps(watcher.Write, watcher.Create)

	if err := w.Add(path); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}

	go func() { _ = w.Start(interval) }()
	w.Wait()

	for {
		select {
		case <-ctx.Done():
			go w.Close()
			for {
				select {
				case <-w.Event:
				case <-w.Error:
				case <-w.Closed:
					return nil
				}
			}

		case <-w.Event:
			cfg, err := Load(path)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				onError(err)
				continue
			}
			onChange(cfg)

		case err := <-w.Error:
			onError(err)

		case <-w.Closed:
			return nil
		}
	}
}
