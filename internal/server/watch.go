package server

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/rmksrv/mkxray-web/internal/web"
)

const reloadDebounce = 500 * time.Millisecond

// configWatcher reloads the [form] section whenever the config file changes
// and hands the new defaults to apply.
type configWatcher struct {
	path    string
	apply   func(web.FormDefaults)
	watcher *fsnotify.Watcher
	logger  zerolog.Logger
	done    chan struct{}
}

// newConfigWatcher watches the directory holding path, since editors often
// replace the file rather than write it in place.
func newConfigWatcher(path string, apply func(web.FormDefaults), logger zerolog.Logger) (*configWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &configWatcher{
		path:    abs,
		apply:   apply,
		watcher: watcher,
		logger:  logger.With().Str("component", "config").Logger(),
		done:    make(chan struct{}),
	}
	go w.loop()

	w.logger.Info().Str("file", abs).Msg("watching config for form changes")
	return w, nil
}

func (w *configWatcher) loop() {
	defer close(w.done)

	var mu sync.Mutex
	var timer *time.Timer

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				mu.Unlock()
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, w.reload)
			mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("watcher error")
		}
	}
}

// reload keeps the previous defaults when the file no longer parses.
func (w *configWatcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		w.logger.Error().Err(err).Msg("config reload failed, keeping previous form defaults")
		return
	}
	w.apply(cfg.Form.Defaults())
}

// Close stops the watcher.
func (w *configWatcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
