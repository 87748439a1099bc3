// Package tray is the host shell around the supervisor: a system tray entry
// on desktop builds, a plain wait loop in headless mode. It opens the
// published URL in the default browser and turns Quit into a shutdown.
package tray

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"runicorn-desktop/internal/state"
)

const appTitle = "Runicorn Viewer"

// Backend is the part of the supervisor the shell needs
type Backend interface {
	BaseURL() string
	PublishedURL() (string, bool)
	State() state.State
	Subscribe() <-chan state.Transition
	Err() error
}

// URLOpener shows a URL to the user
type URLOpener interface {
	Open(url string) error
}

// Notifier shows a desktop notification
type Notifier interface {
	Notify(title, message string) error
}

// Options controls the shell behaviour
type Options struct {
	Headless      bool
	OpenBrowser   bool
	Notifications bool
}

// App is the host shell
type App struct {
	backend     Backend
	transitions <-chan state.Transition
	opts        Options
	logger      *zap.SugaredLogger
	shutdown    func()

	opener   URLOpener
	notifier Notifier

	// backendUp closes on the first ready or degraded transition; the tray
	// entry is not shown before that
	backendUp chan struct{}
	upOnce    sync.Once

	mu        sync.Mutex
	opened    bool
	setStatus func(text string)
}

// New creates the shell and subscribes to backend transitions right away,
// so it must be called before the supervisor is started.
func New(backend Backend, opts Options, logger *zap.SugaredLogger, shutdown func()) *App {
	a := &App{
		backend:     backend,
		transitions: backend.Subscribe(),
		opts:        opts,
		logger:      logger,
		shutdown:    shutdown,
		opener:      BrowserOpener{},
		notifier:    NewDesktopNotifier(logger),
		backendUp:   make(chan struct{}),
	}
	if !opts.Notifications {
		a.notifier = LogNotifier{logger: logger}
	}
	return a
}

// SetOpener replaces the browser opener
func (a *App) SetOpener(o URLOpener) {
	a.opener = o
}

// SetNotifier replaces the desktop notifier
func (a *App) SetNotifier(n Notifier) {
	a.notifier = n
}

// watch applies transitions until the backend reaches its terminal state or
// ctx is cancelled
func (a *App) watch(ctx context.Context) {
	for {
		select {
		case tr, ok := <-a.transitions:
			if !ok {
				return
			}
			a.onTransition(tr)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) onTransition(tr state.Transition) {
	info := state.GetInfo(tr.To)
	a.updateStatus(info.UserMessage)

	switch tr.To {
	case state.StateReady:
		a.markBackendUp()
		a.openViewerOnce()

	case state.StateDegraded:
		a.markBackendUp()
		a.notify(info.UserMessage)
		a.openViewerOnce()

	case state.StateFailed:
		a.logger.Errorw("Backend failed to start", "error", a.backend.Err())
		a.notify(info.UserMessage)
		a.requestShutdown()
	}
}

func (a *App) markBackendUp() {
	a.upOnce.Do(func() { close(a.backendUp) })
}

// openViewerOnce opens the published URL the first time one is available
func (a *App) openViewerOnce() {
	a.mu.Lock()
	if a.opened || !a.opts.OpenBrowser || a.opts.Headless {
		a.mu.Unlock()
		return
	}
	a.opened = true
	a.mu.Unlock()

	a.OpenViewer()
}

// OpenViewer opens the backend URL in the browser. Before anything is
// published it opens the default URL, like the UI query does.
func (a *App) OpenViewer() {
	url := a.backend.BaseURL()
	a.logger.Infow("Opening viewer", "url", url)
	if err := a.opener.Open(url); err != nil {
		a.logger.Warnw("Failed to open browser", "url", url, "error", err)
	}
}

func (a *App) notify(message string) {
	if err := a.notifier.Notify(appTitle, message); err != nil {
		a.logger.Debugw("Desktop notification failed", "error", err)
	}
}

func (a *App) updateStatus(text string) {
	a.mu.Lock()
	setStatus := a.setStatus
	a.mu.Unlock()

	if setStatus != nil {
		setStatus(text)
	}
	a.logger.Debugw("Status updated", "status", text)
}

func (a *App) requestShutdown() {
	if a.shutdown != nil {
		a.shutdown()
	}
}

// runHeadless blocks until ctx is cancelled
func (a *App) runHeadless(ctx context.Context) error {
	a.logger.Info("Running without tray (headless)")
	a.watch(ctx)
	<-ctx.Done()
	return ctx.Err()
}
