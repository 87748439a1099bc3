//go:build !nogui && !headless

package tray

import (
	"context"
	_ "embed"
	"runtime"

	"fyne.io/systray"

	"runicorn-desktop/internal/state"
)

//go:embed icon.png
var iconData []byte

// Run shows the tray entry and blocks until Quit is chosen or ctx is
// cancelled. It must be called from the main goroutine.
func (a *App) Run(ctx context.Context) error {
	if a.opts.Headless {
		return a.runHeadless(ctx)
	}

	a.logger.Info("Starting system tray application")

	go func() {
		<-ctx.Done()
		a.logger.Info("Context cancelled, quitting systray")
		systray.Quit()
	}()

	systray.Run(func() { a.onReady(ctx) }, a.onExit)

	return ctx.Err()
}

// onReady only starts following the backend. The icon and menu appear once
// a URL is published, so a failed start never shows a tray entry.
func (a *App) onReady(ctx context.Context) {
	go a.watch(ctx)

	go func() {
		select {
		case <-a.backendUp:
			a.showMenu(ctx)
		case <-ctx.Done():
		}
	}()
}

func (a *App) showMenu(ctx context.Context) {
	systray.SetTooltip(appTitle)
	if runtime.GOOS == "darwin" {
		systray.SetTemplateIcon(iconData, iconData)
	} else {
		systray.SetIcon(iconData)
	}

	statusItem := systray.AddMenuItem(state.GetInfo(a.backend.State()).UserMessage, "Backend status")
	statusItem.Disable()

	systray.AddSeparator()
	openItem := systray.AddMenuItem("Open Runicorn Viewer", "Open the viewer in your browser")
	systray.AddSeparator()
	quitItem := systray.AddMenuItem("Quit", "Stop the viewer and quit")

	a.mu.Lock()
	a.setStatus = func(text string) {
		statusItem.SetTitle(text)
		systray.SetTooltip(appTitle + " - " + text)
	}
	a.mu.Unlock()

	for {
		select {
		case <-openItem.ClickedCh:
			a.OpenViewer()
		case <-quitItem.ClickedCh:
			a.logger.Info("Quit selected from tray menu")
			a.requestShutdown()
			systray.Quit()
			return
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) onExit() {
	a.logger.Info("System tray exited")
	a.mu.Lock()
	a.setStatus = nil
	a.mu.Unlock()
}
