//go:build nogui || headless

package tray

import "context"

// Run blocks until ctx is cancelled; this build has no tray
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Tray functionality disabled (nogui/headless build)")
	return a.runHeadless(ctx)
}
