package tray

import (
	"fmt"
	"os/exec"
	"runtime"
)

// BrowserOpener opens URLs with the platform's default handler
type BrowserOpener struct{}

// Open implements URLOpener
func (BrowserOpener) Open(url string) error {
	cmd, err := openCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	// The opener exits as soon as it handed the URL over
	go func() { _ = cmd.Wait() }()
	return nil
}

func openCommand(goos, url string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.Command("open", url), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", url), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	default:
		return nil, fmt.Errorf("unsupported OS for opening URLs: %s", goos)
	}
}
