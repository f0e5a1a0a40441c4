//go:build !windows

package consoleqt

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

func init() {
	// Qt must run on the main OS thread.
	runtime.LockOSThread()

	// Qt on macOS installs handlers without SA_ONSTACK; keep SIGURG away
	// from them.
	if runtime.GOOS == "darwin" {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGURG)
		go func() {
			for range sigCh {
			}
		}()
	}
}
