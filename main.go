package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
)

func openBrowser(url string, logger *slog.Logger) {
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}
	if err != nil {
		logger.Warn("failed to open browser", "error", err)
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errRunFailures) {
			os.Exit(1)
		}

		exitOnError(err)
	}
}
