//go:build !windows

package cli

import (
	"os"
	"syscall"
)

var triggerSignals = []os.Signal{syscall.SIGUSR1}
