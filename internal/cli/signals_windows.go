//go:build windows

package cli

import "os"

// No user signals on Windows; use 'trackeco sync' instead
var triggerSignals []os.Signal
