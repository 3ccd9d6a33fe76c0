package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/adamancini/deskshell/internal/cmd"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// The system tray event loop must own the main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	if err := cmd.Execute(version, commit, date); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
