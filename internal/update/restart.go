package update

import (
	"fmt"
	"os"
	"os/exec"
)

// Relaunch starts executable with the current arguments and exits the current process.
func Relaunch(executable string) error {
	cmd := exec.Command(executable, os.Args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", executable, err)
	}

	os.Exit(0)
	return nil
}
