package window

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
)

// OpenBrowser shows url in the user's default browser.
func OpenBrowser(url string) error {
	log.Debugf("opening %s", url)
	if err := open.Run(url); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	return nil
}

// PrintURL returns an opener that only logs the window URL, for headless use.
func PrintURL(printf func(format string, args ...any)) func(url string) error {
	return func(url string) error {
		printf("open %s to show the window\n", url)
		return nil
	}
}
