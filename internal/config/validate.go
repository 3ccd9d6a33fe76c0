package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/adamancini/deskshell/internal/update"
)

// appNamePattern keeps app names usable in release asset file names.
var appNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the config for required fields and valid values.
func Validate(c *Config) error {
	var errs []string
	for _, err := range validateApp(c.App) {
		errs = append(errs, err.Error())
	}
	for _, err := range validateWindow(c.Window) {
		errs = append(errs, err.Error())
	}
	for _, err := range validateUpdate(c.Update) {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateApp(a AppConfig) []error {
	var errs []error
	if a.Name == "" {
		errs = append(errs, ValidationError{Field: "app.name", Message: "name is required"})
	} else if !appNamePattern.MatchString(a.Name) {
		errs = append(errs, ValidationError{
			Field:   "app.name",
			Message: fmt.Sprintf("invalid name '%s' (letters, digits, '.', '_' and '-' only)", a.Name),
		})
	}
	if a.Version != "" {
		if _, err := update.ParseVersion(a.Version); err != nil {
			errs = append(errs, ValidationError{Field: "app.version", Message: err.Error()})
		}
	}
	return errs
}

func validateWindow(w WindowConfig) []error {
	var errs []error

	if w.Width <= 0 || w.Height <= 0 {
		errs = append(errs, ValidationError{
			Field:   "window",
			Message: fmt.Sprintf("size %dx%d must be positive", w.Width, w.Height),
		})
	}
	if w.MinWidth < 0 || w.MinHeight < 0 {
		errs = append(errs, ValidationError{Field: "window", Message: "minimum size cannot be negative"})
	}
	if w.MinWidth > w.Width || w.MinHeight > w.Height {
		errs = append(errs, ValidationError{
			Field:   "window",
			Message: fmt.Sprintf("minimum size %dx%d exceeds size %dx%d", w.MinWidth, w.MinHeight, w.Width, w.Height),
		})
	}

	if err := validateListen(w.Listen); err != nil {
		errs = append(errs, err)
	}

	if w.DevURL != "" {
		if err := validateHTTPURL("window.dev_url", w.DevURL); err != nil {
			errs = append(errs, err)
		}
	}

	if w.StaticDir != "" {
		if info, err := os.Stat(w.StaticDir); err != nil || !info.IsDir() {
			errs = append(errs, ValidationError{
				Field:   "window.static_dir",
				Message: fmt.Sprintf("'%s' is not a directory", w.StaticDir),
			})
		}
	}

	return errs
}

func validateListen(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return ValidationError{Field: "window.listen", Message: fmt.Sprintf("invalid address '%s'", addr)}
	}
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
		return ValidationError{Field: "window.listen", Message: fmt.Sprintf("'%s' is not a loopback address", host)}
	}
	return nil
}

func validateUpdate(u UpdateConfig) []error {
	var errs []error
	if u.Owner == "" {
		errs = append(errs, ValidationError{Field: "update.owner", Message: "owner is required"})
	}
	if u.Repo == "" {
		errs = append(errs, ValidationError{Field: "update.repo", Message: "repo is required"})
	}
	if u.BaseURL != "" {
		if err := validateHTTPURL("update.base_url", u.BaseURL); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ValidationError{Field: field, Message: fmt.Sprintf("invalid URL '%s' (must be http or https)", raw)}
	}
	return nil
}
