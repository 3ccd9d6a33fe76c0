package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/adamancini/deskshell/internal/config"
	"github.com/adamancini/deskshell/internal/output"
	"github.com/adamancini/deskshell/internal/update"
)

// loadConfig resolves the config file, falling back to defaults.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	cfg, path, err := config.Resolve(opts.configPath)
	if err != nil {
		return nil, err
	}
	if path == "" {
		log.Debug("no config file found, using defaults")
	} else {
		log.Debugf("loaded config from %s", path)
	}
	return cfg, nil
}

// appVersion returns the configured version override or the build version.
func appVersion(cfg *config.Config, build buildInfo) string {
	if cfg.App.Version != "" {
		return cfg.App.Version
	}
	return build.Version
}

func newChecker(cfg *config.Config, version string) *update.GitHubChecker {
	return update.NewGitHubChecker(cfg.App.Name, version, cfg.Update.Owner, cfg.Update.Repo).
		WithToken(cfg.Update.Token).
		WithBaseURL(cfg.Update.BaseURL)
}

// executablePath returns the running binary with symlinks resolved.
func executablePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get current binary path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve binary path: %w", err)
	}
	return exe, nil
}

func newWriter(w io.Writer, opts *globalOptions) (*output.Writer, error) {
	format, err := opts.format()
	if err != nil {
		return nil, err
	}
	return output.NewWriter(w, format), nil
}

// consoleSink prints update statuses as an output stream.
type consoleSink struct {
	out *output.Writer
}

func (s consoleSink) SendStatus(text string) {
	if err := s.out.Status(text); err != nil {
		log.Debugf("write status: %v", err)
	}
}
