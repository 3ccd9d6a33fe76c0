package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamancini/deskshell/internal/coordinator"
	"github.com/adamancini/deskshell/internal/interactive"
	"github.com/adamancini/deskshell/internal/types"
	"github.com/adamancini/deskshell/internal/update"
)

var (
	errCheckFailed   = errors.New("update check failed")
	errUpdateAborted = errors.New("update aborted")
)

type versionReport struct {
	App      string `json:"app" yaml:"app"`
	Version  string `json:"version" yaml:"version"`
	Commit   string `json:"commit" yaml:"commit"`
	Date     string `json:"date" yaml:"date"`
	Platform string `json:"platform" yaml:"platform"`
}

func (r versionReport) String() string {
	return fmt.Sprintf("%s version %s (commit %s, built %s, %s)", r.App, r.Version, r.Commit, r.Date, r.Platform)
}

func newVersionCmd(opts *globalOptions) *cobra.Command {
	var checkOnly, doUpdate, assumeYes bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information and check for updates",
		Long: `Display the current version and optionally check for or install updates.

Examples:
  deskshell version              # Show current version
  deskshell version --check      # Check if an update is available
  deskshell version --update     # Download and install the latest version
  deskshell version --update -y  # Install without asking`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case doUpdate:
				return runVersionUpdate(cmd, opts, assumeYes)
			case checkOnly:
				return runVersionCheck(cmd, opts)
			default:
				return runVersion(cmd, opts)
			}
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Check for updates without installing")
	cmd.Flags().BoolVar(&doUpdate, "update", false, "Update to the latest version")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Install a downloaded update without asking")
	cmd.MarkFlagsMutuallyExclusive("check", "update")

	return cmd
}

func runVersion(cmd *cobra.Command, opts *globalOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	out, err := newWriter(cmd.OutOrStdout(), opts)
	if err != nil {
		return err
	}

	return out.Write(versionReport{
		App:      cfg.App.Name,
		Version:  appVersion(cfg, opts.build),
		Commit:   opts.build.Commit,
		Date:     opts.build.Date,
		Platform: update.Detect().String(),
	})
}

// runVersionCheck reports availability on the console without downloading.
func runVersionCheck(cmd *cobra.Command, opts *globalOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	out, err := newWriter(cmd.OutOrStdout(), opts)
	if err != nil {
		return err
	}

	probe := update.NewProbe(cmd.Context(), newChecker(cfg, appVersion(cfg, opts.build)))
	coord := coordinator.New(probe, consoleSink{out: out})
	coord.RequestCheck()

	if coord.Phase() == types.PhaseErrored {
		return errCheckFailed
	}
	return nil
}

// runVersionUpdate runs the full update pipeline on the console. The new
// binary is installed in place but not relaunched. On a terminal the install
// is confirmed first unless assumeYes is set.
func runVersionUpdate(cmd *cobra.Command, opts *globalOptions, assumeYes bool) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	out, err := newWriter(cmd.OutOrStdout(), opts)
	if err != nil {
		return err
	}
	exe, err := executablePath()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancelCause(cmd.Context())
	defer cancel(nil)

	_, rec := openHistory(cfg.App.Name)
	settled := newSettleListener()
	updater := update.NewAutoUpdater(cfg.App.Name, exe, newChecker(cfg, appVersion(cfg, opts.build)),
		update.WithRestarter(func(string) error {
			if rec != nil {
				rec.Installed()
			}
			settled.finish(nil)
			return nil
		}))

	prompter := interactive.NewPrompterWithIO(cmd.InOrStdin(), cmd.ErrOrStderr())
	if assumeYes || !interactive.IsTerminal() {
		prompter.AssumeYes()
	}
	checker := confirmingChecker{
		AutoUpdater: updater,
		confirm: func(info *update.UpdateInfo) interactive.Response {
			return prompter.ConfirmInstall(cfg.App.Name, info.CurrentVersion, info.LatestVersion)
		},
		declined: func() { settled.finish(nil) },
		aborted:  func() { cancel(errUpdateAborted) },
	}

	coord := coordinator.New(checker, consoleSink{out: out})
	if rec != nil {
		updater.Subscribe(rec)
	}
	updater.Subscribe(settled)
	go updater.Run(ctx)

	coord.RequestCheck()

	select {
	case err := <-settled.done:
		if err != nil {
			return errCheckFailed
		}
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// confirmingChecker asks before handing a staged update to the installer.
type confirmingChecker struct {
	*update.AutoUpdater
	confirm  func(info *update.UpdateInfo) interactive.Response
	declined func()
	aborted  func()
}

func (c confirmingChecker) QuitAndInstall() {
	info, ok := c.Staged()
	if !ok {
		c.AutoUpdater.QuitAndInstall()
		return
	}
	switch c.confirm(info) {
	case interactive.ResponseYes:
		c.AutoUpdater.QuitAndInstall()
	case interactive.ResponseQuit:
		c.aborted()
	default:
		c.declined()
	}
}

// settleListener reports the end of an update run: no update, an error, or
// a finished install.
type settleListener struct {
	done chan error
}

func newSettleListener() *settleListener {
	return &settleListener{done: make(chan error, 1)}
}

func (s *settleListener) finish(err error) {
	select {
	case s.done <- err:
	default:
	}
}

func (s *settleListener) OnCheckingForUpdate()                    {}
func (s *settleListener) OnUpdateAvailable(*update.UpdateInfo)    {}
func (s *settleListener) OnUpdateNotAvailable(*update.UpdateInfo) { s.finish(nil) }
func (s *settleListener) OnDownloadProgress(update.ProgressInfo)  {}
func (s *settleListener) OnUpdateDownloaded(*update.UpdateInfo)   {}
func (s *settleListener) OnError(err error)                       { s.finish(err) }
