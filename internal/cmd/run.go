package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/adamancini/deskshell/internal/config"
	"github.com/adamancini/deskshell/internal/coordinator"
	"github.com/adamancini/deskshell/internal/history"
	"github.com/adamancini/deskshell/internal/types"
	"github.com/adamancini/deskshell/internal/update"
	"github.com/adamancini/deskshell/internal/window"
)

type runOptions struct {
	checkOnStart bool
	noBrowser    bool
	noTray       bool
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	var ro runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the desktop shell",
		Long: `Run opens the application window, installs the native menu and starts
the update coordinator. The shell keeps running until it is quit from the
menu, interrupted, or (except on macOS) its window is closed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("check-on-start") {
				cfg.Update.CheckOnStart = ro.checkOnStart
			}
			return runShell(cmd, cfg, appVersion(cfg, opts.build), ro)
		},
	}

	cmd.Flags().BoolVar(&ro.checkOnStart, "check-on-start", false, "Check for updates as soon as the window opens")
	cmd.Flags().BoolVar(&ro.noBrowser, "no-browser", false, "Print the window URL instead of opening a browser")
	cmd.Flags().BoolVar(&ro.noTray, "no-tray", false, "Do not show the menu in the system tray")

	return cmd
}

func runShell(cmd *cobra.Command, cfg *config.Config, version string, ro runOptions) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	exe, err := executablePath()
	if err != nil {
		return err
	}

	hist, rec := openHistory(cfg.App.Name)
	updaterOpts := []update.AutoUpdaterOption{}
	if rec != nil {
		if result, err := hist.Prune(history.DefaultKeepCount); err != nil {
			log.Debugf("prune update history: %v", err)
		} else if len(result.Deleted) > 0 {
			log.Debugf("pruned %d update history entries", len(result.Deleted))
		}
		updaterOpts = append(updaterOpts, update.WithRestarter(func(exe string) error {
			rec.Installed()
			return update.Relaunch(exe)
		}))
	}

	updater := update.NewAutoUpdater(cfg.App.Name, exe, newChecker(cfg, version), updaterOpts...)
	if rec != nil {
		updater.Subscribe(rec)
	}
	go updater.Run(ctx)

	bridgeOpts := []window.BridgeOption{}
	if ro.noBrowser {
		bridgeOpts = append(bridgeOpts, window.WithOpener(window.PrintURL(func(format string, args ...any) {
			fmt.Fprintf(cmd.OutOrStdout(), format, args...)
		})))
	}
	bridge := window.NewBridge(window.BridgeConfig{
		ListenAddr: cfg.Window.Listen,
		StaticDir:  cfg.Window.StaticDir,
		DevURL:     cfg.Window.DevURL,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		MinWidth:   cfg.Window.MinWidth,
		MinHeight:  cfg.Window.MinHeight,
	}, bridgeOpts...)
	if err := bridge.Start(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := bridge.Shutdown(shutdownCtx); err != nil {
			log.Debugf("ui server shutdown: %v", err)
		}
	}()

	family := types.CurrentPlatformFamily()
	var manager *window.Manager
	var tray *window.Tray
	managerOpts := []window.Option{window.WithQuit(cancel)}
	if family.IsDarwin() && !ro.noTray {
		tray = window.NewTray(cfg.App.Name, func() {
			if _, err := manager.Activate(); err != nil {
				log.Errorf("activate: %v", err)
			}
		})
		managerOpts = append(managerOpts, window.WithMenuInstaller(tray))
	}

	manager = window.NewManager(bridge, window.MenuFacts{
		Family:     family,
		AppName:    cfg.App.Name,
		AppVersion: version,
	}, managerOpts...)

	coord := coordinator.New(updater, manager)
	manager.SetUpdateHandlers(coord.RequestCheck, coord.TriggerInstall)

	if _, err := manager.Create(); err != nil {
		return err
	}
	if cfg.Update.CheckOnStart {
		coord.RequestCheck()
	}

	if tray != nil {
		go func() {
			<-ctx.Done()
			tray.Quit()
		}()
		tray.Run(cancel)
	} else {
		<-ctx.Done()
	}

	log.Info("shutting down")
	return nil
}
