package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/adamancini/deskshell/internal/history"
)

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var prune int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded update outcomes",
		Long: `History lists the update checks, downloads, installs and errors recorded
by deskshell run and deskshell version --update, newest first.

Examples:
  deskshell history              # List recorded outcomes
  deskshell history --prune 10   # Keep only the 10 most recent`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			out, err := newWriter(cmd.OutOrStdout(), opts)
			if err != nil {
				return err
			}
			m, err := history.NewManager(cfg.App.Name)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("prune") {
				result, err := m.Prune(prune)
				if err != nil {
					return err
				}
				return out.Write(result)
			}

			entries, err := m.List()
			if err != nil {
				return err
			}
			return out.Write(entries)
		},
	}

	cmd.Flags().IntVar(&prune, "prune", history.DefaultKeepCount, "Delete all but the N most recent entries")

	return cmd
}

// openHistory returns a recorder for app, or nil when the history
// directory cannot be determined.
func openHistory(app string) (*history.Manager, *history.Recorder) {
	m, err := history.NewManager(app)
	if err != nil {
		log.Warnf("update history disabled: %v", err)
		return nil, nil
	}
	return m, history.NewRecorder(m)
}
