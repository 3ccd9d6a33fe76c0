package cmd

import (
	"github.com/spf13/cobra"

	"github.com/adamancini/deskshell/internal/logging"
	"github.com/adamancini/deskshell/internal/output"
)

// buildInfo is stamped into the binary at release time.
type buildInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
}

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	build        buildInfo
	outputFormat string
	configPath   string
	logLevel     string
	logFile      string
}

func (o *globalOptions) format() (output.Format, error) {
	return output.ParseFormat(o.outputFormat)
}

func Execute(version, commit, date string) error {
	return newRootCmd(buildInfo{Version: version, Commit: commit, Date: date}).Execute()
}

func newRootCmd(build buildInfo) *cobra.Command {
	opts := &globalOptions{build: build}

	rootCmd := &cobra.Command{
		Use:   "deskshell",
		Short: "Desktop shell for a web UI with built-in auto-update",
		Long: `deskshell opens a single window hosting a web UI, installs the native menu
and keeps the application up to date from its GitHub releases.

Run the shell with deskshell run.`,
		Version:      build.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.format(); err != nil {
				return err
			}
			return logging.InitLog(opts.logLevel, opts.logFile)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.outputFormat, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&opts.logFile, "log-file", logging.Console, "Log file path, or console for stderr")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newVersionCmd(opts))
	rootCmd.AddCommand(newMenuCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newCompletionCmd())

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"trace", "debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd
}
