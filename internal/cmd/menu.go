package cmd

import (
	"github.com/spf13/cobra"

	"github.com/adamancini/deskshell/internal/types"
	"github.com/adamancini/deskshell/internal/window"
)

func newMenuCmd(opts *globalOptions) *cobra.Command {
	var platform string

	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Show the native menu built for a platform",
		Long: `Menu prints the menu model the shell installs on the given platform family
(darwin, windows, linux or other). Defaults to the current platform.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			family := types.CurrentPlatformFamily()
			if platform != "" {
				parsed, err := types.ParsePlatformFamily(platform)
				if err != nil {
					return err
				}
				family = parsed
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			out, err := newWriter(cmd.OutOrStdout(), opts)
			if err != nil {
				return err
			}

			menu := window.BuildMenu(window.MenuFacts{
				Family:     family,
				AppName:    cfg.App.Name,
				AppVersion: appVersion(cfg, opts.build),
			}, window.MenuActions{})
			return out.Write(menu)
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "Platform family: darwin, windows, linux, other")
	_ = cmd.RegisterFlagCompletionFunc("platform", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var names []string
		for _, f := range types.AllPlatformFamilies() {
			names = append(names, f.String())
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
