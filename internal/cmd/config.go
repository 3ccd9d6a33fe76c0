package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/adamancini/deskshell/internal/config"
	"github.com/adamancini/deskshell/internal/templates"
)

// configReport is the effective configuration with secrets masked.
type configReport struct {
	Path   string         `json:"path" yaml:"path"`
	Config *config.Config `json:"config" yaml:"config"`
}

func (r configReport) String() string {
	var b strings.Builder
	path := r.Path
	if path == "" {
		path = "(defaults)"
	}
	c := r.Config
	fmt.Fprintf(&b, "config: %s\n", path)
	fmt.Fprintf(&b, "app: %s", c.App.Name)
	if c.App.Version != "" {
		fmt.Fprintf(&b, " (version %s)", c.App.Version)
	}
	fmt.Fprintf(&b, "\nwindow: %dx%d (min %dx%d) on %s\n", c.Window.Width, c.Window.Height, c.Window.MinWidth, c.Window.MinHeight, c.Window.Listen)
	switch {
	case c.Window.DevURL != "":
		fmt.Fprintf(&b, "ui: %s\n", c.Window.DevURL)
	case c.Window.StaticDir != "":
		fmt.Fprintf(&b, "ui: %s\n", c.Window.StaticDir)
	default:
		b.WriteString("ui: built-in\n")
	}
	fmt.Fprintf(&b, "releases: %s/%s via %s (check on start: %t)", c.Update.Owner, c.Update.Repo, c.Update.BaseURL, c.Update.CheckOnStart)
	return b.String()
}

func newConfigCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long:  `Config prints the configuration deskshell would run with and the file it came from.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := config.Resolve(opts.configPath)
			if err != nil {
				return err
			}
			if cfg.Update.Token != "" {
				cfg.Update.Token = "********"
			}

			out, err := newWriter(cmd.OutOrStdout(), opts)
			if err != nil {
				return err
			}
			return out.Write(configReport{Path: path, Config: cfg})
		},
	}

	cmd.AddCommand(newConfigInitCmd(opts))
	return cmd
}

type templateList []templates.Template

func (l templateList) String() string {
	lines := make([]string, len(l))
	for i, t := range l {
		lines[i] = fmt.Sprintf("%-10s %s", t.Name, t.Description)
	}
	return strings.Join(lines, "\n")
}

func newConfigInitCmd(opts *globalOptions) *cobra.Command {
	var (
		template string
		force    bool
		list     bool
	)

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter config file",
		Long: `Init writes a starter config file from a built-in template. Without a path
it writes to the --config path, or $XDG_CONFIG_HOME/deskshell/config.yaml.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newWriter(cmd.OutOrStdout(), opts)
			if err != nil {
				return err
			}

			if list {
				var l templateList
				for _, name := range templates.List() {
					tmpl, err := templates.Get(name)
					if err != nil {
						return err
					}
					l = append(l, *tmpl)
				}
				return out.Write(l)
			}

			tmpl, err := templates.Get(template)
			if err != nil {
				return err
			}

			path, err := initPath(args, opts)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			if err := os.WriteFile(path, tmpl.Content, 0644); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			log.WithField("template", tmpl.Name).Debugf("wrote %s", path)

			return out.Status("wrote " + path)
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", templates.Default, "Template to start from")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&list, "list", false, "List available templates")
	_ = cmd.RegisterFlagCompletionFunc("template", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return templates.List(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func initPath(args []string, opts *globalOptions) (string, error) {
	switch {
	case len(args) == 1:
		return args[0], nil
	case opts.configPath != "":
		return opts.configPath, nil
	default:
		return config.DefaultPath()
	}
}
