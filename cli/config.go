package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ytcurate/config"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the settings file",
	}
	cmd.AddCommand(newConfigInitCommand(a), newConfigShowCommand(a))
	return cmd
}

func newConfigInitCommand(a *app) *cobra.Command {
	var xdgDir bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a commented settings template",
		Long: `Write a commented settings template to path, --config, or ./config.env.
An existing file is never overwritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultFile
			switch {
			case len(args) == 1:
				path = args[0]
			case a.configPath != "":
				path = a.configPath
			case xdgDir:
				p, err := config.XDGPath()
				if err != nil {
					return err
				}
				path = p
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&xdgDir, "xdg", false, "Write to $XDG_CONFIG_HOME/ytcurate/config.env")
	return cmd
}

func newConfigShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", s.Path)
			w := tabwriter.NewWriter(out, 0, 0, 1, ' ', 0)
			for _, f := range s.Summary() {
				fmt.Fprintf(w, "%s\t= %s\n", f.Key, f.Value)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			for _, warning := range s.Warnings {
				fmt.Fprintf(out, "warning: %s\n", warning)
			}
			return nil
		},
	}
}
