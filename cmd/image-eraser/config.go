package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app) *cobra.Command {
	var save string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Prints the configuration after defaults, the config file and environment
overrides are applied. Secrets such as GEMINI_API_KEY are never written.`,
		Example: `  # Show the effective settings
  image-eraser config

  # Write them as a starting point for editing
  image-eraser config --save ~/.config/image-eraser/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if save != "" {
				if err := a.config.SaveToFile(save); err != nil {
					return err
				}
				slog.Info("config saved", "path", save)
				return nil
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(a.config)
		},
	}

	cmd.Flags().StringVar(&save, "save", "", "write the configuration to this yaml or json file")

	return cmd
}
