package main

import (
	"github.com/sirilvk/exl-loader/cmd/exl-loader/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(v)
			if err != nil {
				return err
			}
			effective := cfg.Redacted()
			effective.Redis = effective.Redis.WithDefaults()

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(effective)
		},
	}
}
