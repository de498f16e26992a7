package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/dashboard-engine/internal/appconfig"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate dashboard configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a dashboard config file without applying it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read config file")
		}

		var appCfg appconfig.AppConfig
		if err := yaml.Unmarshal(data, &appCfg); err != nil {
			return eris.Wrap(err, "parse config file")
		}

		if err := appCfg.Validate(); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "config is valid")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active config snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := initConfigStore(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(store.Current())
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
