package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saqib40/doraemon/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML, secrets masked",
	Long:  `Resolves defaults, doraemon.yaml, the .env file, and the process environment (read under the same variable names the daemons use), then prints the result. Output keys match doraemon.yaml, so it can seed a config file.`,
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadViper(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	out, err := cfg.ExportYAML()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}
