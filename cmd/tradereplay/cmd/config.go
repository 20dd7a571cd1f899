package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradereplay/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage tradereplay configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  tradereplay config init -o tradereplay.yaml
  tradereplay config validate -f tradereplay.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file with environment overrides applied",
	RunE:  runConfigValidate,
}

var configInitOutput string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "tradereplay.yaml", "output config file path")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  tradereplay replay -f %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	q, _ := cfg.Query()

	name := cfgFile
	if name == "" {
		name = "(defaults)"
	}
	fmt.Printf("✓ Configuration valid: %s\n", name)
	fmt.Printf("  Backend: %s (timeout %s)\n", cfg.Backend.BaseURL, cfg.Backend.Timeout)
	fmt.Printf("  Feed: %s\n", q)
	fmt.Printf("  Speed: %s, repeat BUY: %s\n", cfg.Playback.Speed, cfg.Ledger.RepeatBuy)
	fmt.Printf("  Journal: %s\n", cfg.Journal.Type)
	return nil
}
