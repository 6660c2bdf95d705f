package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jontk/permd/internal/config"
)

// configCmd represents the config command group
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long: `Manage permd configuration files and settings.

Configuration files are searched in the following order:
1. ./config.yaml
2. ~/.permd/config.yaml
3. /etc/permd/config.yaml
4. Environment variables (PERMD_*)`,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective permd configuration after merging the
configuration file, environment variables and defaults.`,
	RunE: runConfigShow,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long:  `Write a configuration file populated with the documented defaults.`,
	RunE:  runConfigInit,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Validate the permd configuration for syntax and logical errors.

This command checks:
• YAML syntax validity
• Octal permission syntax
• Interval and settle-window durations
• Watch directory existence`,
	RunE: runConfigValidate,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("rendering config: %w", err)
	}
	fmt.Print(string(data))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration already exists at %s", path)
	}

	if _, err := config.LoadWithPath(path); err != nil {
		return err
	}
	fmt.Printf("Created default configuration at: %s\n", path)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	result := cfg.Validate()
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s: %s (%s)\n", w.Field, w.Message, w.Impact)
	}
	for _, e := range result.Errors {
		fmt.Printf("error: %s: %s\n       %s\n", e.Field, e.Message, e.Suggestion)
	}
	if !result.Valid {
		return fmt.Errorf("configuration is invalid")
	}

	fmt.Println("Configuration is valid")
	return nil
}
