// Command skriptls is a language server and command line checker for Skript
// scripts.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akhenakh/skriptls/internal/config"
	"github.com/akhenakh/skriptls/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// exitError carries a process exit status without a message.
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

var rootCmd = &cobra.Command{
	Use:           "skriptls",
	Short:         "Skript language server",
	Long:          "skriptls serves Skript diagnostics, completions and highlighting over LSP and checks scripts from the command line.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.Version = version

	addConfigFlags(rootCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(completionsCmd)
	rootCmd.AddCommand(highlightCmd)

	if err := rootCmd.Execute(); err != nil {
		var code exitError
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		fmt.Fprintln(os.Stderr, "skriptls:", err)
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "path to the TOML configuration (default $XDG_CONFIG_HOME/skriptls/config.toml)")
	flags.String("parse-url", "", "parse service endpoint")
	flags.String("catalog-url", "", "syntax catalog endpoint")
	flags.String("log-level", "", "log level (debug|info|warn|error)")
	flags.String("log-file", "", "write logs to this file instead of stderr")
}

// loadConfig resolves the configuration: defaults, then the file, then the
// environment, then command line flags.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	required := path != ""
	if path == "" {
		if p, err := config.DefaultPath(); err == nil {
			path = p
		}
	}

	cfg, err := config.Load(path, required)
	if err != nil {
		return config.Config{}, "", err
	}
	if _, err := os.Stat(path); err != nil {
		path = ""
	}

	applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, "", err
	}
	return cfg, path, nil
}

// applyFlags overwrites cfg with the flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	for name, dst := range map[string]*string{
		"parse-url":   &cfg.Parse.URL,
		"catalog-url": &cfg.Catalog.URL,
		"log-level":   &cfg.Log.Level,
		"log-file":    &cfg.Log.File,
	} {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
}

func newLogger(cfg config.Config) (*zap.Logger, func(), error) {
	return logging.New(cfg.Log.Level, cfg.Log.File)
}
