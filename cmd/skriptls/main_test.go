package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/akhenakh/skriptls/internal/config"
)

func newTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addConfigFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatal(err)
	}
	return cmd
}

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, k := range []string{config.EnvParseURL, config.EnvCatalogURL, config.EnvLogLevel, config.EnvLogFile} {
		t.Setenv(k, "")
	}
	path := filepath.Join(t.TempDir(), "skriptls.toml")
	if err := os.WriteFile(path, []byte("[parse]\nurl = \"http://file/parse\"\n[log]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, gotPath, err := loadConfig(newTestCommand(t))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Parse.URL != config.DefaultParseURL || gotPath != "" {
		t.Fatalf("defaults: url %q, path %q", cfg.Parse.URL, gotPath)
	}

	cfg, gotPath, err = loadConfig(newTestCommand(t, "--config", path))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Parse.URL != "http://file/parse" || cfg.Log.Level != "debug" || gotPath != path {
		t.Fatalf("file: %+v, path %q", cfg, gotPath)
	}

	t.Setenv(config.EnvParseURL, "http://env/parse")
	cfg, _, err = loadConfig(newTestCommand(t, "--config", path))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Parse.URL != "http://env/parse" {
		t.Fatalf("env: url %q", cfg.Parse.URL)
	}

	cfg, _, err = loadConfig(newTestCommand(t, "--config", path, "--parse-url", "http://flag/parse", "--log-level", "error"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Parse.URL != "http://flag/parse" || cfg.Log.Level != "error" {
		t.Fatalf("flags: %+v", cfg)
	}

	if _, _, err := loadConfig(newTestCommand(t, "--parse-url", "nope")); err == nil {
		t.Fatal("invalid flag value accepted")
	}
	if _, _, err := loadConfig(newTestCommand(t, "--config", filepath.Join(t.TempDir(), "missing.toml"))); err == nil {
		t.Fatal("missing explicit config accepted")
	}
}

func TestReloadKeepsParseURLFlag(t *testing.T) {
	cmd := newTestCommand(t, "--parse-url", "http://flag/parse")
	cfg := config.Default()
	applyFlags(cmd, &cfg)
	live := config.NewLive(cfg.Parse.URL)
	r := newReloader(cmd, live, cfg)

	reloaded := config.Default()
	reloaded.Parse.URL = "http://file/parse"
	changed, err := r.Apply(reloaded)
	if err != nil {
		t.Fatal(err)
	}
	if changed || live.ParseURL() != "http://flag/parse" {
		t.Fatalf("changed %v, parse url %q, want the flag value kept", changed, live.ParseURL())
	}

	r = newReloader(newTestCommand(t), live, config.Default())
	if _, err := r.Apply(reloaded); err != nil {
		t.Fatal(err)
	}
	if live.ParseURL() != "http://file/parse" {
		t.Fatalf("parse url = %q without a flag", live.ParseURL())
	}
}

func TestExitError(t *testing.T) {
	if exitError(1).Error() != "exit status 1" {
		t.Fatal(exitError(1).Error())
	}
}
