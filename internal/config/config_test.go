package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BrokerDomain != "amazonaws.com" {
		t.Fatalf("BrokerDomain = %q", cfg.BrokerDomain)
	}
	if cfg.DefaultRegion != "us-east-1" {
		t.Fatalf("DefaultRegion = %q", cfg.DefaultRegion)
	}

	timeout, err := cfg.ParsedRequestTimeout()
	if err != nil || timeout != 10*time.Second {
		t.Fatalf("ParsedRequestTimeout = %v, %v", timeout, err)
	}
	grace, err := cfg.ParsedGraceWindow()
	if err != nil || grace != 30*time.Minute {
		t.Fatalf("ParsedGraceWindow = %v, %v", grace, err)
	}

	if cfg.Paths.AccountsDir == "" || cfg.Paths.ActiveSessionFile == "" || cfg.Paths.StatsDB == "" {
		t.Fatalf("default paths incomplete: %+v", cfg.Paths)
	}
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `broker_domain: broker.test
default_region: eu-west-1
request_timeout: 5s
grace_window: 1h
paths:
  accounts_dir: /tmp/accshift-test/accounts
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BrokerDomain != "broker.test" {
		t.Fatalf("BrokerDomain = %q", cfg.BrokerDomain)
	}
	if cfg.DefaultRegion != "eu-west-1" {
		t.Fatalf("DefaultRegion = %q", cfg.DefaultRegion)
	}
	if timeout, _ := cfg.ParsedRequestTimeout(); timeout != 5*time.Second {
		t.Fatalf("timeout = %v", timeout)
	}
	if grace, _ := cfg.ParsedGraceWindow(); grace != time.Hour {
		t.Fatalf("grace = %v", grace)
	}
	if cfg.Paths.AccountsDir != "/tmp/accshift-test/accounts" {
		t.Fatalf("AccountsDir = %q", cfg.Paths.AccountsDir)
	}
	// Unset paths keep their defaults.
	if cfg.Paths.StatsDB == "" {
		t.Fatal("overlay wiped the default stats db path")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ACCSHIFT_BROKER_DOMAIN", "env.test")
	t.Setenv("ACCSHIFT_REGION", "ap-southeast-2")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("broker_domain: file.test\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BrokerDomain != "env.test" {
		t.Fatalf("env override lost: %q", cfg.BrokerDomain)
	}
	if cfg.DefaultRegion != "ap-southeast-2" {
		t.Fatalf("env override lost: %q", cfg.DefaultRegion)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("request_timeout: soon\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unparseable duration")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\n  - not yaml"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for malformed yaml")
	}
}
