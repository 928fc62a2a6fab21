package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Sources.Feeds) == 0 {
		t.Error("expected feeds to be populated")
	}
	if !cfg.Sources.SocialFeed.Simulated {
		t.Error("expected simulated social feed by default")
	}
	if cfg.Pipeline.Window.Std() != 24*time.Hour {
		t.Errorf("expected 24h window, got %v", cfg.Pipeline.Window.Std())
	}
	if cfg.Signals.MinMentions != 10 {
		t.Errorf("expected min_mentions 10, got %d", cfg.Signals.MinMentions)
	}
	if cfg.Anomaly.Contamination != 0.1 {
		t.Errorf("expected contamination 0.1, got %v", cfg.Anomaly.Contamination)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
pipeline:
  window: 12h
  cycle_interval: 1m
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Pipeline.Window.Std() != 12*time.Hour {
		t.Errorf("expected 12h window, got %v", cfg.Pipeline.Window.Std())
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Pipeline.SentimentBatch != 32 {
		t.Errorf("expected default sentiment_batch 32, got %d", cfg.Pipeline.SentimentBatch)
	}
	if cfg.Signals.SentimentCutoff != -0.4 {
		t.Errorf("expected default sentiment_cutoff -0.4, got %v", cfg.Signals.SentimentCutoff)
	}
}

func TestParseInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"bad contamination", "anomaly:\n  contamination: 0.9\n"},
		{"bad duration", "pipeline:\n  window: soon\n"},
		{"zero batch", "pipeline:\n  sentiment_batch: 0\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parse([]byte(tc.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		t.Error("expected kafka brokers to be populated from file")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}
