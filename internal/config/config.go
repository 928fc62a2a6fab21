package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources  Sources  `yaml:"sources"`
	Kafka    Kafka    `yaml:"kafka"`
	Pipeline Pipeline `yaml:"pipeline"`
	Signals  Signals  `yaml:"signals"`
	Anomaly  Anomaly  `yaml:"anomaly"`
	Output   Output   `yaml:"output"`
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`
}

type Sources struct {
	Feeds      []Feed     `yaml:"feeds"`
	SocialFeed SocialFeed `yaml:"social_feed"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type SocialFeed struct {
	Simulated     bool   `yaml:"simulated"`
	PostsPerCycle int    `yaml:"posts_per_cycle"`
	Seed          int64  `yaml:"seed"`
	Source        string `yaml:"source"`
}

type Kafka struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

type Pipeline struct {
	Window            Duration `yaml:"window"`
	CycleInterval     Duration `yaml:"cycle_interval"`
	SentimentInterval Duration `yaml:"sentiment_interval"`
	SentimentBatch    int      `yaml:"sentiment_batch"`
}

type Signals struct {
	MinMentions     int      `yaml:"min_mentions"`
	SentimentCutoff float64  `yaml:"sentiment_cutoff"`
	SentimentWeight float64  `yaml:"sentiment_weight"`
	AnomalyWeight   float64  `yaml:"anomaly_weight"`
	MergeWindow     Duration `yaml:"merge_window"`
	SimulatedWeight float64  `yaml:"simulated_weight"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "24h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Anomaly struct {
	Contamination float64 `yaml:"contamination"`
	MinCorpus     int     `yaml:"min_corpus"`
	Trees         int     `yaml:"trees"`
	SampleSize    int     `yaml:"sample_size"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for sitaware.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "sitaware")
}

// DataDir returns the XDG data directory for sitaware.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "sitaware")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/sitaware/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'sitaware init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Sources: Sources{
			SocialFeed: SocialFeed{
				Simulated:     true,
				PostsPerCycle: 15,
				Source:        "X (Twitter)",
			},
		},
		Kafka: Kafka{
			Brokers: []string{"localhost:9092"},
			Topic:   "raw-records",
			GroupID: "sitaware-ingest",
		},
		Pipeline: Pipeline{
			Window:            Duration(24 * time.Hour),
			CycleInterval:     Duration(5 * time.Minute),
			SentimentInterval: Duration(30 * time.Second),
			SentimentBatch:    32,
		},
		Signals: Signals{
			MinMentions:     10,
			SentimentCutoff: -0.4,
			SentimentWeight: 0.4,
			AnomalyWeight:   0.6,
			MergeWindow:     Duration(6 * time.Hour),
			SimulatedWeight: 1.0,
		},
		Anomaly: Anomaly{
			Contamination: 0.1,
			MinCorpus:     20,
			Trees:         100,
			SampleSize:    256,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Anomaly.Contamination <= 0 || c.Anomaly.Contamination >= 0.5 {
		return fmt.Errorf("anomaly.contamination must be in (0, 0.5), got %v", c.Anomaly.Contamination)
	}
	if c.Signals.SentimentWeight+c.Signals.AnomalyWeight <= 0 {
		return fmt.Errorf("signal weights must sum to a positive value")
	}
	if c.Pipeline.Window <= 0 {
		return fmt.Errorf("pipeline.window must be positive, got %v", c.Pipeline.Window)
	}
	if c.Pipeline.SentimentBatch <= 0 {
		return fmt.Errorf("pipeline.sentiment_batch must be positive, got %d", c.Pipeline.SentimentBatch)
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
