package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPublishEndpoint  = "tcp://*:31002"
	DefaultDetectorEndpoint = "tcp://localhost:31005"
	defaultPollIntervalMs   = 5
)

// Config enumerates the recognized keys of the server configuration
// document. The four topic names are required; everything else has a
// default or is optional.
type Config struct {
	PublishEndpoint  string `yaml:"publish_endpoint"`
	TopicColoredMask string `yaml:"topic_colored_mask"`
	TopicImageViz    string `yaml:"topic_image_viz"`
	TopicResult      string `yaml:"topic_result"`
	TopicPose        string `yaml:"topic_pose"`
	DetectorEndpoint string `yaml:"detector_endpoint"`
	PollIntervalMs   int    `yaml:"poll_interval_ms"`
	DriverStatusURL  string `yaml:"driver_status_url"`
	DetectionLogDir  string `yaml:"detection_log_dir"`
}

// Load reads and validates the YAML configuration file. A missing or
// unreadable file is an error; the caller treats it as fatal before the
// server loop starts.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	required := []struct {
		key   string
		value string
	}{
		{"topic_colored_mask", cfg.TopicColoredMask},
		{"topic_image_viz", cfg.TopicImageViz},
		{"topic_result", cfg.TopicResult},
		{"topic_pose", cfg.TopicPose},
	}
	for _, item := range required {
		if item.value == "" {
			return Config{}, fmt.Errorf("config %s: missing required key %q", path, item.key)
		}
	}

	if cfg.PublishEndpoint == "" {
		cfg.PublishEndpoint = DefaultPublishEndpoint
	}
	if cfg.DetectorEndpoint == "" {
		cfg.DetectorEndpoint = DefaultDetectorEndpoint
	}
	if cfg.PollIntervalMs < 1 {
		cfg.PollIntervalMs = defaultPollIntervalMs
	}
	return cfg, nil
}

// PollInterval is the bounded sleep between frame-availability checks.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}
