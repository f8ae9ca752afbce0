// Package config loads service and solver settings from an optional YAML
// file, with environment variables taking precedence.
package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"
)

type Config struct {
	Listen      string `yaml:"listen"`
	DatabaseURL string `yaml:"databaseUrl"`
	RedisURL    string `yaml:"redisUrl"`

	Inputs struct {
		Map        string `yaml:"map"`
		Sensors    string `yaml:"sensors"`
		Objectives string `yaml:"objectives"`
	} `yaml:"inputs"`

	Output string `yaml:"output"`

	Webhooks struct {
		MaxAttempts int `yaml:"maxAttempts"`
	} `yaml:"webhooks"`

	RateLimit struct {
		SolvesPerMinute int `yaml:"solvesPerMinute"`
		Burst           int `yaml:"burst"`
	} `yaml:"rateLimit"`
}

// Default returns the built-in settings used when no file or env is present.
func Default() Config {
	var c Config
	c.Listen = ":8080"
	c.Inputs.Map = "map2/public_map_2.json"
	c.Inputs.Sensors = "map2/sensor_data_2.json"
	c.Inputs.Objectives = "map2/objectives_2.json"
	c.Output = "solution.json"
	c.Webhooks.MaxAttempts = 10
	c.RateLimit.SolvesPerMinute = 30
	c.RateLimit.Burst = 5
	return c
}

// Load reads path when non-empty (or $FLEETNAV_CONFIG), layers it over the
// defaults, then applies env overrides.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		path = os.Getenv("FLEETNAV_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	c.applyEnv()
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Listen = ":" + v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("MAP_FILE"); v != "" {
		c.Inputs.Map = v
	}
	if v := os.Getenv("SENSOR_FILE"); v != "" {
		c.Inputs.Sensors = v
	}
	if v := os.Getenv("OBJECTIVES_FILE"); v != "" {
		c.Inputs.Objectives = v
	}
	if v := os.Getenv("SOLUTION_FILE"); v != "" {
		c.Output = v
	}
}
