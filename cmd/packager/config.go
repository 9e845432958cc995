package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML configuration file. Flags override
// file values; credentials come from the environment (optionally via a
// .env file).
type fileConfig struct {
	Store struct {
		Endpoint string `yaml:"endpoint"`
		Region   string `yaml:"region"`
		Insecure bool   `yaml:"insecure"`
	} `yaml:"store"`
	Installer  string `yaml:"installer"`
	Compressor string `yaml:"compressor"`
	LogLevel   string `yaml:"log_level"`
	Cache      string `yaml:"cache"`
	Runtime    struct {
		ProbeExclusions bool   `yaml:"probe_exclusions"`
		ModulesDir      string `yaml:"modules_dir"`
	} `yaml:"runtime"`
}

// loadFileConfig reads path when given, or packager.yaml when present.
func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		if _, err := os.Stat("packager.yaml"); err != nil {
			return cfg, nil
		}
		path = "packager.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
