package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Town struct {
		// URL of the town join endpoint. Empty means a local town server is
		// started and joined instead.
		URL              string `yaml:"url"`
		UserName         string `yaml:"user_name"`
		FriendlyName     string `yaml:"friendly_name"`
		IsPubliclyListed bool   `yaml:"is_publicly_listed"`
	} `yaml:"town"`
	Teleport struct {
		CountdownSeconds int `yaml:"countdown_seconds"`
	} `yaml:"teleport"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}
