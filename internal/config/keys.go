package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when the claude backend needs a key and none is configured.
var ErrNoAPIKey = errors.New("no Anthropic API key configured")

// KeySource represents where claude credentials come from.
type KeySource string

const (
	KeySourceEnv     KeySource = "environment"
	KeySourceConfig  KeySource = "config_file"
	KeySourceBedrock KeySource = "aws_bedrock"
	KeySourceNone    KeySource = "none"
)

// GetAPIKey returns the Anthropic API key. The ANTHROPIC_API_KEY environment
// variable wins over the config file. Unexpanded ${VAR} references count as unset.
func GetAPIKey(cfg *Config) (string, error) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key, nil
	}
	if cfg != nil {
		if key := resolved(cfg.Anthropic.APIKey); key != "" {
			return key, nil
		}
	}
	return "", ErrNoAPIKey
}

// GetAPIKeySource returns where claude credentials are sourced from.
// Bedrock uses the AWS credential chain and needs no Anthropic key.
func GetAPIKeySource(cfg *Config) KeySource {
	switch {
	case cfg != nil && cfg.Bedrock.Enabled:
		return KeySourceBedrock
	case os.Getenv("ANTHROPIC_API_KEY") != "":
		return KeySourceEnv
	case cfg != nil && resolved(cfg.Anthropic.APIKey) != "":
		return KeySourceConfig
	default:
		return KeySourceNone
	}
}

// ValidateAPIKey performs basic validation on an Anthropic API key.
func ValidateAPIKey(key string) error {
	if key == "" {
		return ErrNoAPIKey
	}
	if !strings.HasPrefix(key, "sk-ant-") {
		return fmt.Errorf("invalid API key format: expected sk-ant- prefix")
	}
	if len(key) < 20 {
		return fmt.Errorf("invalid API key: too short")
	}
	return nil
}

// MaskAPIKey returns a masked version of the API key for display.
// Shows the first 7 characters (sk-ant-) and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 15 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

func resolved(key string) string {
	key = os.ExpandEnv(key)
	if strings.HasPrefix(key, "${") {
		return ""
	}
	return key
}
