package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// GetByPath retrieves a config value by dot-notation path using the YAML
// key names (e.g. "telegram.webhook.path").
func GetByPath(cfg *Config, path string) (any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	var current any = m
	for _, key := range strings.Split(path, ".") {
		v, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot traverse into %T at %s", current, key)
		}
		current, ok = v[key]
		if !ok {
			return nil, fmt.Errorf("key not found: %s", path)
		}
	}
	return current, nil
}

// Sanitize returns a copy of the config with sensitive values masked.
// Secret Manager references are not secrets and stay readable.
func Sanitize(cfg *Config) *Config {
	c := *cfg
	for _, v := range secretFields(&c) {
		if *v != "" && !IsSecretRef(*v) {
			*v = maskString(*v)
		}
	}
	return &c
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
