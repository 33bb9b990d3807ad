package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// LoadFile reads an ini file and exports its keys as environment variables.
// Variables already present in the environment win over the file.
func LoadFile(path string) error {
	values, err := parseIniConfig(path)
	if err != nil {
		return err
	}
	return applyConfigMap(values)
}

func parseIniConfig(path string) (map[string]string, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("parse ini config %s: %w", path, err)
	}

	values := make(map[string]string)
	for _, section := range cfg.Sections() {
		prefix := ""
		if name := section.Name(); name != ini.DefaultSection {
			prefix = strings.ToUpper(strings.TrimSpace(name)) + "_"
		}
		for _, key := range section.Keys() {
			configKey := strings.ToUpper(strings.TrimSpace(key.Name()))
			if configKey == "" {
				continue
			}
			values[prefix+configKey] = strings.TrimSpace(key.Value())
		}
	}
	return values, nil
}

func applyConfigMap(values map[string]string) error {
	for key, value := range values {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}
