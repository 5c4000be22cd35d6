package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cernvm/litescript/api"
	"github.com/cernvm/litescript/api/v1beta1/configs"
)

// Find returns the configuration file to use for the ruleset at
// rulesetPath. An explicit path always wins. Otherwise the ruleset directory
// and its parents are searched for [configs.ProjectFileNames], and then the
// user configuration file is used if it exists. An empty result means the
// built-in defaults apply.
func Find(explicit, rulesetPath string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if rulesetPath != "" {
		p, err := api.FindConfigFile(rulesetPath, configs.ProjectFileNames)
		if err != nil {
			return "", fmt.Errorf("find project config: %w", err)
		}
		if p != "" {
			return p, nil
		}
	}

	p := configs.GetPath()
	if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
		return p, nil
	}

	return "", nil
}

// Load finds, validates and loads the configuration for rulesetPath.
func Load(explicit, rulesetPath string) (*configs.Config, error) {
	p, err := Find(explicit, rulesetPath)
	if err != nil {
		return nil, err
	}

	if p == "" {
		slog.Debug("no configuration file found, using defaults")

		return configs.New(), nil
	}

	l, err := NewLoaderFromFile(p, configs.New, configs.DefaultValidator)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", p, err)
	}

	err = l.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config %q: %w", p, err)
	}

	cfg, err := l.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", p, err)
	}

	slog.Debug("loaded configuration", slog.String("path", p))

	return cfg, nil
}
