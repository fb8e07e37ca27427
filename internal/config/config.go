package config

import (
	"encoding/json"
	"os"
)

// Config carries the optional knobs of the calculator plugin. The zero-ish
// default runs the invoker with no history database and no event log, which
// is what the fz framework expects from a plain calculator script.
type Config struct {
	ExtraBackends []string `json:"extra_backends"`
	HistoryDB     string   `json:"history_db"`
	EventLog      string   `json:"event_log"`
	PluginRoot    string   `json:"plugin_root"`
}

func Default() Config {
	return Config{
		PluginRoot: ".fz",
	}
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := json.Unmarshal(content, &cfg); err != nil {
		return cfg, err
	}

	if cfg.PluginRoot == "" {
		cfg.PluginRoot = ".fz"
	}

	return cfg, nil
}
