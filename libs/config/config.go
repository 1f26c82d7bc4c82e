package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// PathEnv names the variable pointing at an optional YAML config file.
const PathEnv = "CONFIG_PATH"

// Load fills cfg from the YAML file at path (when non-empty) and then from the environment.
// Struct tags follow cleanenv: `env`, `env-default`, `env-required`, `yaml`.
func Load(path string, cfg any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return fmt.Errorf("read env config: %w", err)
		}
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file %q: %w", path, err)
	}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}
	return nil
}

// MustLoad is Load with CONFIG_PATH, panicking on error. Intended for main packages.
func MustLoad(cfg any) {
	if err := Load(os.Getenv(PathEnv), cfg); err != nil {
		panic(err)
	}
}

// ValidatePort reports whether v is a usable TCP port. name is only used in the message.
func ValidatePort(name, v string) error {
	p, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("%s must be a valid TCP port (got %q)", name, v)
	}
	return nil
}

// SplitList turns a comma separated value into trimmed, non-empty items.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
