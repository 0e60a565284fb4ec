package teng

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds engine-wide parameters — the "param dictionary" of
// spec.md §3 — plus the cache sizing knobs passed to NewEngine.
// Grounded on the CTAG07/Sarracenia example's config-file load/save
// shape, redirected to Teng's param dictionary, with an additional
// YAML representation per SPEC_FULL.md §2.
type Config struct {
	ShortTagEnabled    bool `yaml:"shortTagEnabled"`
	PrintEscapeEnabled bool `yaml:"printEscapeEnabled"`
	UTF8               bool `yaml:"utf8"`
	ProgramCacheSize   int  `yaml:"programCacheSize"`
	DictCacheSize      int  `yaml:"dictCacheSize"`
	DefaultContentType string            `yaml:"defaultContentType"`
	Params             map[string]string `yaml:"params"`
}

// DefaultConfig returns the engine's out-of-the-box parameter set.
func DefaultConfig() Config {
	return Config{
		ShortTagEnabled:    false,
		PrintEscapeEnabled: true,
		UTF8:               true,
		ProgramCacheSize:   256,
		DictCacheSize:      64,
		DefaultContentType: "text/html",
		Params:             map[string]string{},
	}
}

func (c Config) lexerConfig() LexerConfig {
	return LexerConfig{ShortTagEnabled: c.ShortTagEnabled, PrintEscapeEnabled: c.PrintEscapeEnabled, UTF8: c.UTF8}
}

// LoadConfigYAML reads a YAML-formatted engine configuration.
func LoadConfigYAML(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	return cfg, nil
}

// LoadConfigFile reads Teng's native line-oriented `key value` param
// dictionary format (the same shape as a Dictionary file, without
// #include support), overlaying it onto DefaultConfig.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		switch key {
		case "ShortTagEnabled":
			cfg.ShortTagEnabled = val == "1" || val == "true"
		case "PrintEscapeEnabled":
			cfg.PrintEscapeEnabled = val == "1" || val == "true"
		case "UTF8":
			cfg.UTF8 = val == "1" || val == "true"
		case "ProgramCacheSize":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.ProgramCacheSize = n
			}
		case "DictCacheSize":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.DictCacheSize = n
			}
		case "DefaultContentType":
			cfg.DefaultContentType = val
		default:
			cfg.Params[key] = val
		}
	}
	return cfg, sc.Err()
}
