package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds defaults for n2kcat's flags, loaded from a YAML file with
// -config so a boat's transport and filter settings don't need to be retyped
// on every invocation. Flags explicitly set on the command line still win.
type Config struct {
	Transport            string   `yaml:"transport,omitempty"`
	Device               string   `yaml:"device,omitempty"`
	Baud                 int      `yaml:"baud,omitempty"`
	OutputFormat         string   `yaml:"output_format,omitempty"`
	Filter               []uint32 `yaml:"filter,omitempty"`
	CSVFields            string   `yaml:"csv_fields,omitempty"`
	DisableAddressMapper bool     `yaml:"disable_address_mapper,omitempty"`
	ReadOnly             bool     `yaml:"read_only,omitempty"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("n2kcat: read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("n2kcat: parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("n2kcat: invalid config file: %w", err)
	}
	return &cfg, nil
}

// Validate rejects config values that would otherwise fail later with a
// less useful error from deep inside transport setup.
func (c *Config) Validate() error {
	switch c.Transport {
	case "", "actisense", "socketcan", "replay":
	default:
		return fmt.Errorf("transport must be actisense, socketcan, or replay, got %q", c.Transport)
	}
	switch c.OutputFormat {
	case "", "json", "canboat", "hex", "base64":
	default:
		return fmt.Errorf("output_format must be json, canboat, hex, or base64, got %q", c.OutputFormat)
	}
	if c.Baud < 0 {
		return fmt.Errorf("baud must be >= 0")
	}
	return nil
}

// FilterString renders Filter back into the comma separated form the
// -filter flag expects, so a config-file filter list can feed the same
// parsePGNList path a command line flag would.
func (c *Config) FilterString() string {
	if len(c.Filter) == 0 {
		return ""
	}
	parts := make([]string, len(c.Filter))
	for i, pgn := range c.Filter {
		parts[i] = fmt.Sprintf("%d", pgn)
	}
	return strings.Join(parts, ",")
}

// applyConfigDefaults fills flag variables from cfg wherever the matching
// flag was left at its command-line default, i.e. the user didn't pass it
// explicitly. flag.Visit only reports flags actually set on the command
// line, so anything it doesn't mention is fair game for the config file.
func applyConfigDefaults(cfg *Config, strs map[string]*string, ints map[string]*int, bools map[string]*bool) {
	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	setStr := func(name string, value string) {
		if value == "" || explicit[name] {
			return
		}
		*strs[name] = value
	}
	setStr("transport", cfg.Transport)
	setStr("device", cfg.Device)
	setStr("filter", cfg.FilterString())
	setStr("csv-fields", cfg.CSVFields)
	setStr("output-format", cfg.OutputFormat)

	if cfg.Baud != 0 && !explicit["baud"] {
		*ints["baud"] = cfg.Baud
	}
	if cfg.DisableAddressMapper && !explicit["dam"] {
		*bools["dam"] = true
	}
	if cfg.ReadOnly && !explicit["read-only"] {
		*bools["read-only"] = true
	}
}
