package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/anyhandle"
	"github.com/wippyai/anyhandle/errors"
	"github.com/wippyai/anyhandle/registry"
)

// Record is the struct kind a seed entry can hold.
type Record struct {
	Value int64
}

// SeedConfig is the on-disk description of a registry.
type SeedConfig struct {
	Entries []SeedEntry `yaml:"entries" toml:"entries"`
}

// SeedEntry is one registry entry. Value is parsed according to Kind.
type SeedEntry struct {
	Name  string `yaml:"name" toml:"name"`
	Kind  string `yaml:"kind" toml:"kind"`
	Value string `yaml:"value" toml:"value"`
}

var kinds = []string{"int", "float", "string", "bool", "record", "tags"}

// LoadSeedConfig reads a YAML or TOML seed file, chosen by extension, and
// validates it. Unknown fields are rejected.
func LoadSeedConfig(path string) (SeedConfig, error) {
	var cfg SeedConfig
	if err := loadSeed(path, &cfg); err != nil {
		return SeedConfig{}, err
	}
	if err := ValidateSeedConfig(cfg); err != nil {
		return SeedConfig{}, err
	}
	return cfg, nil
}

func loadSeed(path string, out *SeedConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(out)
	case ".toml":
		var md toml.MetaData
		md, err = toml.Decode(string(data), out)
		if err == nil && len(md.Undecoded()) > 0 {
			err = fmt.Errorf("unknown keys %v", md.Undecoded())
		}
	default:
		return errors.Unsupported(errors.PhaseConfig, "seed file extension "+filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// ValidateSeedConfig checks that every entry has a unique name, a known
// kind and a value that parses as that kind.
func ValidateSeedConfig(cfg SeedConfig) error {
	seen := make(map[string]bool, len(cfg.Entries))
	for i, e := range cfg.Entries {
		path := []string{"entries", strconv.Itoa(i)}
		if strings.TrimSpace(e.Name) == "" {
			return errors.InvalidInput(errors.PhaseConfig, path, "name is required")
		}
		if seen[e.Name] {
			return errors.InvalidInput(errors.PhaseConfig, path, fmt.Sprintf("duplicate name %q", e.Name))
		}
		seen[e.Name] = true
		if _, err := parseValue(e.Kind, e.Value); err != nil {
			return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, e.Name)
		}
	}
	return nil
}

// parseValue converts a seed value into the Go type for kind.
func parseValue(kind, raw string) (any, error) {
	switch kind {
	case "int":
		return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	case "float":
		return strconv.ParseFloat(strings.TrimSpace(raw), 64)
	case "string":
		return raw, nil
	case "bool":
		return strconv.ParseBool(strings.TrimSpace(raw))
	case "record":
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, err
		}
		return Record{Value: v}, nil
	case "tags":
		var tags []string
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		return tags, nil
	default:
		return nil, errors.Unsupported(errors.PhaseConfig, fmt.Sprintf("kind %q (want one of %s)", kind, strings.Join(kinds, ", ")))
	}
}

// Seed inserts every entry of cfg into table. The table only sees erased
// handles; the concrete type comes from the entry's kind.
func Seed(table *registry.Table, cfg SeedConfig) error {
	for _, e := range cfg.Entries {
		v, err := parseValue(e.Kind, e.Value)
		if err != nil {
			return fmt.Errorf("seed %s: %w", e.Name, err)
		}
		h := anyhandle.NewErased(v)
		if _, err := table.InsertNamed(e.Name, h); err != nil {
			h.Release()
			return fmt.Errorf("seed %s: %w", e.Name, err)
		}
	}
	return nil
}

// kindOf maps a held type back to its seed kind.
func kindOf(t reflect.Type) string {
	switch t {
	case reflect.TypeFor[int64]():
		return "int"
	case reflect.TypeFor[float64]():
		return "float"
	case reflect.TypeFor[string]():
		return "string"
	case reflect.TypeFor[bool]():
		return "bool"
	case reflect.TypeFor[Record]():
		return "record"
	case reflect.TypeFor[[]string]():
		return "tags"
	default:
		return ""
	}
}

// defaultSeed is used when no seed file is given.
func defaultSeed() SeedConfig {
	return SeedConfig{Entries: []SeedEntry{
		{Name: "counter", Kind: "record", Value: "12"},
		{Name: "greeting", Kind: "string", Value: "hello"},
		{Name: "retries", Kind: "int", Value: "3"},
		{Name: "ratio", Kind: "float", Value: "0.75"},
		{Name: "enabled", Kind: "bool", Value: "true"},
		{Name: "labels", Kind: "tags", Value: "edge, cache"},
	}}
}
