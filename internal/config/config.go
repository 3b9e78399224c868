// Package config loads the retention configuration: a TOML document
// mapping a section key (a filesystem path, or the reserved key _default)
// to a resolved retention.Policy plus per-section flags.
package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/stormont-systems/shadowcopy-go/internal/filter"
	"github.com/stormont-systems/shadowcopy-go/internal/retention"
)

// ConfigurationError reports a malformed configuration document or an
// unrecognized value for a recognized key. It is always surfaced before
// any storage mutation takes place.
type ConfigurationError struct {
	Section string
	Key     string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("configuration: section %q: %s", e.Section, e.Reason)
	}
	return fmt.Sprintf("configuration: section %q key %q: %s", e.Section, e.Key, e.Reason)
}

// DefaultSection is the reserved section key supplying fallbacks for any
// filesystem not explicitly listed.
const DefaultSection = "_default"

// Configuration is the fully resolved, typed configuration document.
type Configuration struct {
	Sections map[string]retention.Policy
}

// Resolve returns the policy for path, falling back to the _default
// section. Load guarantees _default always exists.
func (c *Configuration) Resolve(path string) retention.Policy {
	if p, ok := c.Sections[path]; ok {
		return p
	}
	return c.Sections[DefaultSection]
}

// rawSection mirrors the recognized configuration keys before
// interpretation. Values are decoded as strings regardless of how they
// were written in the document (int, bool, or string) via mapstructure's
// weakly-typed-input mode, matching this codebase's established pattern
// for hydrating hand-maintained external maps.
type rawSection struct {
	All       string `mapstructure:"all"`
	Hourly    string `mapstructure:"hourly"`
	Daily     string `mapstructure:"daily"`
	Weekly    string `mapstructure:"weekly"`
	Monthly   string `mapstructure:"monthly"`
	Yearly    string `mapstructure:"yearly"`
	Recursive *bool  `mapstructure:"recursive"`
	Ignore    *bool  `mapstructure:"ignore"`
}

// decodeSection is a generic weakly-typed decode helper, the same shape
// this codebase already uses to hydrate metadata maps into typed structs.
func decodeSection[T any](raw map[string]any) (*T, error) {
	var result T

	cfg := &mapstructure.DecoderConfig{
		Result:           &result,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}
	return &result, nil
}

// keyFilters lists the recognized filter keys in the fixed order they are
// always evaluated, regardless of how they appear in the source document.
// This fixed order is what makes the resulting policy's canonicalized form
// independent of key order in the input (Invariant 3).
var keyFilters = []struct {
	key    string
	value  func(rawSection) string
	filter func() filter.Filter
}{
	{"all", func(r rawSection) string { return r.All }, func() filter.Filter { return filter.Passthrough{} }},
	{"hourly", func(r rawSection) string { return r.Hourly }, func() filter.Filter { return filter.NewHourly() }},
	{"daily", func(r rawSection) string { return r.Daily }, func() filter.Filter { return filter.NewDaily() }},
	{"weekly", func(r rawSection) string { return r.Weekly }, func() filter.Filter { return filter.NewWeekly() }},
	{"monthly", func(r rawSection) string { return r.Monthly }, func() filter.Filter { return filter.NewMonthly() }},
	{"yearly", func(r rawSection) string { return r.Yearly }, func() filter.Filter { return filter.NewYearly() }},
}

// buildPolicy interprets a raw section's filter keys into a canonicalized
// Policy. A value is one of: a non-negative integer number of days, the
// literal "unlimited" (-> Unbounded), or "0"/"disabled" (the entry is
// omitted entirely).
func buildPolicy(sectionName string, raw rawSection) (retention.Policy, error) {
	var entries []retention.Entry

	for _, kf := range keyFilters {
		value := kf.value(raw)
		if value == "" {
			continue
		}
		switch value {
		case "0", "disabled":
			continue
		case "unlimited":
			entries = append(entries, retention.Entry{Filter: kf.filter(), Cutoff: retention.Unbounded})
		default:
			days, err := parseDays(value)
			if err != nil {
				return retention.Policy{}, &ConfigurationError{Section: sectionName, Key: kf.key, Reason: err.Error()}
			}
			entries = append(entries, retention.Entry{Filter: kf.filter(), Cutoff: retention.Days(days)})
		}
	}

	recursive := true
	if raw.Recursive != nil {
		recursive = *raw.Recursive
	}
	ignore := false
	if raw.Ignore != nil {
		ignore = *raw.Ignore
	}

	return retention.Policy{Entries: entries, Recursive: recursive, Ignore: ignore}.Canonicalize(), nil
}

func parseDays(value string) (int, error) {
	var days int
	if _, err := fmt.Sscanf(value, "%d", &days); err != nil {
		return 0, fmt.Errorf("value %q is not a non-negative integer number of days, \"unlimited\", \"0\", or \"disabled\"", value)
	}
	if days < 0 {
		return 0, fmt.Errorf("value %q must not be negative", value)
	}
	return days, nil
}

// Load reads and parses the configuration document at path. The file is
// read as raw bytes because the underlying TOML decoder is
// binary-oriented, not line-oriented. If the document has no _default
// section, the built-in default policy is injected.
func Load(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("cannot read configuration file: %v", err)}
	}
	return parse(data)
}

func parse(data []byte) (*Configuration, error) {
	var document map[string]map[string]any
	if err := toml.Unmarshal(data, &document); err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("cannot parse configuration: %v", err)}
	}

	sections := make(map[string]retention.Policy)
	for _, key := range sortedKeys(document) {
		raw, err := decodeSection[rawSection](document[key])
		if err != nil {
			return nil, &ConfigurationError{Section: key, Reason: err.Error()}
		}
		policy, err := buildPolicy(key, *raw)
		if err != nil {
			return nil, err
		}
		sections[key] = policy
	}

	if _, ok := sections[DefaultSection]; !ok {
		sections[DefaultSection] = Default()
	}

	return &Configuration{Sections: sections}, nil
}

// Default returns the built-in default section: the canonical retention
// policy plus recursive=true, ignore=false.
func Default() retention.Policy {
	return retention.Default()
}

func sortedKeys(m map[string]map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
