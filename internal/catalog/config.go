package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var ErrUnsupportedFormat = errors.New("unsupported catalog format")

// Config declares the operators, selectors and variant graph of one run.
type Config struct {
	Seed              int64            `json:"seed" yaml:"seed" toml:"seed"`
	StandardHierarchy *bool            `json:"standard_hierarchy,omitempty" yaml:"standard_hierarchy,omitempty" toml:"standard_hierarchy,omitempty"`
	Hierarchy         []VariantConfig  `json:"hierarchy" yaml:"hierarchy" toml:"hierarchy"`
	Operators         []OperatorConfig `json:"operators" yaml:"operators" toml:"operators"`
	Selectors         []SelectorConfig `json:"selectors" yaml:"selectors" toml:"selectors"`
}

type VariantConfig struct {
	Variant string   `json:"variant" yaml:"variant" toml:"variant"`
	Parents []string `json:"parents" yaml:"parents" toml:"parents"`
}

// OperatorConfig declares one operator. Predicate is one of "" or "none"
// (derive from target), "exact" (exact target variant) or "any_of" (AnyOf).
type OperatorConfig struct {
	Name      string   `json:"name" yaml:"name" toml:"name"`
	Kind      string   `json:"kind" yaml:"kind" toml:"kind"`
	Target    string   `json:"target" yaml:"target" toml:"target"`
	Predicate string   `json:"predicate" yaml:"predicate" toml:"predicate"`
	AnyOf     []string `json:"any_of" yaml:"any_of" toml:"any_of"`
}

type SelectorConfig struct {
	Variant  string `json:"variant" yaml:"variant" toml:"variant"`
	Kind     string `json:"kind" yaml:"kind" toml:"kind"`
	Strategy string `json:"strategy" yaml:"strategy" toml:"strategy"`
}

// UsesStandardHierarchy defaults to true when the field is absent.
func (c Config) UsesStandardHierarchy() bool {
	return c.StandardHierarchy == nil || *c.StandardHierarchy
}

// Load reads a catalog from path, picking the decoder by file extension.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return Config{}, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses data in the format named by ext (.yaml, .yml, .toml, .json).
func Decode(data []byte, ext string) (Config, error) {
	var cfg Config
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	case "toml":
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("unknown catalog keys: %v", undecoded)
		}
	case "json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return cfg, nil
}
