// Package config loads network configurations from YAML or JSON files,
// fills in the conventional region names and validates the result before
// it reaches the assembler.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/cohesivestack/valgo"
	"gopkg.in/yaml.v3"

	"github.com/vitaly-krugl/htmresearch/internal/model"
)

const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

var (
	ErrInvalidConfig     = errors.New("invalid network config")
	ErrUnsupportedFormat = errors.New("unsupported config format")
)

var regionTypePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*\.[A-Za-z_][A-Za-z0-9_]*$`)

// Load reads a configuration file. The format follows the extension; files
// without a known extension are parsed as YAML, which also accepts JSON.
func Load(path string) (model.NetworkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.NetworkConfig{}, fmt.Errorf("read network config: %w", err)
	}
	cfg, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return model.NetworkConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// Parse decodes data, applies defaults and validates.
func Parse(data []byte, format string) (model.NetworkConfig, error) {
	var cfg model.NetworkConfig
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return model.NetworkConfig{}, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML, "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return model.NetworkConfig{}, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return model.NetworkConfig{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	ApplyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return model.NetworkConfig{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills empty region names and types with the conventional
// ones. Enabled flags and parameters are left as given.
func ApplyDefaults(cfg *model.NetworkConfig) {
	defaults := Default()
	for _, key := range RegionKeys() {
		region, _ := cfg.Region(key)
		fallback, _ := defaults.Region(key)
		if region.RegionName == "" {
			region.RegionName = fallback.RegionName
		}
		if region.RegionType == "" {
			region.RegionType = fallback.RegionType
		}
	}
}

// RegionKeys lists the configuration keys in assembly order.
func RegionKeys() []string {
	return []string{
		model.SensorRegionKey,
		model.SPRegionKey,
		model.TMRegionKey,
		model.TPRegionKey,
		model.ClassifierRegionKey,
	}
}

// Validate checks the regions the assembler will build: sensor, classifier
// and every enabled intermediate region need a name and a "namespace.Type"
// identifier, and names must not collide. Encoder sections are checked at
// assembly time.
func Validate(cfg model.NetworkConfig) error {
	val := valgo.New()
	seen := make(map[string]string)

	for _, key := range RegionKeys() {
		region, _ := cfg.Region(key)
		if !mandatory(key) && !region.Enabled() {
			continue
		}
		name := region.RegionName
		owner, taken := seen[name]
		if !taken {
			seen[name] = key
		}

		val.Is(valgo.String(name, key+".regionName").Not().Blank())
		val.Is(valgo.String(name, key+".regionName").
			Passing(func(string) bool { return !taken }, "{{title}} is already used by "+owner))
		val.Is(valgo.String(region.RegionType, key+".regionType").
			MatchingTo(regionTypePattern, "{{title}} must look like namespace.Type"))
	}

	if !val.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, describeErrors(val))
	}
	return nil
}

// describeErrors lists every failing field with its messages, in field
// order.
func describeErrors(val *valgo.Validation) string {
	errs := val.Errors()
	parts := make([]string, 0, len(errs))
	for _, name := range slices.Sorted(maps.Keys(errs)) {
		parts = append(parts, name+": "+strings.Join(errs[name].Messages(), ", "))
	}
	return strings.Join(parts, "; ")
}

func mandatory(key string) bool {
	return key == model.SensorRegionKey || key == model.ClassifierRegionKey
}

// Default returns the configuration written by WriteDefault: a scalar
// encoder over field y feeding spatial pooler, temporal memory and an SDR
// classifier, with the temporal pooler disabled.
func Default() model.NetworkConfig {
	return model.NetworkConfig{
		SensorRegionConfig: model.RegionConfig{
			RegionName:   "sensor",
			RegionType:   "py.RecordSensor",
			RegionParams: map[string]any{"verbosity": 0},
			Encoders: map[string]any{
				"scalarEncoder": map[string]any{
					"fieldname": "y",
					"type":      "ScalarEncoder",
					"name":      "y",
					"minval":    0.0,
					"maxval":    100.0,
					"w":         21,
					"n":         2048,
				},
			},
		},
		SPRegionConfig: model.RegionConfig{
			RegionName:    "SP",
			RegionType:    "py.SPRegion",
			RegionEnabled: model.Enabled(true),
			RegionParams: map[string]any{
				"spVerbosity":                0,
				"spatialImp":                 "cpp",
				"globalInhibition":           1,
				"columnCount":                2048,
				"numActiveColumnsPerInhArea": 40,
				"seed":                       1956,
				"potentialPct":               0.8,
				"synPermConnected":           0.1,
				"synPermActiveInc":           0.0001,
				"synPermInactiveDec":         0.0005,
				"boostStrength":              0.0,
			},
		},
		TMRegionConfig: model.RegionConfig{
			RegionName:    "TM",
			RegionType:    "py.TMRegion",
			RegionEnabled: model.Enabled(true),
			RegionParams: map[string]any{
				"temporalImp":         "tm_py",
				"columnCount":         2048,
				"cellsPerColumn":      32,
				"seed":                1960,
				"maxNewSynapseCount":  20,
				"initialPermanence":   0.21,
				"permanenceIncrement": 0.1,
				"permanenceDecrement": 0.1,
				"activationThreshold": 13,
				"minThreshold":        10,
			},
		},
		TPRegionConfig: model.RegionConfig{
			RegionName:    "TP",
			RegionType:    "py.TemporalPoolerRegion",
			RegionEnabled: model.Enabled(false),
			RegionParams:  map[string]any{"columnCount": 2048},
		},
		ClassifierRegionConfig: model.RegionConfig{
			RegionName: "classifier",
			RegionType: "py.SDRClassifierRegion",
			RegionParams: map[string]any{
				"steps":          "0",
				"alpha":          0.001,
				"implementation": "py",
			},
		},
	}
}

// WriteDefault writes Default in the given format.
func WriteDefault(w io.Writer, format string) error {
	return Write(w, Default(), format)
}

func Write(w io.Writer, cfg model.NetworkConfig, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
