package model

import "time"

const (
	SensorRegionKey     = "sensorRegionConfig"
	SPRegionKey         = "spRegionConfig"
	TMRegionKey         = "tmRegionConfig"
	TPRegionKey         = "tpRegionConfig"
	ClassifierRegionKey = "classifierRegionConfig"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// NetworkConfig is the declarative description of a classification network.
// Sensor and classifier are mandatory; the three intermediate regions are
// gated by RegionConfig.Enabled.
type NetworkConfig struct {
	SensorRegionConfig     RegionConfig `json:"sensorRegionConfig" yaml:"sensorRegionConfig"`
	SPRegionConfig         RegionConfig `json:"spRegionConfig" yaml:"spRegionConfig"`
	TMRegionConfig         RegionConfig `json:"tmRegionConfig" yaml:"tmRegionConfig"`
	TPRegionConfig         RegionConfig `json:"tpRegionConfig" yaml:"tpRegionConfig"`
	ClassifierRegionConfig RegionConfig `json:"classifierRegionConfig" yaml:"classifierRegionConfig"`
}

type RegionConfig struct {
	RegionName    string         `json:"regionName" yaml:"regionName"`
	RegionType    string         `json:"regionType" yaml:"regionType"`
	RegionEnabled *bool          `json:"regionEnabled,omitempty" yaml:"regionEnabled,omitempty"`
	RegionParams  map[string]any `json:"regionParams,omitempty" yaml:"regionParams,omitempty"`
	// RegionModule names the module a research region type is loaded from
	// when it is not built in. Empty selects the default module path.
	RegionModule string `json:"regionModule,omitempty" yaml:"regionModule,omitempty"`
	// Encoders is only meaningful on the sensor. It is kept as a decoded value
	// so that a non-mapping encoder section can be rejected at assembly time.
	Encoders any `json:"encoders,omitempty" yaml:"encoders,omitempty"`
}

// Enabled reports whether an optional region should be built. An absent
// flag reads as disabled; sensor and classifier do not consult it.
func (c RegionConfig) Enabled() bool {
	return c.RegionEnabled != nil && *c.RegionEnabled
}

// EncoderMap returns the sensor encoders section as a mapping, or false when
// the section is absent or not a mapping. See EncoderMapping.
func (c RegionConfig) EncoderMap() (map[string]any, bool) {
	return EncoderMapping(c.Encoders)
}

func Enabled(v bool) *bool {
	return &v
}

// Region returns the region config stored under one of the fixed keys.
func (c *NetworkConfig) Region(key string) (*RegionConfig, bool) {
	switch key {
	case SensorRegionKey:
		return &c.SensorRegionConfig, true
	case SPRegionKey:
		return &c.SPRegionConfig, true
	case TMRegionKey:
		return &c.TMRegionConfig, true
	case TPRegionKey:
		return &c.TPRegionConfig, true
	case ClassifierRegionKey:
		return &c.ClassifierRegionConfig, true
	default:
		return nil, false
	}
}

// Clone returns a deep copy; parameter and encoder maps are not shared.
func (c NetworkConfig) Clone() NetworkConfig {
	return NetworkConfig{
		SensorRegionConfig:     c.SensorRegionConfig.clone(),
		SPRegionConfig:         c.SPRegionConfig.clone(),
		TMRegionConfig:         c.TMRegionConfig.clone(),
		TPRegionConfig:         c.TPRegionConfig.clone(),
		ClassifierRegionConfig: c.ClassifierRegionConfig.clone(),
	}
}

func (c RegionConfig) clone() RegionConfig {
	out := c
	if c.RegionEnabled != nil {
		out.RegionEnabled = Enabled(*c.RegionEnabled)
	}
	if c.RegionParams != nil {
		out.RegionParams = cloneMap(c.RegionParams)
	}
	if m, ok := EncoderMapping(c.Encoders); ok {
		out.Encoders = cloneMap(m)
	} else {
		out.Encoders = cloneValue(c.Encoders)
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	default:
		return v
	}
}

// LinkRecord describes one link of an assembled network.
type LinkRecord struct {
	Source    string `json:"source"`
	Dest      string `json:"dest"`
	SrcOutput string `json:"src_output"`
	DestInput string `json:"dest_input"`
}

// RegionRecord describes one region of an assembled network.
type RegionRecord struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	OutputWidth int    `json:"output_width"`
}

// ConfigRecord is a named network configuration kept by a store.
type ConfigRecord struct {
	VersionedRecord
	Name      string        `json:"name"`
	UpdatedAt time.Time     `json:"updated_at"`
	Config    NetworkConfig `json:"config"`
}

// AssemblySummary is the persisted outcome of one network assembly.
type AssemblySummary struct {
	VersionedRecord
	ID           string         `json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	EncoderWidth int            `json:"encoder_width"`
	Regions      []RegionRecord `json:"regions"`
	Links        []LinkRecord   `json:"links"`
	LearningMode bool           `json:"learning_mode"`
	Config       NetworkConfig  `json:"config"`
}

// EncoderSpec holds the parameters of one named encoder in the sensor's
// encoders mapping.
type EncoderSpec struct {
	FieldName    string    `json:"fieldname"`
	Type         string    `json:"type"`
	Name         string    `json:"name,omitempty"`
	MinVal       float64   `json:"minval,omitempty"`
	MaxVal       float64   `json:"maxval,omitempty"`
	W            int       `json:"w,omitempty"`
	N            int       `json:"n,omitempty"`
	Radius       float64   `json:"radius,omitempty"`
	Resolution   float64   `json:"resolution,omitempty"`
	Periodic     bool      `json:"periodic,omitempty"`
	ClipInput    bool      `json:"clipInput,omitempty"`
	CategoryList []string  `json:"categoryList,omitempty"`
	TimeOfDay    []float64 `json:"timeOfDay,omitempty"`
	DayOfWeek    []float64 `json:"dayOfWeek,omitempty"`
	Weekend      int       `json:"weekend,omitempty"`
	Verbosity    int       `json:"verbosity,omitempty"`
}
