// Package netfactory assembles classification networks from a declarative
// configuration: sensor, then optional spatial pooler, temporal memory and
// temporal pooler, then classifier. It builds the sensor encoder, creates
// and links the regions, checks widths at every join and toggles learning.
package netfactory

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/charmbracelet/log"

	"github.com/vitaly-krugl/htmresearch/internal/datasource"
	"github.com/vitaly-krugl/htmresearch/internal/encoders"
	"github.com/vitaly-krugl/htmresearch/internal/engine"
	"github.com/vitaly-krugl/htmresearch/internal/model"
	"github.com/vitaly-krugl/htmresearch/internal/regions"
)

const scalarEncoderKey = "scalarEncoder"

var (
	// ErrEncodersNotMapping is the type-mismatch error for an encoders
	// section that is not a mapping.
	ErrEncodersNotMapping = errors.New("encoders specified in incorrect format")
	// ErrNoEncoder is returned when neither an encoders mapping nor an
	// external encoder is available for the sensor.
	ErrNoEncoder = errors.New("no encoder specified; cannot create sensor region")
	// ErrRegionCapability is returned when a region lacks the width accessors
	// its position in the network requires.
	ErrRegionCapability = errors.New("region lacks required capability")
)

// WidthMismatchError reports two adjacent regions whose output and input
// widths disagree.
type WidthMismatchError struct {
	Output int
	Input  int
}

func (e *WidthMismatchError) Error() string {
	return fmt.Sprintf("region widths do not fit. output width = %d, input width = %d", e.Output, e.Input)
}

// SensorRegion is what the assembler needs from the sensor implementation.
type SensorRegion interface {
	engine.Region
	SetEncoder(encoder encoders.Encoder)
	Encoder() encoders.Encoder
	SetDataSource(source datasource.DataSource)
}

// CreateEncoder builds a multi encoder from a mapping of named encoder
// specs. Any map with string keys is a mapping, including
// map[string]model.EncoderSpec.
func CreateEncoder(specs any) (*encoders.MultiEncoder, error) {
	m, ok := model.EncoderMapping(specs)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrEncodersNotMapping, specs)
	}
	encoder := encoders.NewMultiEncoder()
	if err := encoder.AddMultipleEncoders(m); err != nil {
		return nil, err
	}
	return encoder, nil
}

// SetScalarEncoderMinMax overwrites minval and maxval of the sensor's
// scalarEncoder entry with the bounds the data source observed for its
// field. The configuration is updated in place; a typed encoders mapping is
// replaced by the equivalent map[string]any carrying the new bounds.
func SetScalarEncoderMinMax(cfg *model.NetworkConfig, source datasource.DataSource) error {
	encoderMap, ok := cfg.SensorRegionConfig.EncoderMap()
	if !ok {
		return fmt.Errorf("%w: got %T", ErrEncodersNotMapping, cfg.SensorRegionConfig.Encoders)
	}
	scalar, ok := encoderMap[scalarEncoderKey].(map[string]any)
	if !ok {
		return fmt.Errorf("%w: %s is %T", encoders.ErrInvalidSpec, scalarEncoderKey, encoderMap[scalarEncoderKey])
	}
	fieldName, _ := scalar["fieldname"].(string)
	if fieldName == "" {
		return fmt.Errorf("%w: %s has no fieldname", encoders.ErrInvalidSpec, scalarEncoderKey)
	}

	minVal, err := source.FieldMin(fieldName)
	if err != nil {
		return err
	}
	maxVal, err := source.FieldMax(fieldName)
	if err != nil {
		return err
	}
	scalar["minval"] = minVal
	scalar["maxval"] = maxVal
	cfg.SensorRegionConfig.Encoders = encoderMap
	log.Debug("scalar encoder bounds set from data source", "field", fieldName, "minval", minVal, "maxval", maxVal)
	return nil
}

// CreateSensorRegion adds the sensor described by cfg and binds its encoder
// and data source. The encoders mapping in cfg wins; when it is empty the
// external encoder is bound as is. modulePath overrides cfg.RegionModule
// for sensors that are not built in.
func CreateSensorRegion(net *engine.Network, cfg model.RegionConfig, source datasource.DataSource, encoder encoders.Encoder, modulePath string) (SensorRegion, error) {
	bound := encoder
	if !isEmpty(cfg.Encoders) {
		multi, err := CreateEncoder(cfg.Encoders)
		if err != nil {
			return nil, err
		}
		bound = multi
	}
	if bound == nil {
		return nil, ErrNoEncoder
	}

	handle, err := addRegisteredRegion(net, cfg, modulePath)
	if err != nil {
		return nil, err
	}
	sensor, ok := handle.GetSelf().(SensorRegion)
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s) is not a sensor", ErrRegionCapability, handle.Name(), handle.Type())
	}
	sensor.SetEncoder(bound)
	sensor.SetDataSource(source)
	return sensor, nil
}

// CreateRegion adds a processing or classifier region with learning off
// and inference on. Learning is turned on later with SetRegionLearning.
func CreateRegion(net *engine.Network, cfg model.RegionConfig, modulePath string) (*engine.RegionHandle, error) {
	handle, err := addRegisteredRegion(net, cfg, modulePath)
	if err != nil {
		return nil, err
	}
	if err := handle.SetParameter(regions.LearningModeParam, false); err != nil {
		return nil, err
	}
	if err := handle.SetParameter(regions.InferenceModeParam, true); err != nil {
		return nil, err
	}
	return handle, nil
}

// LinkRegions links the previous region's default output to the current
// region and carries the sensor's reset and sequence id into it.
func LinkRegions(net *engine.Network, sensorName, previousName, currentName string) error {
	if err := net.Link(previousName, currentName, engine.UniformLink, "", "", ""); err != nil {
		return err
	}
	if err := net.Link(sensorName, currentName, engine.UniformLink, "", regions.ResetOut, regions.ResetIn); err != nil {
		return err
	}
	return net.Link(sensorName, currentName, engine.UniformLink, "", regions.SequenceIDOut, regions.SequenceIDIn)
}

// ValidateRegionWidths returns a *WidthMismatchError unless the output width
// of one region equals the input width of the next.
func ValidateRegionWidths(previousWidth, currentWidth int) error {
	if previousWidth != currentWidth {
		return &WidthMismatchError{Output: previousWidth, Input: currentWidth}
	}
	return nil
}

// registerRegionType makes the type named by regionType known to networks,
// loading it from its module when it is not built in.
func registerRegionType(regionType, modulePath string) (string, error) {
	_, typeName, err := engine.ParseRegionType(regionType)
	if err != nil {
		return "", err
	}
	if engine.IsBuiltin(typeName) {
		return typeName, nil
	}
	if err := engine.RegisterRegion(typeName, modulePath); err != nil {
		return "", err
	}
	log.Debug("registered research region", "type", typeName, "module", modulePathOrDefault(typeName, modulePath))
	return typeName, nil
}

func addRegisteredRegion(net *engine.Network, cfg model.RegionConfig, modulePath string) (*engine.RegionHandle, error) {
	if modulePath == "" {
		modulePath = cfg.RegionModule
	}
	if _, err := registerRegionType(cfg.RegionType, modulePath); err != nil {
		return nil, err
	}
	params := cfg.RegionParams
	if params == nil {
		params = map[string]any{}
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("region %s params: %w", cfg.RegionName, err)
	}
	handle, err := net.AddRegion(cfg.RegionName, cfg.RegionType, string(payload))
	if err != nil {
		return nil, err
	}
	log.Debug("created region", "name", handle.Name(), "type", handle.Type())
	return handle, nil
}

func modulePathOrDefault(typeName, modulePath string) string {
	if modulePath == "" {
		return engine.DefaultModulePath(typeName)
	}
	return modulePath
}

// isEmpty mirrors a falsy configuration value: nil, or an empty mapping,
// list or string of any type.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.String:
		return rv.Len() == 0
	case reflect.Pointer:
		return rv.IsNil()
	default:
		return false
	}
}
