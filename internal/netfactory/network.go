package netfactory

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/vitaly-krugl/htmresearch/internal/datasource"
	"github.com/vitaly-krugl/htmresearch/internal/encoders"
	"github.com/vitaly-krugl/htmresearch/internal/engine"
	"github.com/vitaly-krugl/htmresearch/internal/model"
	"github.com/vitaly-krugl/htmresearch/internal/regions"
)

// Stages holds the handles of an assembled network in topology order.
// Disabled stages are nil.
type Stages struct {
	Sensor     *engine.RegionHandle
	SP         *engine.RegionHandle
	TM         *engine.RegionHandle
	TP         *engine.RegionHandle
	Classifier *engine.RegionHandle
}

// CreateAndConfigureNetwork injects the data source's scalar bounds into
// cfg, builds the network and initializes it.
func CreateAndConfigureNetwork(source datasource.DataSource, cfg *model.NetworkConfig, encoder encoders.Encoder) (*engine.Network, error) {
	specs := cfg.SensorRegionConfig.Encoders
	if isEmpty(specs) && encoder == nil {
		return nil, ErrNoEncoder
	}
	if encoderMap, ok := model.EncoderMapping(specs); ok && !isEmpty(encoderMap[scalarEncoderKey]) {
		if err := SetScalarEncoderMinMax(cfg, source); err != nil {
			return nil, err
		}
	}

	net, err := CreateNetwork(source, cfg, encoder)
	if err != nil {
		return nil, err
	}
	if err := net.Initialize(); err != nil {
		return nil, err
	}
	return net, nil
}

// CreateNetwork builds sensor, enabled intermediate regions and classifier
// in fixed order, validating widths at each join. The network is not
// initialized.
func CreateNetwork(source datasource.DataSource, cfg *model.NetworkConfig, encoder encoders.Encoder) (*engine.Network, error) {
	net := engine.NewNetwork()

	sensorCfg := cfg.SensorRegionConfig
	sensor, err := CreateSensorRegion(net, sensorCfg, source, encoder, "")
	if err != nil {
		return nil, err
	}
	sensorName := sensorCfg.RegionName
	encoderWidth := sensor.Encoder().Width()

	previousName := sensorName
	previousWidth := encoderWidth

	if cfg.SPRegionConfig.Enabled() {
		regionCfg := withParam(cfg.SPRegionConfig, regions.InputWidthParam, encoderWidth)
		handle, err := CreateRegion(net, regionCfg, "")
		if err != nil {
			return nil, err
		}
		sp, ok := handle.GetSelf().(interface {
			regions.InputWidther
			regions.Columnar
		})
		if !ok {
			return nil, capabilityError(handle, "inputWidth and columnCount")
		}
		if err := ValidateRegionWidths(previousWidth, sp.InputWidth()); err != nil {
			return nil, err
		}
		if err := LinkRegions(net, sensorName, previousName, handle.Name()); err != nil {
			return nil, err
		}
		previousName = handle.Name()
		previousWidth = sp.ColumnCount()
	}

	if cfg.TMRegionConfig.Enabled() {
		columnCount, err := paramOrDefault(cfg.TMRegionConfig, regions.ColumnCountParam)
		if err != nil {
			return nil, err
		}
		regionCfg := withParam(cfg.TMRegionConfig, regions.InputWidthParam, columnCount)
		handle, err := CreateRegion(net, regionCfg, "")
		if err != nil {
			return nil, err
		}
		if err := handle.SetParameter("computePredictedActiveCellIndices", true); err != nil {
			return nil, err
		}
		if err := handle.SetParameter("anomalyMode", true); err != nil {
			return nil, err
		}
		tm, ok := handle.GetSelf().(regions.Cellular)
		if !ok {
			return nil, capabilityError(handle, "columnCount and cellsPerColumn")
		}
		if err := ValidateRegionWidths(previousWidth, tm.ColumnCount()); err != nil {
			return nil, err
		}
		if err := LinkRegions(net, sensorName, previousName, handle.Name()); err != nil {
			return nil, err
		}
		previousName = handle.Name()
		previousWidth = tm.ColumnCount() * tm.CellsPerColumn()
	}

	if cfg.TPRegionConfig.Enabled() {
		regionCfg := withParam(cfg.TPRegionConfig, regions.InputWidthParam, previousWidth)
		handle, err := CreateRegion(net, regionCfg, regions.TemporalPoolerModule)
		if err != nil {
			return nil, err
		}
		tp, ok := handle.GetSelf().(regions.InputWidther)
		if !ok {
			return nil, capabilityError(handle, "inputWidth")
		}
		if err := ValidateRegionWidths(previousWidth, tp.InputWidth()); err != nil {
			return nil, err
		}
		if err := LinkRegions(net, sensorName, previousName, handle.Name()); err != nil {
			return nil, err
		}
		previousName = handle.Name()
	}

	classifier, err := CreateRegion(net, cfg.ClassifierRegionConfig, "")
	if err != nil {
		return nil, err
	}
	if err := net.Link(previousName, classifier.Name(), engine.UniformLink, "", "", ""); err != nil {
		return nil, err
	}
	if err := net.Link(sensorName, classifier.Name(), engine.UniformLink, "", regions.CategoryOut, regions.CategoryIn); err != nil {
		return nil, err
	}
	if classifier.Spec().HasInput(regions.PartitionIn) {
		if err := net.Link(sensorName, classifier.Name(), engine.UniformLink, "", regions.SequenceIDOut, regions.PartitionIn); err != nil {
			return nil, err
		}
	}
	return net, nil
}

// SetRegionLearning sets learningMode on every enabled non-sensor region and
// returns the stage handles. The sensor has no learning phase and is left
// untouched.
func SetRegionLearning(net *engine.Network, cfg *model.NetworkConfig, learningMode bool) (Stages, error) {
	var stages Stages
	var err error

	if stages.Sensor, err = lookup(net, cfg.SensorRegionConfig.RegionName); err != nil {
		return Stages{}, err
	}
	optional := []struct {
		cfg    model.RegionConfig
		handle **engine.RegionHandle
	}{
		{cfg.SPRegionConfig, &stages.SP},
		{cfg.TMRegionConfig, &stages.TM},
		{cfg.TPRegionConfig, &stages.TP},
	}
	for _, stage := range optional {
		if !stage.cfg.Enabled() {
			continue
		}
		handle, err := lookup(net, stage.cfg.RegionName)
		if err != nil {
			return Stages{}, err
		}
		if err := handle.SetParameter(regions.LearningModeParam, learningMode); err != nil {
			return Stages{}, err
		}
		*stage.handle = handle
	}
	if stages.Classifier, err = lookup(net, cfg.ClassifierRegionConfig.RegionName); err != nil {
		return Stages{}, err
	}
	if err := stages.Classifier.SetParameter(regions.LearningModeParam, learningMode); err != nil {
		return Stages{}, err
	}

	if learningMode {
		log.Info("Learning is ENABLED.")
	} else {
		log.Info("Learning is DISABLED.")
	}
	return stages, nil
}

func lookup(net *engine.Network, name string) (*engine.RegionHandle, error) {
	handle, ok := net.Region(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrRegionNotFound, name)
	}
	return handle, nil
}

// withParam returns cfg with name set in a copy of its parameters, leaving
// the caller's configuration unchanged.
func withParam(cfg model.RegionConfig, name string, value any) model.RegionConfig {
	params := make(map[string]any, len(cfg.RegionParams)+1)
	for k, v := range cfg.RegionParams {
		params[k] = v
	}
	params[name] = value
	cfg.RegionParams = params
	return cfg
}

// paramOrDefault reads a parameter from cfg, falling back to the default
// the region type declares for it.
func paramOrDefault(cfg model.RegionConfig, name string) (any, error) {
	if v, ok := cfg.RegionParams[name]; ok {
		return v, nil
	}
	typeName, err := registerRegionType(cfg.RegionType, cfg.RegionModule)
	if err != nil {
		return nil, err
	}
	typeSpec, err := engine.ResolveRegionType(typeName)
	if err != nil {
		return nil, err
	}
	paramSpec, ok := typeSpec.Spec.Parameters[name]
	if !ok || paramSpec.DefaultValue == nil {
		return nil, fmt.Errorf("region %s: %w: %s has no value or default", cfg.RegionName, engine.ErrUnknownParameter, name)
	}
	return paramSpec.DefaultValue, nil
}

func capabilityError(handle *engine.RegionHandle, what string) error {
	return fmt.Errorf("%w: %s (%s) does not report %s", ErrRegionCapability, handle.Name(), handle.Type(), what)
}
