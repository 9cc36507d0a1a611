package netfactory

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/vitaly-krugl/htmresearch/internal/datasource"
	"github.com/vitaly-krugl/htmresearch/internal/encoders"
	"github.com/vitaly-krugl/htmresearch/internal/engine"
	"github.com/vitaly-krugl/htmresearch/internal/model"
	"github.com/vitaly-krugl/htmresearch/internal/regions"
)

func testSource(t *testing.T) *datasource.MemorySource {
	t.Helper()
	source, err := datasource.NewMemorySource(
		[]datasource.Field{
			{Name: "energy", Type: datasource.FieldTypeFloat},
			{Name: "label", Type: datasource.FieldTypeString, Flag: datasource.FlagCategory},
			{Name: "sequence", Type: datasource.FieldTypeInt, Flag: datasource.FlagSequence},
		},
		[]map[string]any{
			{"energy": -3.0, "label": "0", "sequence": 0},
			{"energy": 12.5, "label": "1", "sequence": 0},
			{"energy": 42.0, "label": "0", "sequence": 1},
		},
	)
	if err != nil {
		t.Fatalf("memory source: %v", err)
	}
	return source
}

func testConfig() *model.NetworkConfig {
	return &model.NetworkConfig{
		SensorRegionConfig: model.RegionConfig{
			RegionName:   "sensor",
			RegionType:   "py.RecordSensor",
			RegionParams: map[string]any{"verbosity": 0},
			Encoders: map[string]any{
				"scalarEncoder": map[string]any{
					"fieldname": "energy",
					"type":      "ScalarEncoder",
					"name":      "energy",
					"minval":    0.0,
					"maxval":    100.0,
					"w":         21,
					"n":         500,
				},
			},
		},
		SPRegionConfig: model.RegionConfig{
			RegionName:    "SP",
			RegionType:    "py.SPRegion",
			RegionEnabled: model.Enabled(true),
			RegionParams:  map[string]any{"columnCount": 2048, "spatialImp": "cpp"},
		},
		TMRegionConfig: model.RegionConfig{
			RegionName:    "TM",
			RegionType:    "py.TMRegion",
			RegionEnabled: model.Enabled(true),
			RegionParams:  map[string]any{"columnCount": 2048, "cellsPerColumn": 8},
		},
		TPRegionConfig: model.RegionConfig{
			RegionName:    "TP",
			RegionType:    "py.TemporalPoolerRegion",
			RegionEnabled: model.Enabled(true),
			RegionParams:  map[string]any{"columnCount": 512},
		},
		ClassifierRegionConfig: model.RegionConfig{
			RegionName:   "classifier",
			RegionType:   "py.SDRClassifierRegion",
			RegionParams: map[string]any{"steps": "0", "alpha": 0.001},
		},
	}
}

func disableOptional(cfg *model.NetworkConfig) {
	cfg.SPRegionConfig.RegionEnabled = model.Enabled(false)
	cfg.TMRegionConfig.RegionEnabled = model.Enabled(false)
	cfg.TPRegionConfig.RegionEnabled = model.Enabled(false)
}

func regionNames(net *engine.Network) []string {
	var names []string
	for _, h := range net.Regions() {
		names = append(names, h.Name())
	}
	return names
}

func hasLink(net *engine.Network, src, srcOutput, dest, destInput string) bool {
	for _, link := range net.Links() {
		if link.Source == src && link.SrcOutput == srcOutput && link.Dest == dest && link.DestInput == destInput {
			return true
		}
	}
	return false
}

const spySensorType = "SpySensor"

var registerSpyOnce sync.Once

// spySensor records every parameter name it is asked about.
type spySensor struct {
	*regions.RecordSensor

	mu      sync.Mutex
	touched []string
}

func (s *spySensor) GetParameter(name string) (any, error) {
	s.mu.Lock()
	s.touched = append(s.touched, name)
	s.mu.Unlock()
	return s.RecordSensor.GetParameter(name)
}

func (s *spySensor) SetParameter(name string, value any) error {
	s.mu.Lock()
	s.touched = append(s.touched, name)
	s.mu.Unlock()
	return s.RecordSensor.SetParameter(name, value)
}

func registerSpySensor() {
	registerSpyOnce.Do(func() {
		engine.MustRegisterBuiltin(engine.RegionTypeSpec{
			Name: spySensorType,
			Spec: regions.RecordSensorSpec(),
			Factory: func(params map[string]any) (engine.Region, error) {
				sensor, err := regions.NewRecordSensor(params)
				if err != nil {
					return nil, err
				}
				return &spySensor{RecordSensor: sensor}, nil
			},
		})
	})
}

const countingClassifierType = "CountingClassifier"

var (
	registerCountingOnce sync.Once
	classifiersCreated   atomic.Int32
)

// registerCountingClassifier registers an SDR classifier type that counts
// how many instances networks create.
func registerCountingClassifier() {
	registerCountingOnce.Do(func() {
		sdr, err := engine.ResolveRegionType(regions.SDRClassifierRegionType)
		if err != nil {
			panic(err)
		}
		engine.MustRegisterBuiltin(engine.RegionTypeSpec{
			Name: countingClassifierType,
			Spec: sdr.Spec,
			Factory: func(params map[string]any) (engine.Region, error) {
				classifiersCreated.Add(1)
				return sdr.Factory(params)
			},
		})
	})
}

func TestScalarBoundInjection(t *testing.T) {
	Convey("Given a configuration with a scalar encoder and a data source", t, func() {
		source := testSource(t)
		cfg := testConfig()

		Convey("When the network is created and configured", func() {
			net, err := CreateAndConfigureNetwork(source, cfg, nil)
			So(err, ShouldBeNil)

			Convey("Then the configuration carries the observed bounds", func() {
				scalar := cfg.SensorRegionConfig.Encoders.(map[string]any)["scalarEncoder"].(map[string]any)
				So(scalar["minval"], ShouldEqual, -3.0)
				So(scalar["maxval"], ShouldEqual, 42.0)
			})

			Convey("Then the assembled encoder uses the observed bounds", func() {
				sensorHandle, ok := net.Region("sensor")
				So(ok, ShouldBeTrue)
				multi, ok := sensorHandle.GetSelf().(SensorRegion).Encoder().(*encoders.MultiEncoder)
				So(ok, ShouldBeTrue)
				sub, ok := multi.Encoder("scalarEncoder")
				So(ok, ShouldBeTrue)
				lo, hi := sub.(encoders.RangeSetter).Range()
				So(lo, ShouldEqual, -3.0)
				So(hi, ShouldEqual, 42.0)
			})

			Convey("Then the network is initialized", func() {
				So(net.Initialized(), ShouldBeTrue)
			})
		})

		Convey("When the bound field is not numeric", func() {
			scalar := cfg.SensorRegionConfig.Encoders.(map[string]any)["scalarEncoder"].(map[string]any)
			scalar["fieldname"] = "label"
			_, err := CreateAndConfigureNetwork(source, cfg, nil)

			Convey("Then the data source error is returned", func() {
				So(errors.Is(err, datasource.ErrFieldNotNumeric), ShouldBeTrue)
			})
		})
	})
}

func TestConstantFieldBounds(t *testing.T) {
	Convey("Given a data source whose scalar field never changes", t, func() {
		source, err := datasource.NewMemorySource(
			[]datasource.Field{{Name: "energy", Type: datasource.FieldTypeFloat}},
			[]map[string]any{{"energy": 3.0}, {"energy": 3.0}},
		)
		So(err, ShouldBeNil)
		cfg := testConfig()

		Convey("When the network is created and configured", func() {
			_, err := CreateAndConfigureNetwork(source, cfg, nil)

			Convey("Then the empty range is rejected as an encoder error", func() {
				So(errors.Is(err, encoders.ErrInvalidSpec), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "needs maxval > minval, got [3, 3]")
			})
		})
	})
}

func TestWidthMismatch(t *testing.T) {
	registerCountingClassifier()

	Convey("Given a configuration whose temporal memory does not fit the spatial pooler", t, func() {
		_ = engine.UnregisterRegion(regions.TemporalPoolerRegionType)
		classifiersCreated.Store(0)
		cfg := testConfig()
		cfg.SPRegionConfig.RegionParams["columnCount"] = 1024
		cfg.ClassifierRegionConfig.RegionType = "py." + countingClassifierType

		Convey("When the network is created", func() {
			net, err := CreateNetwork(testSource(t), cfg, nil)

			Convey("Then a width mismatch carrying both widths is returned", func() {
				So(net, ShouldBeNil)
				var mismatch *WidthMismatchError
				So(errors.As(err, &mismatch), ShouldBeTrue)
				So(mismatch.Output, ShouldEqual, 1024)
				So(mismatch.Input, ShouldEqual, 2048)
				So(err.Error(), ShouldContainSubstring, "output width = 1024, input width = 2048")
			})

			Convey("Then no region past the mismatch was created", func() {
				So(engine.IsRegistered(regions.TemporalPoolerRegionType), ShouldBeFalse)
				So(classifiersCreated.Load(), ShouldEqual, 0)
			})
		})

		Convey("When the widths are made to match", func() {
			cfg.SPRegionConfig.RegionParams["columnCount"] = 2048
			net, err := CreateNetwork(testSource(t), cfg, nil)

			Convey("Then the classifier is created once", func() {
				So(err, ShouldBeNil)
				So(classifiersCreated.Load(), ShouldEqual, 1)
				handle, ok := net.Region("classifier")
				So(ok, ShouldBeTrue)
				So(handle.Type(), ShouldEqual, countingClassifierType)
			})
		})
	})

	Convey("Given a temporal memory fed straight from the sensor", t, func() {
		cfg := testConfig()
		cfg.SPRegionConfig.RegionEnabled = model.Enabled(false)

		Convey("When the column count differs from the encoder width", func() {
			_, err := CreateNetwork(testSource(t), cfg, nil)

			Convey("Then the join is rejected", func() {
				var mismatch *WidthMismatchError
				So(errors.As(err, &mismatch), ShouldBeTrue)
				So(mismatch.Output, ShouldEqual, 500)
				So(mismatch.Input, ShouldEqual, 2048)
			})
		})

		Convey("When the column count equals the encoder width", func() {
			cfg.TMRegionConfig.RegionParams["columnCount"] = 500
			net, err := CreateNetwork(testSource(t), cfg, nil)

			Convey("Then the network is built", func() {
				So(err, ShouldBeNil)
				So(regionNames(net), ShouldResemble, []string{"sensor", "TM", "TP", "classifier"})
			})
		})
	})
}

func TestMinimalNetwork(t *testing.T) {
	Convey("Given a configuration with every optional region disabled", t, func() {
		cfg := testConfig()
		disableOptional(cfg)

		Convey("When the classifier has no partition input", func() {
			net, err := CreateAndConfigureNetwork(testSource(t), cfg, nil)
			So(err, ShouldBeNil)

			Convey("Then only sensor and classifier exist, directly linked", func() {
				So(regionNames(net), ShouldResemble, []string{"sensor", "classifier"})
				So(hasLink(net, "sensor", regions.DataOut, "classifier", regions.BottomUpIn), ShouldBeTrue)
				So(hasLink(net, "sensor", regions.CategoryOut, "classifier", regions.CategoryIn), ShouldBeTrue)
				So(len(net.Links()), ShouldEqual, 2)
			})
		})

		Convey("When the classifier declares a partition input", func() {
			cfg.ClassifierRegionConfig.RegionType = "py.KNNClassifierRegion"
			cfg.ClassifierRegionConfig.RegionParams = map[string]any{"k": 3}
			net, err := CreateAndConfigureNetwork(testSource(t), cfg, nil)
			So(err, ShouldBeNil)

			Convey("Then the sequence id feeds the partition input", func() {
				So(hasLink(net, "sensor", regions.SequenceIDOut, "classifier", regions.PartitionIn), ShouldBeTrue)
				So(len(net.Links()), ShouldEqual, 3)
			})
		})
	})
}

func TestFullTopology(t *testing.T) {
	Convey("Given a fully enabled configuration", t, func() {
		cfg := testConfig()
		net, err := CreateNetwork(testSource(t), cfg, nil)
		So(err, ShouldBeNil)

		Convey("Then regions are created in fixed order and not yet initialized", func() {
			So(regionNames(net), ShouldResemble, []string{"sensor", "SP", "TM", "TP", "classifier"})
			So(net.Initialized(), ShouldBeFalse)
			So(net.Initialize(), ShouldBeNil)
		})

		Convey("Then each stage is linked to the previous one with sensor side channels", func() {
			for _, name := range []string{"SP", "TM", "TP"} {
				So(net.LinksInto(name), ShouldHaveLength, 3)
				So(hasLink(net, "sensor", regions.ResetOut, name, regions.ResetIn), ShouldBeTrue)
				So(hasLink(net, "sensor", regions.SequenceIDOut, name, regions.SequenceIDIn), ShouldBeTrue)
			}
			So(hasLink(net, "sensor", regions.DataOut, "SP", regions.BottomUpIn), ShouldBeTrue)
			So(hasLink(net, "SP", regions.BottomUpOut, "TM", regions.BottomUpIn), ShouldBeTrue)
			So(hasLink(net, "TM", regions.BottomUpOut, "TP", regions.ActiveCells), ShouldBeTrue)
			So(hasLink(net, "TP", regions.MostActiveCells, "classifier", regions.BottomUpIn), ShouldBeTrue)
			So(hasLink(net, "sensor", regions.CategoryOut, "classifier", regions.CategoryIn), ShouldBeTrue)
		})

		Convey("Then widths are injected along the chain", func() {
			sp, _ := net.Region("SP")
			So(sp.GetSelf().(regions.InputWidther).InputWidth(), ShouldEqual, 500)
			tm, _ := net.Region("TM")
			So(tm.GetSelf().(regions.InputWidther).InputWidth(), ShouldEqual, 2048)
			tp, _ := net.Region("TP")
			So(tp.GetSelf().(regions.InputWidther).InputWidth(), ShouldEqual, 2048*8)
		})

		Convey("Then temporal memory tracks predicted cells and anomalies", func() {
			tm, _ := net.Region("TM")
			predicted, err := tm.GetParameter("computePredictedActiveCellIndices")
			So(err, ShouldBeNil)
			So(predicted, ShouldEqual, true)
			anomaly, err := tm.GetParameter("anomalyMode")
			So(err, ShouldBeNil)
			So(anomaly, ShouldEqual, true)
		})

		Convey("Then processing regions start with learning off and inference on", func() {
			for _, name := range []string{"SP", "TM", "TP", "classifier"} {
				h, _ := net.Region(name)
				learning, _ := h.GetParameter(regions.LearningModeParam)
				inference, _ := h.GetParameter(regions.InferenceModeParam)
				So(learning, ShouldEqual, false)
				So(inference, ShouldEqual, true)
			}
		})

		Convey("Then the temporal pooler was registered from its module", func() {
			So(engine.IsRegistered(regions.TemporalPoolerRegionType), ShouldBeTrue)
			So(engine.IsBuiltin(regions.TemporalPoolerRegionType), ShouldBeFalse)
		})

		Convey("Then region parameters in the configuration are left as given", func() {
			_, injected := cfg.SPRegionConfig.RegionParams["inputWidth"]
			So(injected, ShouldBeFalse)
		})
	})

	Convey("Given a temporal pooler directly after the spatial pooler", t, func() {
		cfg := testConfig()
		cfg.TMRegionConfig.RegionEnabled = model.Enabled(false)
		net, err := CreateNetwork(testSource(t), cfg, nil)
		So(err, ShouldBeNil)

		Convey("Then its input width is the spatial pooler column count", func() {
			tp, _ := net.Region("TP")
			So(tp.GetSelf().(regions.InputWidther).InputWidth(), ShouldEqual, 2048)
			So(hasLink(net, "SP", regions.BottomUpOut, "TP", regions.ActiveCells), ShouldBeTrue)
		})
	})

	Convey("Given a temporal memory without a column count", t, func() {
		cfg := testConfig()
		delete(cfg.TMRegionConfig.RegionParams, "columnCount")
		net, err := CreateNetwork(testSource(t), cfg, nil)
		So(err, ShouldBeNil)

		Convey("Then the type default is used for the input width", func() {
			tm, _ := net.Region("TM")
			So(tm.GetSelf().(regions.InputWidther).InputWidth(), ShouldEqual, 2048)
		})
	})
}

func TestSetRegionLearning(t *testing.T) {
	Convey("Given a fully enabled network with an instrumented sensor", t, func() {
		registerSpySensor()
		var buf bytes.Buffer
		previous := log.Default()
		log.SetDefault(log.New(&buf))
		defer log.SetDefault(previous)

		cfg := testConfig()
		cfg.SensorRegionConfig.RegionType = "py." + spySensorType
		net, err := CreateAndConfigureNetwork(testSource(t), cfg, nil)
		So(err, ShouldBeNil)

		Convey("When learning is turned off and then on", func() {
			off, err := SetRegionLearning(net, cfg, false)
			So(err, ShouldBeNil)
			for _, h := range []*engine.RegionHandle{off.SP, off.TM, off.TP, off.Classifier} {
				v, _ := h.GetParameter(regions.LearningModeParam)
				So(v, ShouldEqual, false)
			}
			So(buf.String(), ShouldContainSubstring, "Learning is DISABLED.")

			on, err := SetRegionLearning(net, cfg, true)
			So(err, ShouldBeNil)
			for _, h := range []*engine.RegionHandle{on.SP, on.TM, on.TP, on.Classifier} {
				v, _ := h.GetParameter(regions.LearningModeParam)
				So(v, ShouldEqual, true)
			}
			So(buf.String(), ShouldContainSubstring, "Learning is ENABLED.")

			Convey("Then the sensor is returned but never touched", func() {
				So(on.Sensor, ShouldNotBeNil)
				So(on.Sensor.Name(), ShouldEqual, "sensor")
				spy := on.Sensor.GetSelf().(*spySensor)
				So(spy.touched, ShouldBeEmpty)
			})
		})

		Convey("When optional regions are disabled", func() {
			cfg := testConfig()
			disableOptional(cfg)
			net, err := CreateAndConfigureNetwork(testSource(t), cfg, nil)
			So(err, ShouldBeNil)
			stages, err := SetRegionLearning(net, cfg, true)
			So(err, ShouldBeNil)

			Convey("Then their handles are nil", func() {
				So(stages.SP, ShouldBeNil)
				So(stages.TM, ShouldBeNil)
				So(stages.TP, ShouldBeNil)
				So(stages.Classifier, ShouldNotBeNil)
			})
		})

		Convey("When the configuration names a region the network lacks", func() {
			cfg.ClassifierRegionConfig.RegionName = "ghost"
			_, err := SetRegionLearning(net, cfg, true)

			Convey("Then the lookup fails", func() {
				So(errors.Is(err, engine.ErrRegionNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestExternalEncoder(t *testing.T) {
	Convey("Given an externally built encoder and no encoders mapping", t, func() {
		external, err := encoders.NewScalarEncoder(model.EncoderSpec{FieldName: "energy", W: 21, N: 600, MinVal: -3, MaxVal: 42})
		So(err, ShouldBeNil)
		cfg := testConfig()
		cfg.SensorRegionConfig.Encoders = nil

		Convey("When the network is created and configured", func() {
			net, err := CreateAndConfigureNetwork(testSource(t), cfg, external)
			So(err, ShouldBeNil)

			Convey("Then the sensor is bound to that exact encoder", func() {
				h, _ := net.Region("sensor")
				So(h.GetSelf().(SensorRegion).Encoder(), ShouldPointTo, external)
				sp, _ := net.Region("SP")
				So(sp.GetSelf().(regions.InputWidther).InputWidth(), ShouldEqual, 600)
			})
		})
	})
}

func TestConfigurationErrors(t *testing.T) {
	Convey("Given a configuration", t, func() {
		cfg := testConfig()
		source := testSource(t)

		Convey("When the encoders section is not a mapping", func() {
			cfg.SensorRegionConfig.Encoders = []any{"scalarEncoder"}
			_, err := CreateNetwork(source, cfg, nil)

			Convey("Then a type mismatch is returned", func() {
				So(errors.Is(err, ErrEncodersNotMapping), ShouldBeTrue)
			})
		})

		Convey("When there is neither an encoders mapping nor an encoder", func() {
			cfg.SensorRegionConfig.Encoders = map[string]any{}
			_, err := CreateAndConfigureNetwork(source, cfg, nil)

			Convey("Then ErrNoEncoder is returned", func() {
				So(errors.Is(err, ErrNoEncoder), ShouldBeTrue)
			})
		})

		Convey("When an encoder spec is malformed", func() {
			cfg.SensorRegionConfig.Encoders = map[string]any{
				"scalarEncoder": map[string]any{"fieldname": "energy", "type": "ScalarEncoder", "w": 4, "n": 100},
			}
			_, err := CreateAndConfigureNetwork(source, cfg, nil)

			Convey("Then the encoder library error propagates", func() {
				So(errors.Is(err, encoders.ErrInvalidSpec), ShouldBeTrue)
			})
		})

		Convey("When a region type is unknown", func() {
			cfg.SPRegionConfig.RegionType = "py.NoSuchRegion"
			_, err := CreateNetwork(source, cfg, nil)

			Convey("Then the registry error propagates", func() {
				So(errors.Is(err, engine.ErrModuleNotFound), ShouldBeTrue)
			})
		})

		Convey("When a region parameter is unknown", func() {
			cfg.SPRegionConfig.RegionParams["bogus"] = 1
			_, err := CreateNetwork(source, cfg, nil)

			Convey("Then the framework error propagates", func() {
				So(errors.Is(err, engine.ErrUnknownParameter), ShouldBeTrue)
			})
		})

		Convey("When a region type identifier has no namespace", func() {
			cfg.ClassifierRegionConfig.RegionType = "SDRClassifierRegion"
			_, err := CreateNetwork(source, cfg, nil)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, engine.ErrInvalidRegionType), ShouldBeTrue)
			})
		})
	})
}

func TestTypedEncoderMappings(t *testing.T) {
	Convey("Given an encoders section held in a typed map", t, func() {
		cfg := testConfig()
		disableOptional(cfg)

		Convey("When it maps names to plain spec mappings", func() {
			cfg.SensorRegionConfig.Encoders = map[string]map[string]any{
				"scalarEncoder": {"fieldname": "energy", "type": "ScalarEncoder", "w": 21, "n": 500, "minval": 0.0, "maxval": 1.0},
			}
			net, err := CreateAndConfigureNetwork(testSource(t), cfg, nil)

			Convey("Then it is treated as a mapping and receives the observed bounds", func() {
				So(err, ShouldBeNil)
				So(regionNames(net), ShouldResemble, []string{"sensor", "classifier"})
				scalar := cfg.SensorRegionConfig.Encoders.(map[string]any)["scalarEncoder"].(map[string]any)
				So(scalar["minval"], ShouldEqual, -3.0)
				So(scalar["maxval"], ShouldEqual, 42.0)
			})
		})

		Convey("When it maps names to encoder specs", func() {
			cfg.SensorRegionConfig.Encoders = map[string]model.EncoderSpec{
				"scalarEncoder": {FieldName: "energy", Type: "ScalarEncoder", W: 21, N: 500, MaxVal: 1},
			}
			net, err := CreateAndConfigureNetwork(testSource(t), cfg, nil)
			So(err, ShouldBeNil)

			Convey("Then the sensor encoder spans the observed bounds", func() {
				handle, ok := net.Region("sensor")
				So(ok, ShouldBeTrue)
				multi := handle.GetSelf().(SensorRegion).Encoder().(*encoders.MultiEncoder)
				scalar, ok := multi.Encoder("scalarEncoder")
				So(ok, ShouldBeTrue)
				lo, hi := scalar.(encoders.RangeSetter).Range()
				So(lo, ShouldEqual, -3.0)
				So(hi, ShouldEqual, 42.0)
				So(multi.Width(), ShouldEqual, 500)
			})
		})

		Convey("When the encoder is built directly from it", func() {
			multi, err := CreateEncoder(map[string]model.EncoderSpec{
				"label": {FieldName: "label", Type: "CategoryEncoder", W: 3, CategoryList: []string{"0", "1"}},
			})

			Convey("Then no type mismatch is reported", func() {
				So(err, ShouldBeNil)
				So(multi.Len(), ShouldEqual, 1)
			})
		})

		Convey("When its keys are not strings", func() {
			_, err := CreateEncoder(map[int]any{1: map[string]any{}})

			Convey("Then it is still not a mapping", func() {
				So(errors.Is(err, ErrEncodersNotMapping), ShouldBeTrue)
			})
		})
	})
}

func TestResearchClassifier(t *testing.T) {
	Convey("Given a sequence classifier loaded from its module", t, func() {
		cfg := testConfig()
		cfg.ClassifierRegionConfig = model.RegionConfig{
			RegionName:   "classifier",
			RegionType:   "py.SequenceClassifierRegion",
			RegionModule: regions.SequenceClassifierModule,
			RegionParams: map[string]any{"implementation": "py", "clVerbosity": 0},
		}

		Convey("When the network is created and configured", func() {
			net, err := CreateAndConfigureNetwork(testSource(t), cfg, nil)
			So(err, ShouldBeNil)

			Convey("Then the classifier is linked without a partition input", func() {
				So(engine.IsRegistered(regions.SequenceClassifierRegionType), ShouldBeTrue)
				So(len(net.LinksInto("classifier")), ShouldEqual, 2)
			})
		})

		Convey("When the module is not given", func() {
			_ = engine.UnregisterRegion(regions.SequenceClassifierRegionType)
			cfg.ClassifierRegionConfig.RegionModule = ""
			_, err := CreateNetwork(testSource(t), cfg, nil)

			Convey("Then the default module lookup fails", func() {
				So(errors.Is(err, engine.ErrModuleNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestValidateRegionWidths(t *testing.T) {
	Convey("Matching widths pass and mismatches carry both widths", t, func() {
		So(ValidateRegionWidths(10, 10), ShouldBeNil)
		err := ValidateRegionWidths(10, 12)
		So(err, ShouldResemble, &WidthMismatchError{Output: 10, Input: 12})
	})
}
