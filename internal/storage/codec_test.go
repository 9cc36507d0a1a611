package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/vitaly-krugl/htmresearch/internal/model"
)

func TestDecodeConfigRecordFixture(t *testing.T) {
	data := readFixture(t, "minimal_config_v1.json")

	record, err := DecodeConfigRecord(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if record.Name != "minimal" {
		t.Fatalf("unexpected config name: %s", record.Name)
	}
	cfg := record.Config
	if cfg.SPRegionConfig.Enabled() || cfg.TMRegionConfig.Enabled() || cfg.TPRegionConfig.Enabled() {
		t.Fatalf("expected optional regions disabled: %+v", cfg)
	}
	encoders, ok := cfg.SensorRegionConfig.EncoderMap()
	if !ok {
		t.Fatalf("expected encoders mapping, got %T", cfg.SensorRegionConfig.Encoders)
	}
	scalar, ok := encoders["scalarEncoder"].(map[string]any)
	if !ok || scalar["fieldname"] != "y" {
		t.Fatalf("unexpected scalar encoder: %+v", encoders["scalarEncoder"])
	}
	if cfg.ClassifierRegionConfig.RegionParams["distanceMethod"] != "rawOverlap" {
		t.Fatalf("unexpected classifier params: %+v", cfg.ClassifierRegionConfig.RegionParams)
	}
}

func TestDecodeAssemblySummaryFixture(t *testing.T) {
	data := readFixture(t, "minimal_assembly_v1.json")

	summary, err := DecodeAssemblySummary(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if summary.ID != "assembly-minimal-1" {
		t.Fatalf("unexpected summary id: %s", summary.ID)
	}
	if len(summary.Regions) != 2 || summary.Regions[1].Type != "KNNClassifierRegion" {
		t.Fatalf("unexpected regions: %+v", summary.Regions)
	}
	if len(summary.Links) != 3 || summary.Links[2].DestInput != "partitionIn" {
		t.Fatalf("unexpected links: %+v", summary.Links)
	}
}

func TestAssemblySummaryRoundTripFixtureEquality(t *testing.T) {
	expected, err := DecodeAssemblySummary(readFixture(t, "minimal_assembly_v1.json"))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}

	encoded, err := EncodeAssemblySummary(expected)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	actual, err := DecodeAssemblySummary(encoded)
	if err != nil {
		t.Fatalf("decode roundtrip: %v", err)
	}

	if !reflect.DeepEqual(actual, expected) {
		t.Fatalf("roundtrip mismatch\nactual=%+v\nexpected=%+v", actual, expected)
	}
}

func TestConfigRecordRoundTripFixtureEquality(t *testing.T) {
	expected, err := DecodeConfigRecord(readFixture(t, "minimal_config_v1.json"))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}

	encoded, err := EncodeConfigRecord(expected)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	actual, err := DecodeConfigRecord(encoded)
	if err != nil {
		t.Fatalf("decode roundtrip: %v", err)
	}

	if !reflect.DeepEqual(actual, expected) {
		t.Fatalf("roundtrip mismatch\nactual=%+v\nexpected=%+v", actual, expected)
	}
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	_, err := DecodeAssemblySummary(readFixture(t, "future_assembly_v2.json"))
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}

	data, err := EncodeConfigRecord(model.ConfigRecord{Name: "unversioned"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeConfigRecord(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch for unversioned config, got %v", err)
	}
}

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	if _, err := DecodeAssemblySummary([]byte(`{"id": 7`)); err == nil {
		t.Fatal("expected malformed summary error")
	}
	if _, err := DecodeConfigRecord([]byte(`[]`)); err == nil {
		t.Fatal("expected malformed config error")
	}
}

func fixturePath(name string) string {
	return filepath.Join("..", "..", "testdata", "fixtures", name)
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()

	data, err := os.ReadFile(fixturePath(name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}
