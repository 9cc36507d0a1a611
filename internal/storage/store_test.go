package storage

import (
	"context"
	"testing"
	"time"

	"github.com/vitaly-krugl/htmresearch/internal/model"
)

// exerciseStore runs the behaviour every backend shares.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	cfg := model.NetworkConfig{
		SensorRegionConfig: model.RegionConfig{
			RegionName: "sensor",
			RegionType: "py.RecordSensor",
			Encoders: map[string]any{
				"scalarEncoder": map[string]any{"fieldname": "y", "type": "ScalarEncoder", "w": 21.0, "n": 200.0},
			},
		},
		SPRegionConfig: model.RegionConfig{RegionName: "SP", RegionType: "py.SPRegion", RegionEnabled: model.Enabled(true)},
		ClassifierRegionConfig: model.RegionConfig{
			RegionName:   "classifier",
			RegionType:   "py.SDRClassifierRegion",
			RegionParams: map[string]any{"alpha": 0.01},
		},
	}
	for _, name := range []string{"beta", "alpha"} {
		record := model.ConfigRecord{VersionedRecord: Stamp(), Name: name, UpdatedAt: time.Unix(1700000000, 0).UTC(), Config: cfg}
		if err := store.SaveConfig(ctx, record); err != nil {
			t.Fatalf("save config %s: %v", name, err)
		}
	}

	loaded, ok, err := store.GetConfig(ctx, "alpha")
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted config")
	}
	if !loaded.Config.SPRegionConfig.Enabled() || loaded.Config.ClassifierRegionConfig.RegionParams["alpha"] != 0.01 {
		t.Fatalf("unexpected config: %+v", loaded.Config)
	}
	if _, ok, err := store.GetConfig(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing config, got ok=%v err=%v", ok, err)
	}
	names, err := store.ListConfigs(ctx)
	if err != nil {
		t.Fatalf("list configs: %v", err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Fatalf("unexpected config names: %v", names)
	}

	base := time.Unix(1700000000, 0).UTC()
	for i, id := range []string{"first", "second"} {
		summary := model.AssemblySummary{
			VersionedRecord: Stamp(),
			ID:              id,
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
			EncoderWidth:    200,
			Regions:         []model.RegionRecord{{Name: "sensor", Type: "RecordSensor", OutputWidth: 200}},
			Links:           []model.LinkRecord{{Source: "sensor", Dest: "classifier", SrcOutput: "dataOut", DestInput: "bottomUpIn"}},
			Config:          cfg,
		}
		if err := store.SaveAssemblySummary(ctx, summary); err != nil {
			t.Fatalf("save summary %s: %v", id, err)
		}
	}

	summary, ok, err := store.GetAssemblySummary(ctx, "second")
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted summary")
	}
	if summary.EncoderWidth != 200 || len(summary.Links) != 1 || summary.Regions[0].OutputWidth != 200 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	summaries, err := store.ListAssemblySummaries(ctx)
	if err != nil {
		t.Fatalf("list summaries: %v", err)
	}
	if len(summaries) != 2 || summaries[0].ID != "first" || summaries[1].ID != "second" {
		t.Fatalf("unexpected summary order: %+v", summaries)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	exerciseStore(t, store)
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveConfig(context.Background(), model.ConfigRecord{Name: "x"}); err == nil {
		t.Fatal("expected error before init")
	}
}

func TestMemoryStoreCopiesOnSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	params := map[string]any{"columnCount": 2048.0}
	record := model.ConfigRecord{
		VersionedRecord: Stamp(),
		Name:            "shared",
		Config:          model.NetworkConfig{SPRegionConfig: model.RegionConfig{RegionName: "SP", RegionParams: params}},
	}
	if err := store.SaveConfig(ctx, record); err != nil {
		t.Fatalf("save config: %v", err)
	}
	params["columnCount"] = 1.0

	loaded, _, err := store.GetConfig(ctx, "shared")
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if loaded.Config.SPRegionConfig.RegionParams["columnCount"] != 2048.0 {
		t.Fatalf("stored config shares caller maps: %+v", loaded.Config.SPRegionConfig.RegionParams)
	}
	loaded.Config.SPRegionConfig.RegionParams["columnCount"] = 3.0

	again, _, _ := store.GetConfig(ctx, "shared")
	if again.Config.SPRegionConfig.RegionParams["columnCount"] != 2048.0 {
		t.Fatalf("loaded config shares store maps: %+v", again.Config.SPRegionConfig.RegionParams)
	}
}
